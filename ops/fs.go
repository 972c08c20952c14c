package ops

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/pathiter"
	"github.com/gofcom/fcom/registry"
)

// FSParams carries the arguments and traversal options shared by list and
// touch — a supplemented pair of operations the original exposes as
// standalone utilities alongside its archive/image/text modules.
type FSParams struct {
	Args         []string
	Recurse      bool
	IncludeFiles []string
	ExcludeFiles []string
}

// ListFilterState is ListFilter's private state.
type ListFilterState struct{}

// ListFilter walks Args through pathiter and writes one path per line to
// W (default os.Stdout), yielding directory entries themselves as well
// as files (spec §4.1 rule 3).
type ListFilter struct {
	Args         []string
	Recurse      bool
	IncludeFiles []string
	ExcludeFiles []string
	W            io.Writer
}

func (f *ListFilter) Open(c *core.Cmd) (any, error) { return &ListFilterState{}, nil }

func (f *ListFilter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	it := pathiter.New(pathiter.Options{
		Recurse:      f.Recurse,
		IncludeFiles: f.IncludeFiles,
		ExcludeFiles: f.ExcludeFiles,
	})
	args := f.Args
	if len(args) == 0 {
		args = []string{"."}
	}
	for _, a := range args {
		it.Push(a)
	}

	w := f.W
	if w == nil {
		w = os.Stdout
	}
	for {
		e, ok, err := it.Next(pathiter.NextFlags{})
		if err != nil {
			return core.Err, core.NoMutation, fmt.Errorf("ops: list: %w", err)
		}
		if !ok {
			break
		}
		if _, err := fmt.Fprintln(w, e.Path); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: list: write: %w", err)
		}
	}
	for _, warning := range it.Warnings {
		c.Vars["list.warning"] = warning
	}
	return core.Done, core.NoMutation, nil
}

func (f *ListFilter) Close(state any, c *core.Cmd) {}

// TouchFilterState is TouchFilter's private state.
type TouchFilterState struct{}

// TouchFilter creates each named path if absent, or updates its
// modification time to now if it exists.
type TouchFilter struct {
	Args []string
}

func (f *TouchFilter) Open(c *core.Cmd) (any, error) { return &TouchFilterState{}, nil }

func (f *TouchFilter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	now := time.Now()
	for _, path := range f.Args {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return core.SysErr, core.NoMutation, fmt.Errorf("ops: touch create %s: %w", path, err)
			}
			fh.Close()
			continue
		}
		if err := os.Chtimes(path, now, now); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: touch %s: %w", path, err)
		}
	}
	return core.Done, core.NoMutation, nil
}

func (f *TouchFilter) Close(state any, c *core.Cmd) {}

// FSModule builds the "fs" module: list, touch.
func FSModule() (*registry.Module, error) {
	m := registry.NewModule("fs")

	m.Add("list", &core.PipelineTemplate{
		Name: "list",
		Help: "lists files and directories matching the given path arguments",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			fp, _ := c.Params.(FSParams)
			p := core.NewPipeline(c)
			p.Append("fs.list", &ListFilter{
				Args:         fp.Args,
				Recurse:      fp.Recurse,
				IncludeFiles: fp.IncludeFiles,
				ExcludeFiles: fp.ExcludeFiles,
			})
			return p, nil
		},
	})

	m.Add("touch", &core.PipelineTemplate{
		Name: "touch",
		Help: "creates or updates the modification time of each named file",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			fp, _ := c.Params.(FSParams)
			p := core.NewPipeline(c)
			p.Append("fs.touch", &TouchFilter{Args: fp.Args})
			return p, nil
		},
	})

	return m, nil
}
