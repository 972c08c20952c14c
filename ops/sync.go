package ops

import (
	"fmt"
	"io"
	"os"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/sync"
	"github.com/gofcom/fcom/registry"
)

// SyncParams selects the two trees to compare. Right may instead be a
// previously saved snapshot file when RightIsSnapshot is set, matching
// spec §4.6's "compare a live tree against a saved snapshot" mode.
type SyncParams struct {
	Left, Right     string
	RightIsSnapshot bool
	SnapshotOut     string // if set, Left is scanned and written here instead of compared
}

// SyncFilterState is SyncFilter's private state.
type SyncFilterState struct{}

// SyncFilter scans one or two directory trees and either writes a
// snapshot or prints a comparison, one line per differing (or
// attr-differing) entry — directories that match on both sides and carry
// no attribute difference are not printed.
type SyncFilter struct {
	Params SyncParams
	W      io.Writer
}

func (f *SyncFilter) Open(c *core.Cmd) (any, error) { return &SyncFilterState{}, nil }

func (f *SyncFilter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	w := f.W
	if w == nil {
		w = os.Stdout
	}

	left, err := sync.Scan(f.Params.Left)
	if err != nil {
		return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: %w", err)
	}

	if f.Params.SnapshotOut != "" {
		out, err := os.Create(f.Params.SnapshotOut)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: snapshot create: %w", err)
		}
		defer out.Close()
		if err := sync.WriteSnapshot(out, left); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: snapshot write: %w", err)
		}
		return core.Done, core.NoMutation, nil
	}

	var right *sync.Tree
	if f.Params.RightIsSnapshot {
		in, err := os.Open(f.Params.Right)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: snapshot open: %w", err)
		}
		defer in.Close()
		right, err = sync.ReadSnapshot(in)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: snapshot read: %w", err)
		}
	} else {
		right, err = sync.Scan(f.Params.Right)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: %w", err)
		}
	}

	results := sync.Compare(left, right)
	for _, r := range results {
		if r.State == sync.Equal && !r.AttrDiff {
			continue
		}
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("ops: sync: write: %w", err)
		}
	}
	return core.Done, core.NoMutation, nil
}

func (f *SyncFilter) Close(state any, c *core.Cmd) {}

// SyncModule builds the "sync" module: compare.
func SyncModule() (*registry.Module, error) {
	m := registry.NewModule("sync")

	m.Add("compare", &core.PipelineTemplate{
		Name: "compare",
		Help: "compares two directory trees (or a tree against a saved snapshot)",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			sp, ok := c.Params.(SyncParams)
			if !ok || sp.Left == "" {
				return nil, fmt.Errorf("ops: sync: no left tree given")
			}
			p := core.NewPipeline(c)
			p.Append("sync.compare", &SyncFilter{Params: sp})
			return p, nil
		},
	})

	return m, nil
}
