package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofcom/fcom/core"
)

// MemberWriterState is MemberWriter's private per-Cmd state.
type MemberWriterState struct {
	f *os.File
}

// MemberWriter is the write-side counterpart to an incremental archive
// reader (UnzipReader, UntarReader): each time the upstream reader
// announces a new member (Cmd.Output.Name set, no file currently open) it
// creates that member's destination file or directory, streams Cmd.In
// chunks into it, and closes it when Cmd.Output.Last arrives — the
// member-boundary signal spec §4.6 pairs with a NextDone hop back to the
// reader.
type MemberWriter struct{}

func (w *MemberWriter) Open(c *core.Cmd) (any, error) { return &MemberWriterState{}, nil }

func (w *MemberWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*MemberWriterState)

	if st.f == nil {
		if c.Output.Name == "" {
			return core.More, core.NoMutation, nil
		}
		isDir, _ := c.Vars["archive.member_isdir"].(bool)
		if err := os.MkdirAll(filepath.Dir(c.Output.Name), 0o755); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: member mkdir %s: %w", c.Output.Name, err)
		}
		if isDir {
			if err := os.MkdirAll(c.Output.Name, 0o755); err != nil {
				return core.SysErr, core.NoMutation, fmt.Errorf("archive: member mkdir %s: %w", c.Output.Name, err)
			}
			return core.NextDone, core.NoMutation, nil
		}
		f, err := os.OpenFile(c.Output.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: member create %s: %w", c.Output.Name, err)
		}
		st.f = f
	}

	if len(c.In) > 0 {
		if _, err := st.f.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: member write %s: %w", c.Output.Name, err)
		}
	}

	if c.Output.Last {
		st.f.Close()
		st.f = nil
		return core.NextDone, core.NoMutation, nil
	}
	return core.More, core.NoMutation, nil
}

func (w *MemberWriter) Close(state any, c *core.Cmd) {
	st := state.(*MemberWriterState)
	if st.f != nil {
		st.f.Close()
	}
}
