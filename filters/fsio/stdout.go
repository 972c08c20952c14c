package fsio

import (
	"fmt"
	"io"
	"os"

	"github.com/gofcom/fcom/core"
)

// StreamWriterState is StreamWriter's private state.
type StreamWriterState struct{}

// StreamWriter is the tail of a pipeline whose output goes to an
// already-open io.Writer rather than a named file — stdout for
// operations like md5/hex/stat that print a result instead of writing a
// sibling file. W defaults to os.Stdout; tests substitute a
// bytes.Buffer.
type StreamWriter struct {
	W io.Writer
}

func (w *StreamWriter) Open(c *core.Cmd) (any, error) { return &StreamWriterState{}, nil }

func (w *StreamWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	dst := w.W
	if dst == nil {
		dst = os.Stdout
	}
	if len(c.In) > 0 {
		if _, err := dst.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("fsio: stream write: %w", err)
		}
	}
	if c.Input.Last {
		return core.Done, core.NoMutation, nil
	}
	return core.More, core.NoMutation, nil
}

func (w *StreamWriter) Close(state any, c *core.Cmd) {}
