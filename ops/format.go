// Package ops wires the filters in filters/* into the named operations
// the command line resolves through registry.Registry — the Go
// equivalent of the original's per-module provide_op tables (arc, pic,
// txt, crypto, fs, sync).
package ops

import (
	"fmt"

	"github.com/gofcom/fcom/core"
)

// DigestLine formats the single hex digest a crypto.Hasher produces into
// the classic checksum-file line "<digest> *<name>\n" before handing it
// to a stream writer. Hasher only ever emits once, on the final chunk,
// so there is no intermediate-chunk case to handle.
type DigestLine struct{}

func (f *DigestLine) Open(c *core.Cmd) (any, error) { return struct{}{}, nil }

func (f *DigestLine) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	if len(c.In) == 0 {
		if c.Input.Last {
			return core.Done, core.NoMutation, nil
		}
		return core.More, core.NoMutation, nil
	}
	c.Out = []byte(fmt.Sprintf("%s *%s\n", c.In, c.Input.Name))
	return core.Data, core.NoMutation, nil
}

func (f *DigestLine) Close(state any, c *core.Cmd) {}
