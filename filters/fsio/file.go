// Package fsio provides the filters at the edges of every pipeline: a
// chunked file reader and writer, plus StreamWriter for output sent to
// an io.Writer instead of a file. Grounded on
// the original's file-reading core filters and the streaming chunk
// pattern the teacher uses in utils/streaming.go.
package fsio

import (
	"fmt"
	"io"
	"os"

	"github.com/gofcom/fcom/core"
)

const defaultChunkSize = 64 * 1024

// ReaderState is FileReader's private per-Cmd state.
type ReaderState struct {
	f         *os.File
	chunkSize int
	buf       []byte
	size      int64
	read      int64
}

// FileReader streams c.Input.Name in fixed-size chunks as the head of a
// pipeline, setting Cmd.Input.Last on the final chunk.
type FileReader struct {
	ChunkSize int
}

func (r *FileReader) Open(c *core.Cmd) (any, error) {
	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	f, err := os.Open(c.Input.Name)
	if err != nil {
		return nil, fmt.Errorf("fsio: open %s: %w", c.Input.Name, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fsio: stat %s: %w", c.Input.Name, err)
	}

	if c.Input.Seek && c.Input.Offset > 0 {
		if _, err := f.Seek(c.Input.Offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("fsio: seek %s: %w", c.Input.Name, err)
		}
	}

	c.Input.Size = fi.Size()
	c.Input.MTime = fi.ModTime()

	return &ReaderState{
		f:         f,
		chunkSize: chunkSize,
		buf:       make([]byte, chunkSize),
		size:      fi.Size(),
		read:      c.Input.Offset,
	}, nil
}

func (r *FileReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*ReaderState)

	n, err := st.f.Read(st.buf)
	if n > 0 {
		c.Out = append([]byte(nil), st.buf[:n]...)
		st.read += int64(n)
	}
	if err == io.EOF || st.read >= st.size {
		c.Input.Last = true
		if n > 0 {
			return core.Data, core.NoMutation, nil
		}
		// Nothing to hand downstream (e.g. a zero-length input file hit EOF
		// on the very first Read): signal end-of-stream without a Data hop
		// so downstream still gets scheduled to drain/finish (spec §8: "every
		// reader returns OUTPUTDONE on its first call" for a zero-length file).
		return core.OutputDone, core.NoMutation, nil
	}
	if err != nil {
		return core.SysErr, core.NoMutation, fmt.Errorf("fsio: read %s: %w", c.Input.Name, err)
	}
	return core.Data, core.NoMutation, nil
}

func (r *FileReader) Close(state any, c *core.Cmd) {
	st := state.(*ReaderState)
	st.f.Close()
}

// WriterState is FileWriter's private per-Cmd state.
type WriterState struct {
	f       *os.File
	written int64
}

// FileWriter is the tail of a pipeline: it writes Cmd.In to
// c.Output.Name. It derives no name itself: Open returns an error when
// Output.Name is empty (outside a dry run), so the caller sets the output
// name, matching the original's per-module "default output name"
// responsibility.
type FileWriter struct {
	// Perm is the mode used when creating the output file.
	Perm os.FileMode
	// DryRun, when true, discards bytes instead of writing them — used
	// for --dry-run/--list style invocations sharing the same filters.
	DryRun bool
}

func (w *FileWriter) Open(c *core.Cmd) (any, error) {
	if c.DryRun || w.DryRun {
		return &WriterState{}, nil
	}
	if c.Output.Name == "" {
		return nil, fmt.Errorf("fsio: no output name set for %s", c.Input.Name)
	}

	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}

	flags := os.O_WRONLY | os.O_CREATE
	if c.Output.Seek {
		// Random-access writers (archive/image header backfill) need
		// read-modify-write access rather than truncate-on-open.
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(c.Output.Name, flags, perm)
	if err != nil {
		return nil, fmt.Errorf("fsio: create %s: %w", c.Output.Name, err)
	}
	return &WriterState{f: f}, nil
}

func (w *FileWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*WriterState)

	if len(c.In) > 0 && st.f != nil {
		var n int
		var err error
		if c.Output.Seek {
			n, err = st.f.WriteAt(c.In, c.Output.Offset)
		} else {
			n, err = st.f.Write(c.In)
		}
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("fsio: write %s: %w", c.Output.Name, err)
		}
		st.written += int64(n)
	}

	if c.Input.Last {
		return core.Done, core.NoMutation, nil
	}
	return core.More, core.NoMutation, nil
}

func (w *FileWriter) Close(state any, c *core.Cmd) {
	st := state.(*WriterState)
	if st.f != nil {
		st.f.Close()
	}
}
