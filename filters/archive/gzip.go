// Package archive provides per-format single-stream codec filters —
// the Go equivalent of the original's arc/gz.c, arc/zip.c, etc. Each
// format exposes a Writer filter (compress Cmd.In -> Cmd.Out) and a
// Reader filter (decompress Cmd.In -> Cmd.Out); the multi-file pack/
// unpack operation that drives pathiter and fans work out across files
// lives in the ops package, matching the original's split between the
// per-format filter and its "gz"/"ungz" top-level dispatcher.
package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/gofcom/fcom/core"
)

// GzipWriterState is GzipWriter's private state.
type GzipWriterState struct {
	buf *bytes.Buffer
	zw  *gzip.Writer
}

// GzipWriter compresses the full input stream into one gzip member. Each
// Process call feeds Cmd.In to the gzip writer and hands on whatever
// compressed bytes it has produced so far (More when there are none);
// on Cmd.Input.Last it closes the writer and emits the remaining bytes.
type GzipWriter struct {
	Level int // gzip.DefaultCompression if zero
}

func (w *GzipWriter) Open(c *core.Cmd) (any, error) {
	level := w.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	buf := &bytes.Buffer{}
	zw, err := gzip.NewWriterLevel(buf, level)
	if err != nil {
		return nil, fmt.Errorf("archive: gzip: %w", err)
	}
	zw.Name = c.Input.Name
	zw.ModTime = c.Input.MTime
	return &GzipWriterState{buf: buf, zw: zw}, nil
}

func (w *GzipWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*GzipWriterState)

	if len(c.In) > 0 {
		if _, err := st.zw.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: gzip write: %w", err)
		}
	}

	if !c.Input.Last {
		if st.buf.Len() > 0 {
			c.Out = st.buf.Bytes()
			st.buf = &bytes.Buffer{}
			return core.Data, core.NoMutation, nil
		}
		return core.More, core.NoMutation, nil
	}

	if err := st.zw.Close(); err != nil {
		return core.SysErr, core.NoMutation, fmt.Errorf("archive: gzip close: %w", err)
	}
	c.Out = st.buf.Bytes()
	return core.Data, core.NoMutation, nil
}

func (w *GzipWriter) Close(state any, c *core.Cmd) {}

// GunzipReaderState is GunzipReader's private state.
type GunzipReaderState struct {
	pr *io.PipeReader
	pw *io.PipeWriter
	zr *gzip.Reader

	out  chan []byte
	errc chan error
	done bool
}

// GunzipReader decompresses a gzip member, reading it via a background
// goroutine piping into gzip.Reader so Process can remain a simple
// chunk-in/chunk-out call. Grounded on the original's ungz/ungz1 pair;
// here the streaming decode is folded into one filter since Go's
// gzip.Reader is naturally pull-based.
type GunzipReader struct{}

func (r *GunzipReader) Open(c *core.Cmd) (any, error) {
	pr, pw := io.Pipe()
	st := &GunzipReaderState{
		pr:   pr,
		pw:   pw,
		out:  make(chan []byte, 4),
		errc: make(chan error, 1),
	}

	// The gzip header is read by pump once Process starts feeding the pipe.
	go st.pump()
	return st, nil
}

func (st *GunzipReaderState) pump() {
	if st.zr == nil {
		zr, err := gzip.NewReader(st.pr)
		if err != nil {
			st.errc <- fmt.Errorf("archive: gunzip: %w", err)
			close(st.out)
			return
		}
		st.zr = zr
	}
	buf := make([]byte, 64*1024)
	for {
		n, err := st.zr.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			st.out <- chunk
		}
		if err == io.EOF {
			close(st.out)
			return
		}
		if err != nil {
			st.errc <- fmt.Errorf("archive: gunzip: %w", err)
			close(st.out)
			return
		}
	}
}

func (r *GunzipReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*GunzipReaderState)

	if len(c.In) > 0 {
		if _, err := st.pw.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: gunzip feed: %w", err)
		}
	}
	if c.Input.Last && !st.done {
		st.done = true
		st.pw.Close()
	}

	select {
	case chunk, ok := <-st.out:
		if !ok {
			select {
			case err := <-st.errc:
				return core.SysErr, core.NoMutation, err
			default:
			}
			return core.Done, core.NoMutation, nil
		}
		c.Out = chunk
		return core.Data, core.NoMutation, nil
	default:
	}

	if c.Input.Last {
		// drain remaining chunks synchronously once no more input arrives
		chunk, ok := <-st.out
		if !ok {
			select {
			case err := <-st.errc:
				return core.SysErr, core.NoMutation, err
			default:
			}
			return core.Done, core.NoMutation, nil
		}
		c.Out = chunk
		return core.Data, core.NoMutation, nil
	}

	return core.More, core.NoMutation, nil
}

func (r *GunzipReader) Close(state any, c *core.Cmd) {
	st := state.(*GunzipReaderState)
	st.pw.Close()
	st.pr.Close()
}
