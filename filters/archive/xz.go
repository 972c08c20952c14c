package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/gofcom/fcom/core"
)

// XzWriterState is XzWriter's private state.
type XzWriterState struct {
	buf *bytes.Buffer
	zw  *xz.Writer
}

// XzWriter compresses the input stream into a single .xz container.
type XzWriter struct{}

func (w *XzWriter) Open(c *core.Cmd) (any, error) {
	buf := &bytes.Buffer{}
	zw, err := xz.NewWriter(buf)
	if err != nil {
		return nil, fmt.Errorf("archive: xz: %w", err)
	}
	return &XzWriterState{buf: buf, zw: zw}, nil
}

func (w *XzWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*XzWriterState)

	if len(c.In) > 0 {
		if _, err := st.zw.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: xz write: %w", err)
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
		return core.SysErr, core.NoMutation, fmt.Errorf("archive: xz close: %w", err)
	}
	c.Out = st.buf.Bytes()
	return core.Data, core.NoMutation, nil
}

func (w *XzWriter) Close(state any, c *core.Cmd) {}

// UnxzReaderState is UnxzReader's private state.
type UnxzReaderState struct {
	pr *io.PipeReader
	pw *io.PipeWriter
	zr *xz.Reader

	out  chan []byte
	errc chan error
	done bool
}

// UnxzReader decompresses a single .xz container, pumping input through
// a background goroutine into xz.Reader since the library is pull-based.
type UnxzReader struct{}

func (r *UnxzReader) Open(c *core.Cmd) (any, error) {
	pr, pw := io.Pipe()
	st := &UnxzReaderState{pr: pr, pw: pw, out: make(chan []byte, 4), errc: make(chan error, 1)}
	go st.pump()
	return st, nil
}

func (st *UnxzReaderState) pump() {
	zr, err := xz.NewReader(st.pr)
	if err != nil {
		st.errc <- fmt.Errorf("archive: unxz: %w", err)
		close(st.out)
		return
	}
	st.zr = zr
	buf := make([]byte, 64*1024)
	for {
		n, err := zr.Read(buf)
		if n > 0 {
			st.out <- append([]byte(nil), buf[:n]...)
		}
		if err == io.EOF {
			close(st.out)
			return
		}
		if err != nil {
			st.errc <- fmt.Errorf("archive: unxz: %w", err)
			close(st.out)
			return
		}
	}
}

func (r *UnxzReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*UnxzReaderState)

	if len(c.In) > 0 {
		if _, err := st.pw.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: unxz feed: %w", err)
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

func (r *UnxzReader) Close(state any, c *core.Cmd) {
	st := state.(*UnxzReaderState)
	st.pw.Close()
	st.pr.Close()
}
