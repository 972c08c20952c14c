package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/gofcom/fcom/core"
)

// ZstWriterState is ZstWriter's private state.
type ZstWriterState struct {
	buf *bytes.Buffer
	zw  *zstd.Encoder
}

// ZstWriter compresses the input stream into a single zstd frame.
type ZstWriter struct{}

func (w *ZstWriter) Open(c *core.Cmd) (any, error) {
	buf := &bytes.Buffer{}
	zw, err := zstd.NewWriter(buf)
	if err != nil {
		return nil, fmt.Errorf("archive: zstd: %w", err)
	}
	return &ZstWriterState{buf: buf, zw: zw}, nil
}

func (w *ZstWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*ZstWriterState)

	if len(c.In) > 0 {
		if _, err := st.zw.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: zstd write: %w", err)
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
		return core.SysErr, core.NoMutation, fmt.Errorf("archive: zstd close: %w", err)
	}
	c.Out = st.buf.Bytes()
	return core.Data, core.NoMutation, nil
}

func (w *ZstWriter) Close(state any, c *core.Cmd) {}

// UnzstReaderState is UnzstReader's private state. A background goroutine
// pumps input chunks through an io.Pipe into zstd.Decoder, matching the
// same pattern used for gzip and xz.
type UnzstReaderState struct {
	pr *io.PipeReader
	pw *io.PipeWriter
	zr *zstd.Decoder

	out  chan []byte
	errc chan error
	done bool
}

// UnzstReader decompresses a single zstd frame.
type UnzstReader struct{}

func (r *UnzstReader) Open(c *core.Cmd) (any, error) {
	pr, pw := io.Pipe()
	st := &UnzstReaderState{pr: pr, pw: pw, out: make(chan []byte, 4), errc: make(chan error, 1)}
	go st.pump()
	return st, nil
}

func (st *UnzstReaderState) pump() {
	zr, err := zstd.NewReader(st.pr)
	if err != nil {
		st.errc <- fmt.Errorf("archive: unzst: %w", err)
		close(st.out)
		return
	}
	st.zr = zr
	defer zr.Close()
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
			st.errc <- fmt.Errorf("archive: unzst: %w", err)
			close(st.out)
			return
		}
	}
}

func (r *UnzstReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*UnzstReaderState)

	if len(c.In) > 0 {
		if _, err := st.pw.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: unzst feed: %w", err)
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

func (r *UnzstReader) Close(state any, c *core.Cmd) {
	st := state.(*UnzstReaderState)
	st.pw.Close()
	st.pr.Close()
}
