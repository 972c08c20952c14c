package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofcom/fcom/core"
)

// TarEntryReader is the head of a tar-pack pipeline: it walks
// Cmd.Vars["tar.entries"] ([]string source paths) one member at a time,
// streaming each regular file's content through Cmd.Out in chunks and
// signaling the member boundary with NextDone, mirroring ZipEntryReader's
// incremental first/data/next/eof state machine (spec §4.6).
type TarEntryReader struct{}

type tarEntryReaderState struct {
	entries []string
	idx     int
	cur     *os.File
	curName string
}

func (r *TarEntryReader) Open(c *core.Cmd) (any, error) {
	entries, _ := c.Vars["tar.entries"].([]string)
	// Output.Name still names the archive here; Process overwrites it with
	// each member's name before TarWriter is first opened.
	c.Vars["tar.archive"] = c.Output.Name
	return &tarEntryReaderState{entries: entries}, nil
}

func (r *TarEntryReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*tarEntryReaderState)

	if st.cur == nil {
		if st.idx >= len(st.entries) {
			return core.Done, core.NoMutation, nil
		}
		path := st.entries[st.idx]
		st.idx++

		info, err := os.Stat(path)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: tar stat %s: %w", path, err)
		}
		c.Output.Name = filepath.ToSlash(path)
		c.Output.Size = info.Size()
		c.Output.MTime = info.ModTime()
		c.Output.Last = false
		c.Vars["archive.member_isdir"] = info.IsDir()
		c.Vars["archive.member_mode"] = info.Mode()

		if info.IsDir() {
			c.Output.Last = true
			return core.NextDone, core.NoMutation, nil
		}

		f, err := os.Open(path)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: tar open %s: %w", path, err)
		}
		st.cur = f
		st.curName = path
	}

	buf := make([]byte, 32*1024)
	n, err := st.cur.Read(buf)
	if n > 0 {
		c.Out = buf[:n]
		return core.Data, core.NoMutation, nil
	}
	st.cur.Close()
	st.cur = nil
	c.Output.Last = true
	if err != nil && err != io.EOF {
		return core.SysErr, core.NoMutation, fmt.Errorf("archive: tar read %s: %w", st.curName, err)
	}
	return core.NextDone, core.NoMutation, nil
}

func (r *TarEntryReader) Close(state any, c *core.Cmd) {
	st := state.(*tarEntryReaderState)
	if st.cur != nil {
		st.cur.Close()
	}
}

// TarWriterState is TarWriter's private state.
type TarWriterState struct {
	f          *os.File
	tw         *tar.Writer
	needHeader bool
	written    int64
}

// TarWriter is the tail of a tar-pack pipeline: for each member announced
// upstream it writes a tar header, then streams Cmd.In chunks as that
// entry's content, finalizing when Cmd.Output.Last arrives — the same
// member-at-a-time contract as ZipWriter, adapted to tar's header-then-
// body framing instead of zip's central directory.
type TarWriter struct{}

func (w *TarWriter) Open(c *core.Cmd) (any, error) {
	name, _ := c.Vars["tar.archive"].(string)
	if name == "" {
		name = c.Output.Name
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("archive: tar create %s: %w", name, err)
	}
	return &TarWriterState{f: f, tw: tar.NewWriter(f), needHeader: true}, nil
}

func (w *TarWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*TarWriterState)

	if st.needHeader {
		isDir, _ := c.Vars["archive.member_isdir"].(bool)
		mode, _ := c.Vars["archive.member_mode"].(os.FileMode)
		hdr := &tar.Header{
			Name:    c.Output.Name,
			Size:    c.Output.Size,
			ModTime: c.Output.MTime,
			Mode:    int64(mode.Perm()),
		}
		if isDir {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		} else {
			hdr.Typeflag = tar.TypeReg
		}
		if err := st.tw.WriteHeader(hdr); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: tar write header %s: %w", hdr.Name, err)
		}
		st.needHeader = false
		st.written = 0
		if isDir {
			st.needHeader = true
			return core.NextDone, core.NoMutation, nil
		}
	}

	if len(c.In) > 0 {
		n, err := st.tw.Write(c.In)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: tar write %s: %w", c.Output.Name, err)
		}
		st.written += int64(n)
	}

	if c.Output.Last {
		st.needHeader = true
		return core.NextDone, core.NoMutation, nil
	}
	return core.More, core.NoMutation, nil
}

func (w *TarWriter) Close(state any, c *core.Cmd) {
	st := state.(*TarWriterState)
	st.tw.Close()
	st.f.Close()
}

// untarState is UntarReader's current position in the archive.
type untarState int

const (
	untarNextMember untarState = iota
	untarStreaming
	untarDrained
)

// UntarReaderState is UntarReader's private state.
type UntarReaderState struct {
	f       *os.File
	tr      *tar.Reader
	outDir  string
	state   untarState
	curName string
}

// UntarReader is an incremental tar extractor: Process implements the
// first/data/next/eof state machine spec §4.6 describes, emitting each
// member's bytes as Data chunks terminated by NextDone instead of
// extracting the whole archive inside one synchronous call. Paired with
// MemberWriter downstream.
type UntarReader struct{}

func (r *UntarReader) Open(c *core.Cmd) (any, error) {
	f, err := os.Open(c.Input.Name)
	if err != nil {
		return nil, fmt.Errorf("archive: untar open %s: %w", c.Input.Name, err)
	}
	outDir := c.OutDir
	if outDir == "" {
		outDir = "."
	}
	return &UntarReaderState{f: f, tr: tar.NewReader(f), outDir: outDir}, nil
}

func (r *UntarReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*UntarReaderState)

	for {
		switch st.state {
		case untarDrained:
			return core.Done, core.NoMutation, nil

		case untarNextMember:
			hdr, err := st.tr.Next()
			if err == io.EOF {
				st.state = untarDrained
				continue
			}
			if err != nil {
				return core.Err, core.NoMutation, fmt.Errorf("archive: untar read %s: %w", c.Input.Name, err)
			}

			target := filepath.Join(st.outDir, filepath.FromSlash(hdr.Name))
			c.Output.Name = target
			c.Output.Size = hdr.Size
			c.Output.MTime = hdr.ModTime
			c.Output.Last = false
			c.Vars["archive.member_isdir"] = hdr.Typeflag == tar.TypeDir

			if hdr.Typeflag != tar.TypeReg {
				c.Output.Last = true
				return core.NextDone, core.NoMutation, nil
			}

			st.curName = hdr.Name
			st.state = untarStreaming
			continue

		case untarStreaming:
			buf := make([]byte, 32*1024)
			n, err := st.tr.Read(buf)
			if n > 0 {
				c.Out = buf[:n]
				return core.Data, core.NoMutation, nil
			}
			c.Output.Last = true
			st.state = untarNextMember
			if err != nil && err != io.EOF {
				return core.SysErr, core.NoMutation, fmt.Errorf("archive: untar read entry %s: %w", st.curName, err)
			}
			return core.NextDone, core.NoMutation, nil
		}
	}
}

func (r *UntarReader) Close(state any, c *core.Cmd) {
	st := state.(*UntarReaderState)
	st.f.Close()
}
