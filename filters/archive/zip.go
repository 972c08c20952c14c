package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofcom/fcom/core"
)

// ZipEntryReader is the head of a zip-pack pipeline: it walks
// Cmd.Vars["zip.entries"] ([]string source paths) one member at a time,
// streaming each regular file's content through Cmd.Out in chunks and
// signaling the member boundary with NextDone — the incremental
// first/data/next/eof state machine spec §4.6 describes for archive
// filters, rather than a single synchronous walk-and-copy.
type ZipEntryReader struct{}

// zipEntryReaderState tracks the member currently being streamed.
type zipEntryReaderState struct {
	entries []string
	idx     int
	cur     *os.File
	curName string
}

func (r *ZipEntryReader) Open(c *core.Cmd) (any, error) {
	entries, _ := c.Vars["zip.entries"].([]string)
	// Output.Name still names the archive here; Process overwrites it with
	// each member's name before ZipWriter is first opened.
	c.Vars["zip.archive"] = c.Output.Name
	return &zipEntryReaderState{entries: entries}, nil
}

func (r *ZipEntryReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*zipEntryReaderState)

	if st.cur == nil {
		if st.idx >= len(st.entries) {
			return core.Done, core.NoMutation, nil
		}
		path := st.entries[st.idx]
		st.idx++

		info, err := os.Stat(path)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: zip stat %s: %w", path, err)
		}
		c.Output.Name = filepath.ToSlash(path)
		c.Output.Size = info.Size()
		c.Output.MTime = info.ModTime()
		c.Output.Last = false
		c.Vars["archive.member_isdir"] = info.IsDir()

		if info.IsDir() {
			c.Output.Last = true
			return core.NextDone, core.NoMutation, nil
		}

		f, err := os.Open(path)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: zip open %s: %w", path, err)
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
		return core.SysErr, core.NoMutation, fmt.Errorf("archive: zip read %s: %w", st.curName, err)
	}
	return core.NextDone, core.NoMutation, nil
}

func (r *ZipEntryReader) Close(state any, c *core.Cmd) {
	st := state.(*zipEntryReaderState)
	if st.cur != nil {
		st.cur.Close()
	}
}

// ZipWriterState is ZipWriter's private state.
type ZipWriterState struct {
	f          *os.File
	zw         *zip.Writer
	w          io.Writer
	needHeader bool
}

// ZipWriter is the tail of a zip-pack pipeline: for each member announced
// upstream (via Cmd.Output.Name/Size/MTime and the "archive.member_isdir"
// var) it opens a new entry in the archive's central directory, streams
// Cmd.In chunks into it, and finalizes the entry when Cmd.Output.Last is
// set — mirroring spec §4.6's two-phase archive writer ("enumerate
// members" / "feed each member's content through the backing encoder") but
// driven member-by-member through the chunked filter contract instead of
// a single synchronous pass over the whole file list.
type ZipWriter struct{}

func (w *ZipWriter) Open(c *core.Cmd) (any, error) {
	name, _ := c.Vars["zip.archive"].(string)
	if name == "" {
		name = c.Output.Name
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("archive: zip create %s: %w", name, err)
	}
	return &ZipWriterState{f: f, zw: zip.NewWriter(f), needHeader: true}, nil
}

func (w *ZipWriter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*ZipWriterState)

	if st.needHeader {
		isDir, _ := c.Vars["archive.member_isdir"].(bool)
		hdr := &zip.FileHeader{Name: c.Output.Name, Modified: c.Output.MTime}
		if isDir {
			if !strings.HasSuffix(hdr.Name, "/") {
				hdr.Name += "/"
			}
			hdr.Method = zip.Store
		} else {
			hdr.Method = zip.Deflate
		}
		ew, err := st.zw.CreateHeader(hdr)
		if err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: zip create entry %s: %w", hdr.Name, err)
		}
		st.needHeader = false
		if isDir {
			st.needHeader = true
			return core.NextDone, core.NoMutation, nil
		}
		st.w = ew
	}

	if len(c.In) > 0 {
		if _, err := st.w.Write(c.In); err != nil {
			return core.SysErr, core.NoMutation, fmt.Errorf("archive: zip write %s: %w", c.Output.Name, err)
		}
	}

	if c.Output.Last {
		st.w = nil
		st.needHeader = true
		return core.NextDone, core.NoMutation, nil
	}
	return core.More, core.NoMutation, nil
}

func (w *ZipWriter) Close(state any, c *core.Cmd) {
	st := state.(*ZipWriterState)
	st.zw.Close()
	st.f.Close()
}

// unzipState is UnzipReader's current position in the archive.
type unzipState int

const (
	unzipNextMember unzipState = iota
	unzipStreaming
	unzipDrained
)

// UnzipReaderState is UnzipReader's private state.
type UnzipReaderState struct {
	zr      *zip.ReadCloser
	outDir  string
	idx     int
	state   unzipState
	cur     io.ReadCloser
	curName string
}

// UnzipReader is an incremental zip extractor: its Process method is the
// state machine spec §4.6 describes for archive readers (first → data →
// next → eof), emitting one member's bytes as a sequence of Data chunks
// terminated by NextDone rather than extracting the whole archive inside
// a single synchronous call. Paired with MemberWriter downstream, which
// opens/closes each member's destination file as the member boundary
// arrives.
type UnzipReader struct{}

func (r *UnzipReader) Open(c *core.Cmd) (any, error) {
	zr, err := zip.OpenReader(c.Input.Name)
	if err != nil {
		return nil, fmt.Errorf("archive: unzip open %s: %w", c.Input.Name, err)
	}
	outDir := c.OutDir
	if outDir == "" {
		outDir = "."
	}
	return &UnzipReaderState{zr: zr, outDir: outDir}, nil
}

func (r *UnzipReader) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*UnzipReaderState)

	for {
		switch st.state {
		case unzipDrained:
			return core.Done, core.NoMutation, nil

		case unzipNextMember:
			if st.idx >= len(st.zr.File) {
				st.state = unzipDrained
				continue
			}
			f := st.zr.File[st.idx]
			st.idx++

			target := filepath.Join(st.outDir, filepath.FromSlash(f.Name))
			c.Output.Name = target
			c.Output.Size = int64(f.UncompressedSize64)
			c.Output.MTime = f.Modified
			c.Output.Last = false
			c.Vars["archive.member_isdir"] = f.FileInfo().IsDir()

			if f.FileInfo().IsDir() {
				c.Output.Last = true
				return core.NextDone, core.NoMutation, nil
			}

			rc, err := f.Open()
			if err != nil {
				return core.SysErr, core.NoMutation, fmt.Errorf("archive: unzip open entry %s: %w", f.Name, err)
			}
			st.cur = rc
			st.curName = f.Name
			st.state = unzipStreaming
			continue

		case unzipStreaming:
			buf := make([]byte, 32*1024)
			n, err := st.cur.Read(buf)
			if n > 0 {
				c.Out = buf[:n]
				return core.Data, core.NoMutation, nil
			}
			st.cur.Close()
			st.cur = nil
			c.Output.Last = true
			st.state = unzipNextMember
			if err != nil && err != io.EOF {
				return core.SysErr, core.NoMutation, fmt.Errorf("archive: unzip read entry %s: %w", st.curName, err)
			}
			return core.NextDone, core.NoMutation, nil
		}
	}
}

func (r *UnzipReader) Close(state any, c *core.Cmd) {
	st := state.(*UnzipReaderState)
	if st.cur != nil {
		st.cur.Close()
	}
	st.zr.Close()
}
