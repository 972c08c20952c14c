// Package sync implements the file-tree scanner, two-cursor comparison
// engine, rename detection, and snapshot text format used by the `sync`
// operation (spec §4.6 "Sync / snapshot"). It is grounded on the same
// tree-walk idiom pathiter uses for path expansion, generalized to
// capture full metadata instead of just a path.
package sync

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entry describes one file or directory within a scanned Tree.
type Entry struct {
	Name     string // path relative to the tree root, forward-slash separated
	IsDir    bool
	Size     int64
	MTime    time.Time
	UnixAttr uint32
	WinAttr  uint32
	UID      int
	GID      int
	CRC32    uint32 // files only; zero for directories
}

// Tree is an in-memory snapshot of a directory's contents, keyed by the
// entry's path relative to Root.
type Tree struct {
	Root    string
	Entries map[string]*Entry
	// Order lists every entry name sorted lexically, for deterministic
	// snapshot output.
	Order []string
}

func newTree(root string) *Tree {
	return &Tree{Root: root, Entries: make(map[string]*Entry)}
}

// Scan walks root and returns a Tree of every file and directory beneath
// it, relative paths using "/" regardless of host OS.
func Scan(root string) (*Tree, error) {
	t := newTree(root)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("sync: walk %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		e := &Entry{
			Name:  rel,
			IsDir: info.IsDir(),
			Size:  info.Size(),
			MTime: info.ModTime(),
		}
		e.UnixAttr = uint32(info.Mode().Perm())
		e.WinAttr = winAttrOf(info)
		e.UID, e.GID = ownerOf(info)

		if !e.IsDir {
			sum, err := fileCRC32(path)
			if err != nil {
				return fmt.Errorf("sync: crc32 %s: %w", path, err)
			}
			e.CRC32 = sum
		}

		t.Entries[rel] = e
		t.Order = append(t.Order, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(t.Order)
	return t, nil
}

func fileCRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// MTimeBucket quantizes an entry's modification time to whole seconds,
// used as part of the rename-candidate key (spec §4.6: "both sides index
// unmatched entries by (size, mtime-bucket) hash").
func (e *Entry) MTimeBucket() int64 {
	return e.MTime.Unix()
}
