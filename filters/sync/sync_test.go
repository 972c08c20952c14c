package sync_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofcom/fcom/filters/sync"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_FindsFilesAndDirsWithCRC(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "world")

	tree, err := sync.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	a, ok := tree.Entries["a.txt"]
	if !ok || a.IsDir || a.Size != 5 || a.CRC32 == 0 {
		t.Fatalf("a.txt entry wrong: %+v (ok=%v)", a, ok)
	}
	sub, ok := tree.Entries["sub"]
	if !ok || !sub.IsDir {
		t.Fatalf("sub entry wrong: %+v (ok=%v)", sub, ok)
	}
	b, ok := tree.Entries["sub/b.txt"]
	if !ok || b.IsDir {
		t.Fatalf("sub/b.txt entry wrong: %+v (ok=%v)", b, ok)
	}
}

func TestCompare_DetectsOnlyLeftOnlyRightAndDiffs(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()

	writeFile(t, filepath.Join(left, "same.txt"), "identical")
	writeFile(t, filepath.Join(right, "same.txt"), "identical")
	// Equal also requires matching mtimes; the two writes above may land on
	// different clock ticks, so pin both to the same instant.
	same := time.Now()
	for _, p := range []string{filepath.Join(left, "same.txt"), filepath.Join(right, "same.txt")} {
		if err := os.Chtimes(p, same, same); err != nil {
			t.Fatal(err)
		}
	}

	writeFile(t, filepath.Join(left, "leftonly.txt"), "only here")

	writeFile(t, filepath.Join(right, "rightonly.txt"), "only there")

	writeFile(t, filepath.Join(left, "changed.txt"), "short")
	writeFile(t, filepath.Join(right, "changed.txt"), "a much longer replacement body")

	lt, err := sync.Scan(left)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := sync.Scan(right)
	if err != nil {
		t.Fatal(err)
	}

	results := sync.Compare(lt, rt)

	byName := make(map[string]sync.Result)
	for _, r := range results {
		name := r.Left.Name
		if name == "" {
			name = r.Right.Name
		}
		byName[name] = r
	}

	if got := byName["same.txt"].State; got != sync.Equal {
		t.Errorf("same.txt: got %v, want Equal", got)
	}
	if got := byName["leftonly.txt"].State; got != sync.OnlyLeft {
		t.Errorf("leftonly.txt: got %v, want OnlyLeft", got)
	}
	if got := byName["rightonly.txt"].State; got != sync.OnlyRight {
		t.Errorf("rightonly.txt: got %v, want OnlyRight", got)
	}
	if got := byName["changed.txt"].State; got != sync.Smaller {
		t.Errorf("changed.txt: got %v, want Smaller (left is the smaller body)", got)
	}
}

func TestCompare_DetectsRename(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()

	writeFile(t, filepath.Join(left, "old-name.txt"), "stable content")
	writeFile(t, filepath.Join(right, "new-name.txt"), "stable content")

	// Rename detection keys on (size, mtime-bucket); force matching mtimes.
	now := time.Now()
	if err := os.Chtimes(filepath.Join(left, "old-name.txt"), now, now); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(filepath.Join(right, "new-name.txt"), now, now); err != nil {
		t.Fatal(err)
	}

	lt, err := sync.Scan(left)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := sync.Scan(right)
	if err != nil {
		t.Fatal(err)
	}

	results := sync.Compare(lt, rt)
	var found bool
	for _, r := range results {
		if r.State == sync.Moved && r.Left.Name == "old-name.txt" && r.Right.Name == "new-name.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Moved result pairing old-name.txt -> new-name.txt, got %+v", results)
	}
}

func TestSnapshot_RoundTrips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, `weird "name".txt`), "content")
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "sub", "nested.txt"), "nested content")

	orig, err := sync.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := sync.WriteSnapshot(&buf, orig); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	restored, err := sync.ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if len(restored.Entries) != len(orig.Entries) {
		t.Fatalf("got %d entries, want %d", len(restored.Entries), len(orig.Entries))
	}
	for name, oe := range orig.Entries {
		re, ok := restored.Entries[name]
		if !ok {
			t.Fatalf("missing entry %q after round-trip", name)
		}
		if re.IsDir != oe.IsDir || re.Size != oe.Size || re.CRC32 != oe.CRC32 {
			t.Fatalf("entry %q mismatch: got %+v, want %+v", name, re, oe)
		}
		// The snapshot format only carries millisecond precision.
		if !re.MTime.Truncate(time.Millisecond).Equal(oe.MTime.Truncate(time.Millisecond)) {
			t.Fatalf("entry %q mtime mismatch: got %v, want %v", name, re.MTime, oe.MTime)
		}
	}
}
