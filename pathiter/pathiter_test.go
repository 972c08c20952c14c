package pathiter_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/gofcom/fcom/pathiter"
)

func mkTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	must(os.WriteFile(filepath.Join(root, "b.go"), []byte("b"), 0o644))
	must(os.Mkdir(filepath.Join(root, "sub"), 0o755))
	must(os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0o644))
	return root
}

func collect(t *testing.T, it *pathiter.Iterator, flags pathiter.NextFlags) []string {
	t.Helper()
	var out []string
	for {
		e, ok, err := it.Next(flags)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

func TestNext_NonRecursive_YieldsDirItselfOnly(t *testing.T) {
	root := mkTree(t)
	it := pathiter.New(pathiter.Options{})
	it.Push(root)

	got := collect(t, it, pathiter.NextFlags{})
	want := []string{root}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("got %v, want %v (non-recursive push of a dir yields the dir itself only)", got, want)
	}
}

func TestNext_Recurse_FilesOnly(t *testing.T) {
	root := mkTree(t)
	it := pathiter.New(pathiter.Options{Recurse: true})
	it.Push(root)

	got := collect(t, it, pathiter.NextFlags{FilesOnly: true})
	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.go"),
		filepath.Join(root, "sub", "c.txt"),
	}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNext_IncludeFilter(t *testing.T) {
	root := mkTree(t)
	it := pathiter.New(pathiter.Options{Recurse: true, IncludeFiles: []string{"*.go"}})
	it.Push(root)

	got := collect(t, it, pathiter.NextFlags{FilesOnly: true})
	if len(got) != 1 || filepath.Base(got[0]) != "b.go" {
		t.Fatalf("got %v, want only b.go", got)
	}
}

func TestNext_ExcludeFilter(t *testing.T) {
	root := mkTree(t)
	it := pathiter.New(pathiter.Options{Recurse: true, ExcludeFiles: []string{"sub"}})
	it.Push(root)

	got := collect(t, it, pathiter.NextFlags{FilesOnly: true})
	for _, p := range got {
		if filepath.Dir(p) != root {
			t.Fatalf("excluded dir was still descended into: %v", got)
		}
	}
}

func TestNext_ImplicitDotRoot(t *testing.T) {
	root := mkTree(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	it := pathiter.New(pathiter.Options{})
	it.Push(".")

	got := collect(t, it, pathiter.NextFlags{FilesOnly: true})
	if len(got) != 2 {
		t.Fatalf("implicit '.' root should list immediate files without Recurse, got %v", got)
	}
}

func TestNext_Peek(t *testing.T) {
	root := mkTree(t)
	it := pathiter.New(pathiter.Options{})
	it.Push(filepath.Join(root, "a.txt"))

	first, ok, err := it.Next(pathiter.NextFlags{Peek: true})
	if err != nil || !ok {
		t.Fatalf("Next(peek): ok=%v err=%v", ok, err)
	}
	second, ok, err := it.Next(pathiter.NextFlags{})
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if first.Path != second.Path {
		t.Fatalf("peek should not advance: %v != %v", first.Path, second.Path)
	}
	_, ok, _ = it.Next(pathiter.NextFlags{})
	if ok {
		t.Fatal("iterator should be exhausted after the single pushed file is consumed")
	}
}
