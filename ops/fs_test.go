package ops_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/ops"
	"github.com/gofcom/fcom/registry"
)

func TestFSModule_TouchCreatesThenUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new-file.txt")

	reg := registry.New()
	reg.RegisterModule("fs", ops.FSModule)
	tmpl, err := reg.Resolve("fs.touch")
	if err != nil {
		t.Fatal(err)
	}

	c := core.NewCmd(context.Background(), "touch")
	c.Params = ops.FSParams{Args: []string{path}}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("touch did not create %s: %v", path, err)
	}

	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	c2 := core.NewCmd(context.Background(), "touch")
	c2.Params = ops.FSParams{Args: []string{path}}
	p2, err := tmpl.Build(c2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p2)

	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().After(before.ModTime()) && !after.ModTime().Equal(before.ModTime()) {
		t.Fatalf("expected mtime to advance or stay equal on a fast re-touch, got before=%v after=%v", before.ModTime(), after.ModTime())
	}
}

func TestFSModule_ListWalksTree(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	reg.RegisterModule("fs", ops.FSModule)
	tmpl, err := reg.Resolve("fs.list")
	if err != nil {
		t.Fatal(err)
	}

	c := core.NewCmd(context.Background(), "list")
	c.Params = ops.FSParams{Args: []string{dir}, Recurse: true}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)
}
