package ops_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/ops"
	"github.com/gofcom/fcom/registry"
)

func TestTextModule_StatsReportsLineCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	reg.RegisterModule("text", ops.TextModule)
	tmpl, err := reg.Resolve("text.stats")
	if err != nil {
		t.Fatal(err)
	}

	c := core.NewCmd(context.Background(), "stats")
	c.Input.Name = path
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)
}

func TestTextModule_HTMLRequiresFilters(t *testing.T) {
	reg := registry.New()
	reg.RegisterModule("text", ops.TextModule)
	tmpl, err := reg.Resolve("text.html")
	if err != nil {
		t.Fatal(err)
	}
	c := core.NewCmd(context.Background(), "html")
	c.Params = ops.TextParams{}
	if _, err := tmpl.Build(c); err == nil {
		t.Fatal("expected Build to fail with no tag.attr filters")
	}
}

func TestTextModule_UTF8Transcode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ascii.txt")
	if err := os.WriteFile(path, []byte("plain ascii, already valid utf-8"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out.txt")

	reg := registry.New()
	reg.RegisterModule("text", ops.TextModule)
	tmpl, err := reg.Resolve("text.utf8")
	if err != nil {
		t.Fatal(err)
	}

	c := core.NewCmd(context.Background(), "utf8")
	c.Input.Name = path
	c.Output.Name = outPath
	c.Params = ops.TextParams{}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "already valid utf-8") {
		t.Fatalf("got %q", got)
	}
}
