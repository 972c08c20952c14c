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

func TestArchiveModule_GzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.txt")
	content := []byte("compress me please, repeat repeat repeat repeat repeat")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	gzPath := filepath.Join(dir, "plain.txt.gz")
	outPath := filepath.Join(dir, "restored.txt")

	reg := registry.New()
	reg.RegisterModule("arc", ops.ArchiveModule)

	gzTmpl, err := reg.Resolve("arc.gz")
	if err != nil {
		t.Fatal(err)
	}
	gc := core.NewCmd(context.Background(), "gz")
	gc.Input.Name = src
	gc.Output.Name = gzPath
	gp, err := gzTmpl.Build(gc)
	if err != nil {
		t.Fatalf("Build(gz): %v", err)
	}
	runToCompletion(t, gp)

	ungzTmpl, err := reg.Resolve("arc.ungz")
	if err != nil {
		t.Fatal(err)
	}
	uc := core.NewCmd(context.Background(), "ungz")
	uc.Input.Name = gzPath
	uc.Output.Name = outPath
	up, err := ungzTmpl.Build(uc)
	if err != nil {
		t.Fatalf("Build(ungz): %v", err)
	}
	runToCompletion(t, up)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestArchiveModule_ZipPackAndExtract(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "one.txt"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "two.txt"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(srcDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	reg := registry.New()
	reg.RegisterModule("arc", ops.ArchiveModule)

	zipTmpl, err := reg.Resolve("arc.zip")
	if err != nil {
		t.Fatal(err)
	}
	zc := core.NewCmd(context.Background(), "zip")
	zc.Output.Name = "bundle.zip"
	zc.Vars["zip.entries"] = []string{"one.txt", "two.txt"}
	zp, err := zipTmpl.Build(zc)
	if err != nil {
		t.Fatalf("Build(zip): %v", err)
	}
	runToCompletion(t, zp)

	extractDir := filepath.Join(srcDir, "extracted")
	unzipTmpl, err := reg.Resolve("arc.unzip")
	if err != nil {
		t.Fatal(err)
	}
	uc := core.NewCmd(context.Background(), "unzip")
	uc.Input.Name = "bundle.zip"
	uc.OutDir = extractDir
	up, err := unzipTmpl.Build(uc)
	if err != nil {
		t.Fatalf("Build(unzip): %v", err)
	}
	runToCompletion(t, up)

	for _, name := range []string{"one.txt", "two.txt"} {
		got, err := os.ReadFile(filepath.Join(extractDir, name))
		if err != nil {
			t.Fatalf("reading extracted %s: %v", name, err)
		}
		if len(got) == 0 {
			t.Fatalf("%s extracted empty", name)
		}
	}
}

func TestArchiveModule_TarPackAndExtract(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("aaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "b.txt"), []byte("bbb"), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(srcDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	reg := registry.New()
	reg.RegisterModule("arc", ops.ArchiveModule)

	tarTmpl, err := reg.Resolve("arc.tar")
	if err != nil {
		t.Fatal(err)
	}
	tc := core.NewCmd(context.Background(), "tar")
	tc.Output.Name = "bundle.tar"
	tc.Vars["tar.entries"] = []string{"a.txt", "b.txt"}
	tp, err := tarTmpl.Build(tc)
	if err != nil {
		t.Fatalf("Build(tar): %v", err)
	}
	runToCompletion(t, tp)

	extractDir := filepath.Join(srcDir, "extracted")
	untarTmpl, err := reg.Resolve("arc.untar")
	if err != nil {
		t.Fatal(err)
	}
	uc := core.NewCmd(context.Background(), "untar")
	uc.Input.Name = "bundle.tar"
	uc.OutDir = extractDir
	up, err := untarTmpl.Build(uc)
	if err != nil {
		t.Fatalf("Build(untar): %v", err)
	}
	runToCompletion(t, up)

	for name, want := range map[string]string{"a.txt": "aaa", "b.txt": "bbb"} {
		got, err := os.ReadFile(filepath.Join(extractDir, name))
		if err != nil {
			t.Fatalf("reading extracted %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestArchiveModule_XzRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.txt")
	content := []byte("xz me please, repeat repeat repeat repeat repeat")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	xzPath := filepath.Join(dir, "plain.txt.xz")
	outPath := filepath.Join(dir, "restored.txt")

	reg := registry.New()
	reg.RegisterModule("arc", ops.ArchiveModule)

	xzTmpl, err := reg.Resolve("arc.xz")
	if err != nil {
		t.Fatal(err)
	}
	xc := core.NewCmd(context.Background(), "xz")
	xc.Input.Name = src
	xc.Output.Name = xzPath
	xp, err := xzTmpl.Build(xc)
	if err != nil {
		t.Fatalf("Build(xz): %v", err)
	}
	runToCompletion(t, xp)

	unxzTmpl, err := reg.Resolve("arc.unxz")
	if err != nil {
		t.Fatal(err)
	}
	uc := core.NewCmd(context.Background(), "unxz")
	uc.Input.Name = xzPath
	uc.Output.Name = outPath
	up, err := unxzTmpl.Build(uc)
	if err != nil {
		t.Fatalf("Build(unxz): %v", err)
	}
	runToCompletion(t, up)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestArchiveModule_ZstRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.txt")
	content := []byte("zstd me please, repeat repeat repeat repeat repeat")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	zstPath := filepath.Join(dir, "plain.txt.zst")
	outPath := filepath.Join(dir, "restored.txt")

	reg := registry.New()
	reg.RegisterModule("arc", ops.ArchiveModule)

	zstTmpl, err := reg.Resolve("arc.zst")
	if err != nil {
		t.Fatal(err)
	}
	zc := core.NewCmd(context.Background(), "zst")
	zc.Input.Name = src
	zc.Output.Name = zstPath
	zp, err := zstTmpl.Build(zc)
	if err != nil {
		t.Fatalf("Build(zst): %v", err)
	}
	runToCompletion(t, zp)

	unzstTmpl, err := reg.Resolve("arc.unzst")
	if err != nil {
		t.Fatal(err)
	}
	uc := core.NewCmd(context.Background(), "unzst")
	uc.Input.Name = zstPath
	uc.Output.Name = outPath
	up, err := unzstTmpl.Build(uc)
	if err != nil {
		t.Fatalf("Build(unzst): %v", err)
	}
	runToCompletion(t, up)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}
