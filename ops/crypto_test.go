package ops_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/crypto"
	"github.com/gofcom/fcom/filters/fsio"
	"github.com/gofcom/fcom/ops"
	"github.com/gofcom/fcom/registry"
)

func runToCompletion(t *testing.T, p *core.Pipeline) {
	t.Helper()
	sched := core.NewScheduler(nil)
	status, err := sched.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != core.Done {
		t.Fatalf("final status = %v, want core.Done", status)
	}
}

// TestMD5Chain_MatchesStdlib builds the same fsio.FileReader -> crypto.Hasher
// -> ops.DigestLine chain CryptoModule's md5 template wires, pointed at an
// in-memory buffer instead of stdout so the digest line can be asserted on.
func TestMD5Chain_MatchesStdlib(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	content := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := core.NewCmd(context.Background(), "md5")
	c.Input.Name = path

	p := core.NewPipeline(c)
	p.Append("fsio.read", &fsio.FileReader{})
	p.Append("crypto.md5", crypto.NewMD5())
	p.Append("ops.digestline", &ops.DigestLine{})
	p.Append("fsio.stream", &fsio.StreamWriter{W: &out})

	runToCompletion(t, p)

	sum := md5.Sum(content)
	want := fmt.Sprintf("%x *%s\n", sum, path)
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

// TestMD5Chain_ZeroLengthInput exercises spec §8's boundary case: a
// zero-length file hits EOF on FileReader's very first Read, which must
// still carry the pipeline downstream (core.OutputDone, not core.Done)
// so Hasher/DigestLine/StreamWriter run and produce the empty-input digest
// instead of the pipeline tearing down with nothing printed.
func TestMD5Chain_ZeroLengthInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := core.NewCmd(context.Background(), "md5")
	c.Input.Name = path

	p := core.NewPipeline(c)
	p.Append("fsio.read", &fsio.FileReader{})
	p.Append("crypto.md5", crypto.NewMD5())
	p.Append("ops.digestline", &ops.DigestLine{})
	p.Append("fsio.stream", &fsio.StreamWriter{W: &out})

	runToCompletion(t, p)

	sum := md5.Sum(nil)
	want := fmt.Sprintf("%x *%s\n", sum, path)
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestCryptoModule_EncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.txt")
	encPath := filepath.Join(dir, "plain.enc")
	decPath := filepath.Join(dir, "plain.dec")

	content := []byte("a secret message that spans more than one ciphertext chunk boundary")
	if err := os.WriteFile(plainPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	reg.RegisterModule("crypto", ops.CryptoModule)

	encTmpl, err := reg.Resolve("crypto.encrypt")
	if err != nil {
		t.Fatal(err)
	}
	ec := core.NewCmd(context.Background(), "encrypt")
	ec.Input.Name = plainPath
	ec.Output.Name = encPath
	ec.Params = ops.CryptoParams{Password: "hunter2"}
	ep, err := encTmpl.Build(ec)
	if err != nil {
		t.Fatalf("Build(encrypt): %v", err)
	}
	runToCompletion(t, ep)

	decTmpl, err := reg.Resolve("crypto.decrypt")
	if err != nil {
		t.Fatal(err)
	}
	dc := core.NewCmd(context.Background(), "decrypt")
	dc.Input.Name = encPath
	dc.Output.Name = decPath
	dc.Params = ops.CryptoParams{Password: "hunter2"}
	dp, err := decTmpl.Build(dc)
	if err != nil {
		t.Fatalf("Build(decrypt): %v", err)
	}
	runToCompletion(t, dp)

	got, err := os.ReadFile(decPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round-tripped content = %q, want %q", got, content)
	}
}

func TestCryptoModule_HexDumpsKnownBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bytes.bin")
	content := []byte("AB")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := core.NewCmd(context.Background(), "hex")
	c.Input.Name = path

	p := core.NewPipeline(c)
	p.Append("fsio.read", &fsio.FileReader{})
	p.Append("crypto.hex", &crypto.HexDumper{})
	p.Append("fsio.stream", &fsio.StreamWriter{W: &out})

	runToCompletion(t, p)

	want := "00000000  41 42                                             |AB|\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestCryptoModule_EncryptVerifySucceeds(t *testing.T) {
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.txt")
	encPath := filepath.Join(dir, "plain.enc")
	content := []byte("verify this round trip end to end")
	if err := os.WriteFile(plainPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	reg.RegisterModule("crypto", ops.CryptoModule)

	tmpl, err := reg.Resolve("crypto.encryptverify")
	if err != nil {
		t.Fatal(err)
	}
	c := core.NewCmd(context.Background(), "encryptverify")
	c.Input.Name = plainPath
	c.Output.Name = encPath
	c.Params = ops.CryptoParams{Password: "correcthorse"}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build(encryptverify): %v", err)
	}
	runToCompletion(t, p)

	fi, err := os.Stat(encPath)
	if err != nil || fi.Size() == 0 {
		t.Fatalf("expected a non-empty encrypted output, stat err=%v", err)
	}
}

func TestCryptoModule_MissingPasswordFails(t *testing.T) {
	reg := registry.New()
	reg.RegisterModule("crypto", ops.CryptoModule)
	tmpl, err := reg.Resolve("crypto.encrypt")
	if err != nil {
		t.Fatal(err)
	}
	c := core.NewCmd(context.Background(), "encrypt")
	c.Params = ops.CryptoParams{}
	if _, err := tmpl.Build(c); err == nil {
		t.Fatal("expected Build to fail without a password")
	}
}
