package ops_test

import (
	"context"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/ops"
	"github.com/gofcom/fcom/registry"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 80, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestImageModule_ConvertPNGToJPG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 32, 24)
	dst := filepath.Join(dir, "out.jpg")

	reg := registry.New()
	reg.RegisterModule("image", ops.ImageModule)
	tmpl, err := reg.Resolve("image.convert")
	if err != nil {
		t.Fatal(err)
	}

	c := core.NewCmd(context.Background(), "convert")
	c.Input.Name = src
	c.Output.Name = dst
	c.Params = ops.ImageParams{Format: "jpg"}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)

	fi, err := os.Stat(dst)
	if err != nil || fi.Size() == 0 {
		t.Fatalf("expected a non-empty jpg output, stat err=%v", err)
	}
}

func TestImageModule_ConvertToICOTriggersPixelConversion(t *testing.T) {
	dir := t.TempDir()
	// jpeg.Decode yields a *image.YCbCr, not *image.NRGBA, so Encoder's
	// ico path must exercise its Back/PixelConverter insertion.
	src := filepath.Join(dir, "in.jpg")
	writeTestJPEG(t, src, 16, 16)
	dst := filepath.Join(dir, "out.ico")

	reg := registry.New()
	reg.RegisterModule("image", ops.ImageModule)
	tmpl, err := reg.Resolve("image.convert")
	if err != nil {
		t.Fatal(err)
	}

	c := core.NewCmd(context.Background(), "convert")
	c.Input.Name = src
	c.Output.Name = dst
	c.Params = ops.ImageParams{Format: "ico"}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)

	fi, err := os.Stat(dst)
	if err != nil || fi.Size() == 0 {
		t.Fatalf("expected a non-empty ico output, stat err=%v", err)
	}
}

func TestImageModule_CropReducesDimensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 64, 64)
	dst := filepath.Join(dir, "out.png")

	reg := registry.New()
	reg.RegisterModule("image", ops.ImageModule)
	tmpl, err := reg.Resolve("image.crop")
	if err != nil {
		t.Fatal(err)
	}

	rect := stdimage.Rect(0, 0, 10, 10)
	c := core.NewCmd(context.Background(), "crop")
	c.Input.Name = src
	c.Output.Name = dst
	c.Params = ops.ImageParams{Format: "png", Crop: &rect}
	p, err := tmpl.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	runToCompletion(t, p)

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Fatalf("got %dx%d, want 10x10", cfg.Width, cfg.Height)
	}
}
