package ops

import (
	stdimage "image"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/fsio"
	"github.com/gofcom/fcom/filters/image"
	"github.com/gofcom/fcom/registry"
)

// ImageParams carries per-invocation knobs for the image module: the
// target encode format, an optional crop rectangle, and an optional
// pixel-format override (normally left to Encoder's own BACK-triggered
// conversion).
type ImageParams struct {
	Format string // "png", "jpg", "bmp", "ico"; default "png"
	Crop   *stdimage.Rectangle
	PixFmt image.PixFmt
}

// ImageModule builds the "image" module: convert, crop. Both share one
// decode/encode chain; crop differs only in whether the Crop filter acts
// (it no-ops when Cmd.Vars["image.crop"] is unset).
func ImageModule() (*registry.Module, error) {
	m := registry.NewModule("image")

	build := func(c *core.Cmd) (*core.Pipeline, error) {
		ip, _ := c.Params.(ImageParams)
		if ip.Crop != nil {
			c.Vars["image.crop"] = *ip.Crop
		}
		format := ip.Format
		if format == "" {
			format = "png"
		}
		c.Vars["image.format"] = format
		if ip.PixFmt != "" {
			c.Vars["image.pixfmt"] = ip.PixFmt
		}

		p := core.NewPipeline(c)
		p.RegisterFactory("image.convert", func() core.Filter { return &image.PixelConverter{} })
		p.Append("fsio.read", &fsio.FileReader{})
		p.Append("image.decode", &image.Decoder{})
		p.Append("image.crop", &image.Crop{})
		p.Append("image.encode", &image.Encoder{})
		p.Append("fsio.write", &fsio.FileWriter{})
		return p, nil
	}

	m.Add("convert", &core.PipelineTemplate{
		Name:  "convert",
		Help:  "decodes an image and re-encodes it in another format",
		Build: build,
	})
	m.Add("crop", &core.PipelineTemplate{
		Name:  "crop",
		Help:  "decodes an image, crops it to a rectangle, and re-encodes it",
		Build: build,
	})

	return m, nil
}
