// Package image provides the bmp/png/jpg/ico decode, pixel-format
// conversion, crop, and encode filters. Unlike the streaming archive and
// text filters, whole-image codecs need the complete byte stream before
// they can do anything, so the decoder accumulates Cmd.In across calls
// and only acts once Cmd.Input.Last is set — the same buffering used by
// the teacher's encoder.Encode/decoder.Decode, here folded into the
// filter's Open/Process lifecycle. Decoded pixel data travels between
// filters via Cmd.Params rather than Cmd.In/Out, since it isn't a byte
// stream until the final encode step.
package image

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp" // register webp as a source format for image.Decode

	"github.com/gofcom/fcom/core"
)

// PixFmt names a target pixel layout for the conversion filter.
type PixFmt string

const (
	PixRGBA PixFmt = "rgba"
	PixNRGBA PixFmt = "nrgba"
	PixGray  PixFmt = "gray"
)

// DecoderState is Decoder's private state.
type DecoderState struct {
	buf bytes.Buffer
}

// Decoder buffers the full input and decodes it with the standard
// library's format-sniffing image.Decode (png/jpeg/webp register
// themselves on import). bmp is not registered; when image.Decode fails
// the input is retried with bmp.Decode.
type Decoder struct{}

func (d *Decoder) Open(c *core.Cmd) (any, error) {
	return &DecoderState{}, nil
}

func (d *Decoder) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*DecoderState)
	if len(c.In) > 0 {
		st.buf.Write(c.In)
	}
	if !c.Input.Last {
		return core.More, core.NoMutation, nil
	}

	img, format, err := image.Decode(bytes.NewReader(st.buf.Bytes()))
	if err != nil {
		// image.Decode only knows formats registered via blank import;
		// bmp isn't one of them, so retry explicitly.
		img, err = bmp.Decode(bytes.NewReader(st.buf.Bytes()))
		if err != nil {
			return core.Err, core.NoMutation, fmt.Errorf("image: decode: %w", err)
		}
		format = "bmp"
	}

	c.Vars["image.srcFormat"] = format
	c.Params = img
	return core.Data, core.NoMutation, nil
}

func (d *Decoder) Close(state any, c *core.Cmd) {}

// CropState is Crop's private state (stateless; kept for symmetry).
type CropState struct{}

// Crop extracts c.Vars["image.crop"] (image.Rectangle) from the decoded
// image on c.Params.
type Crop struct{}

func (cr *Crop) Open(c *core.Cmd) (any, error) { return &CropState{}, nil }

func (cr *Crop) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	rect, ok := c.Vars["image.crop"].(image.Rectangle)
	if !ok {
		return core.Data, core.NoMutation, nil
	}
	img, ok := c.Params.(image.Image)
	if !ok {
		return core.Err, core.NoMutation, fmt.Errorf("image: crop: no decoded image on Cmd.Params")
	}
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		c.Params = si.SubImage(rect)
		return core.Data, core.NoMutation, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	c.Params = dst
	return core.Data, core.NoMutation, nil
}

func (cr *Crop) Close(state any, c *core.Cmd) {}

// PixelConverterState is PixelConverter's private state.
type PixelConverterState struct{}

// PixelConverter converts the decoded image to c.Vars["image.pixfmt"].
// It is typically inserted by Encoder's BACK request rather than placed
// in the chain up front, matching the original's "format mismatch during
// encode triggers a converter insertion" contract.
type PixelConverter struct{}

func (p *PixelConverter) Open(c *core.Cmd) (any, error) { return &PixelConverterState{}, nil }

func (p *PixelConverter) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	img, ok := c.Params.(image.Image)
	if !ok {
		return core.Err, core.NoMutation, fmt.Errorf("image: convert: no decoded image on Cmd.Params")
	}
	target, _ := c.Vars["image.pixfmt"].(PixFmt)

	b := img.Bounds()
	switch target {
	case PixGray:
		dst := image.NewGray(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
		c.Params = dst
	case PixNRGBA:
		dst := image.NewNRGBA(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
		c.Params = dst
	default:
		dst := image.NewRGBA(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
		c.Params = dst
	}
	return core.Data, core.NoMutation, nil
}

func (p *PixelConverter) Close(state any, c *core.Cmd) {}

// EncoderState is Encoder's private state.
type EncoderState struct {
	converterInserted bool
}

// Encoder encodes c.Params into c.Vars["image.format"] ("bmp", "png",
// "jpg", "ico"), defaulting to "png" when the var is unset.
type Encoder struct {
	Quality int // JPEG quality, 0-100; default 90
}

func (e *Encoder) Open(c *core.Cmd) (any, error) { return &EncoderState{}, nil }

func (e *Encoder) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*EncoderState)
	img, ok := c.Params.(image.Image)
	if !ok {
		return core.Err, core.NoMutation, fmt.Errorf("image: encode: no decoded image on Cmd.Params")
	}

	format, _ := c.Vars["image.format"].(string)
	if format == "" {
		format = "png"
	}

	if format == "ico" && !st.converterInserted {
		if _, isNRGBA := img.(*image.NRGBA); !isNRGBA {
			st.converterInserted = true
			c.Vars["image.pixfmt"] = PixNRGBA
			return core.Back, core.Mutation{Kind: core.MutInsertBefore, Name: "image.convert"}, nil
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpg", "jpeg":
		q := e.Quality
		if q <= 0 {
			q = 90
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "ico":
		err = encodeICO(&buf, img)
	default:
		return core.Err, core.NoMutation, fmt.Errorf("image: encode: unsupported format %q", format)
	}
	if err != nil {
		return core.SysErr, core.NoMutation, fmt.Errorf("image: encode %s: %w", format, err)
	}

	c.Out = buf.Bytes()
	c.Input.Last = true
	return core.Data, core.NoMutation, nil
}

func (e *Encoder) Close(state any, c *core.Cmd) {}

// encodeICO writes img as a single-image ICO container wrapping a BMP
// payload, matching the original's "ICO directory plus embedded BMP/PNG
// blobs" wire format for the common single-frame case.
func encodeICO(w *bytes.Buffer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width > 256 || height > 256 {
		return fmt.Errorf("image: ico: dimensions %dx%d exceed the 256x256 maximum", width, height)
	}

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, img); err != nil {
		return err
	}
	// Strip the 14-byte BITMAPFILEHEADER: ICO embeds a bare DIB.
	dib := bmpBuf.Bytes()[14:]

	w.WriteByte(0)
	w.WriteByte(0)
	writeLE16(w, 1) // type: icon
	writeLE16(w, 1) // image count

	wB := byte(width)
	if width == 256 {
		wB = 0
	}
	hB := byte(height)
	if height == 256 {
		hB = 0
	}
	w.WriteByte(wB)
	w.WriteByte(hB)
	w.WriteByte(0) // color palette
	w.WriteByte(0) // reserved
	writeLE16(w, 1)  // color planes
	writeLE16(w, 32) // bits per pixel
	writeLE32(w, uint32(len(dib)))
	writeLE32(w, uint32(6+16)) // offset: icondir(6) + one direntry(16)

	w.Write(dib)
	return nil
}

func writeLE16(w *bytes.Buffer, v uint16) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
}

func writeLE32(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}
