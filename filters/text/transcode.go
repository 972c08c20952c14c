// Package text provides the codepage transcoder, HTML attribute
// extractor, and line/byte statistics filters. The transcoder's BOM
// sniffing follows the original's utf8.c state machine (I_IN -> I_READ
// -> I_PROC -> I_WRITE), generalized to route through x/text/encoding
// codepages instead of a hand-written conversion table.
package text

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/gofcom/fcom/core"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// sniffState names where in the BOM-detection state machine the
// transcoder currently is, mirroring utf8.c's I_IN/I_READ/I_PROC states.
type sniffState int

const (
	sniffIn sniffState = iota
	sniffProc
)

// TranscodeState is Transcoder's private state.
type TranscodeState struct {
	state   sniffState
	pending bytes.Buffer
	srcEnc  encoding.Encoding // nil once resolved to "already UTF-8"
}

// Transcoder converts input text to UTF-8, sniffing a BOM first and
// otherwise falling back to Codepage (e.g. "windows-1251"). If the input
// is already valid UTF-8 with no BOM, bytes pass through unchanged.
type Transcoder struct {
	Codepage string // fallback codepage name when no BOM is present
}

func (t *Transcoder) Open(c *core.Cmd) (any, error) {
	return &TranscodeState{state: sniffIn}, nil
}

func (t *Transcoder) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*TranscodeState)

	if st.state == sniffIn {
		st.pending.Write(c.In)
		if st.pending.Len() < 3 && !c.Input.Last {
			return core.More, core.NoMutation, nil
		}
		buf := st.pending.Bytes()
		switch {
		case bytes.HasPrefix(buf, bomUTF8):
			st.pending.Next(len(bomUTF8))
		case bytes.HasPrefix(buf, bomUTF16LE):
			st.pending.Next(len(bomUTF16LE))
			st.srcEnc = unicodeUTF16LE{}
		case bytes.HasPrefix(buf, bomUTF16BE):
			st.pending.Next(len(bomUTF16BE))
			st.srcEnc = unicodeUTF16BE{}
		default:
			if !utf8.Valid(buf) {
				enc, err := codepageByName(t.Codepage)
				if err != nil {
					return core.Err, core.NoMutation, err
				}
				st.srcEnc = enc
			}
		}
		st.state = sniffProc
	} else if len(c.In) > 0 {
		st.pending.Write(c.In)
	}

	chunk := st.pending.Bytes()
	st.pending.Reset()

	if st.srcEnc == nil {
		c.Out = chunk
	} else {
		out, _, err := transform.Bytes(st.srcEnc.NewDecoder(), chunk)
		if err != nil {
			return core.Err, core.NoMutation, fmt.Errorf("text: transcode: %w", err)
		}
		c.Out = out
	}

	return core.Data, core.NoMutation, nil
}

func (t *Transcoder) Close(state any, c *core.Cmd) {}

func codepageByName(name string) (encoding.Encoding, error) {
	switch name {
	case "", "windows-1252":
		return charmap.Windows1252, nil
	case "windows-1251":
		return charmap.Windows1251, nil
	case "koi8-r":
		return charmap.KOI8R, nil
	case "iso-8859-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("text: unknown codepage %q", name)
	}
}

// unicodeUTF16LE/BE wrap x/text/encoding/unicode's UTF-16 decoder with
// BOM handling turned off (unicode.IgnoreBOM), since the BOM has already
// been stripped by the time these are used.
type unicodeUTF16LE struct{}

func (unicodeUTF16LE) NewDecoder() *encoding.Decoder {
	return utf16Decoder(false)
}
func (unicodeUTF16LE) NewEncoder() *encoding.Encoder { return nil }

type unicodeUTF16BE struct{}

func (unicodeUTF16BE) NewDecoder() *encoding.Decoder {
	return utf16Decoder(true)
}
func (unicodeUTF16BE) NewEncoder() *encoding.Encoder { return nil }

// utf16Decoder builds a BOM-agnostic UTF-16 decoder for the given
// endianness; the caller has already consumed the BOM itself.
func utf16Decoder(bigEndian bool) *encoding.Decoder {
	endian := unicode.LittleEndian
	if bigEndian {
		endian = unicode.BigEndian
	}
	return unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()
}
