package text

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/gofcom/fcom/core"
)

// AttrFilter names one `tag.attr` pair to extract, e.g. "a.href". Tag and
// Attr matching is case-insensitive, matching the original's "<A
// HREF='u2'/>" scenario.
type AttrFilter struct {
	Tag  string
	Attr string
}

// ParseAttrFilter splits a "tag.attr" spec as accepted by the --filter flag.
func ParseAttrFilter(spec string) (AttrFilter, error) {
	i := strings.IndexByte(spec, '.')
	if i < 0 {
		return AttrFilter{}, fmt.Errorf("text: html filter %q must be tag.attr", spec)
	}
	return AttrFilter{Tag: strings.ToLower(spec[:i]), Attr: strings.ToLower(spec[i+1:])}, nil
}

// HTMLAttrExtractorState is HTMLAttrExtractor's private state.
type HTMLAttrExtractorState struct {
	buf bytes.Buffer
}

// HTMLAttrExtractor is a streaming tokenizer yielding one value per line
// for every matched `<tag attr="…">` occurrence in the document. Like the
// image codecs, golang.org/x/net/html's tokenizer wants the whole
// document, so input is buffered across Process calls and tokenized once
// Cmd.Input.Last is set.
type HTMLAttrExtractor struct {
	Filters []AttrFilter
}

func (h *HTMLAttrExtractor) Open(c *core.Cmd) (any, error) {
	return &HTMLAttrExtractorState{}, nil
}

func (h *HTMLAttrExtractor) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*HTMLAttrExtractorState)
	if len(c.In) > 0 {
		st.buf.Write(c.In)
	}
	if !c.Input.Last {
		return core.More, core.NoMutation, nil
	}

	var out bytes.Buffer
	z := html.NewTokenizer(bytes.NewReader(st.buf.Bytes()))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tag, hasAttr := z.TagName()
		tagName := strings.ToLower(string(tag))
		if !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			attrName := strings.ToLower(string(key))
			for _, f := range h.Filters {
				if f.Tag == tagName && f.Attr == attrName {
					out.Write(val)
					out.WriteByte('\n')
				}
			}
			if !more {
				break
			}
		}
	}

	c.Out = out.Bytes()
	return core.Data, core.NoMutation, nil
}

func (h *HTMLAttrExtractor) Close(state any, c *core.Cmd) {}
