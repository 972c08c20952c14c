package ops

import (
	"fmt"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/fsio"
	"github.com/gofcom/fcom/filters/text"
	"github.com/gofcom/fcom/registry"
)

// TextParams carries per-invocation knobs for the text module: the
// fallback codepage for utf8 transcoding, and the tag.attr filters for
// html extraction.
type TextParams struct {
	Codepage    string
	HTMLFilters []string // "tag.attr" specs, parsed by ParseAttrFilter
}

// TextModule builds the "text" module: utf8, html, stats.
func TextModule() (*registry.Module, error) {
	m := registry.NewModule("text")

	m.Add("utf8", &core.PipelineTemplate{
		Name: "utf8",
		Help: "transcodes a file to UTF-8, sniffing a BOM or falling back to a codepage",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			codepage := ""
			if tp, ok := c.Params.(TextParams); ok {
				codepage = tp.Codepage
			}
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("text.transcode", &text.Transcoder{Codepage: codepage})
			p.Append("fsio.write", &fsio.FileWriter{})
			return p, nil
		},
	})

	m.Add("html", &core.PipelineTemplate{
		Name: "html",
		Help: "extracts attribute values matching tag.attr filters from an HTML file",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			tp, ok := c.Params.(TextParams)
			if !ok || len(tp.HTMLFilters) == 0 {
				return nil, fmt.Errorf("ops: html: no tag.attr filters given")
			}
			filters := make([]text.AttrFilter, 0, len(tp.HTMLFilters))
			for _, spec := range tp.HTMLFilters {
				af, err := text.ParseAttrFilter(spec)
				if err != nil {
					return nil, err
				}
				filters = append(filters, af)
			}
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("text.html", &text.HTMLAttrExtractor{Filters: filters})
			p.Append("fsio.stream", &fsio.StreamWriter{})
			return p, nil
		},
	})

	m.Add("stats", &core.PipelineTemplate{
		Name: "stats",
		Help: "prints byte/line/longest-line statistics for a file",
		Build: func(c *core.Cmd) (*core.Pipeline, error) {
			p := core.NewPipeline(c)
			p.Append("fsio.read", &fsio.FileReader{})
			p.Append("text.stats", &text.Stats{})
			p.Append("fsio.stream", &fsio.StreamWriter{})
			return p, nil
		},
	})

	return m, nil
}
