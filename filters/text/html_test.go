package text_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/text"
)

func TestParseAttrFilter(t *testing.T) {
	f, err := text.ParseAttrFilter("A.HREF")
	if err != nil {
		t.Fatalf("ParseAttrFilter: %v", err)
	}
	if f.Tag != "a" || f.Attr != "href" {
		t.Fatalf("got %+v, want lowercased a/href", f)
	}

	if _, err := text.ParseAttrFilter("noattr"); err == nil {
		t.Fatal("expected an error for a spec with no '.'")
	}
}

func TestHTMLAttrExtractor_ExtractsMatchingAttrs(t *testing.T) {
	doc := `<html><body>
<a href="https://one.example">one</a>
<A HREF='https://two.example'/>
<img src="ignored.png">
</body></html>`

	c := core.NewCmd(context.Background(), "html")
	ex := &text.HTMLAttrExtractor{Filters: []text.AttrFilter{{Tag: "a", Attr: "href"}}}
	state, err := ex.Open(c)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	c.In = []byte(doc)
	c.Input.Last = true
	status, _, err := ex.Process(state, c)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != core.Data {
		t.Fatalf("status = %v, want core.Data", status)
	}

	got := strings.TrimSpace(string(c.Out))
	want := "https://one.example\nhttps://two.example"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestHTMLAttrExtractor_NoMatchesProducesEmptyOutput(t *testing.T) {
	c := core.NewCmd(context.Background(), "html")
	ex := &text.HTMLAttrExtractor{Filters: []text.AttrFilter{{Tag: "img", Attr: "alt"}}}
	state, _ := ex.Open(c)

	c.In = []byte(`<a href="x">no img here</a>`)
	c.Input.Last = true
	_, _, err := ex.Process(state, c)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(c.Out) != 0 {
		t.Fatalf("expected no output, got %q", c.Out)
	}
}
