package text_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gofcom/fcom/core"
	"github.com/gofcom/fcom/filters/text"
)

func runStats(t *testing.T, name string, chunks []string) string {
	t.Helper()
	c := core.NewCmd(context.Background(), "stats")
	c.Input.Name = name

	s := &text.Stats{}
	state, err := s.Open(c)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var status core.Status
	for i, chunk := range chunks {
		c.In = []byte(chunk)
		c.Input.Last = i == len(chunks)-1
		status, _, err = s.Process(state, c)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if status != core.Data {
		t.Fatalf("final Process status = %v, want core.Data", status)
	}
	return string(c.Out)
}

func TestStats_CountsLinesAndLongest(t *testing.T) {
	out := runStats(t, "f.txt", []string{"abc\n", "de\nfghij\n"})
	if !strings.Contains(out, "3 lines") {
		t.Fatalf("expected 3 lines, got %q", out)
	}
	if !strings.Contains(out, "longest 5") {
		t.Fatalf("expected longest 5, got %q", out)
	}
}

func TestStats_NoTrailingNewlineCountsAsOneLine(t *testing.T) {
	out := runStats(t, "f.txt", []string{"no newline here"})
	if !strings.Contains(out, "1 lines") {
		t.Fatalf("expected 1 lines for a file with no trailing newline, got %q", out)
	}
	if !strings.Contains(out, "longest 15") {
		t.Fatalf("expected longest = file size when there is no newline, got %q", out)
	}
}

func TestStats_EmptyFileCountsZeroLines(t *testing.T) {
	out := runStats(t, "empty.txt", []string{""})
	if !strings.Contains(out, "0 bytes, 0 lines") {
		t.Fatalf("expected 0 bytes, 0 lines for an empty file, got %q", out)
	}
}
