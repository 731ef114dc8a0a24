package markdown

import (
	"strings"
	"testing"
)

func TestRenderBasic(t *testing.T) {
	out := Render("**bold** and _italic_")
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("no strong tag: %q", out)
	}
	if !strings.Contains(out, "<em>italic</em>") {
		t.Errorf("no em tag: %q", out)
	}
}

func TestRenderEmpty(t *testing.T) {
	if out := Render(""); out != "" {
		t.Errorf("Render(\"\") = %q", out)
	}
}

func TestRenderExternalLinksOpenInNewTab(t *testing.T) {
	out := Render("[site](https://example.com)")
	if !strings.Contains(out, `target="_blank"`) || !strings.Contains(out, `rel="noopener noreferrer"`) {
		t.Errorf("external link not processed: %q", out)
	}
}

func TestRenderLinesUnwrapsParagraphs(t *testing.T) {
	out := RenderLines("First line.\n\nSecond **line**.")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	if strings.Contains(out, "<p>") {
		t.Errorf("paragraph wrapper survived: %q", out)
	}
	if !strings.Contains(lines[1], "<strong>line</strong>") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestRenderLinesDropsEmptyLines(t *testing.T) {
	out := RenderLines("\n\n  \nOnly one.\n\n")
	if out != "Only one." {
		t.Errorf("out = %q", out)
	}
}
