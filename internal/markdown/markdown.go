package markdown

import (
	"bytes"
	"regexp"
	"strings"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var md goldmark.Markdown

func init() {
	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // tables, strikethrough, autolinks, task lists
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
}

// Render converts markdown content to HTML with GFM extensions, syntax
// highlighting and target="_blank" on external links.
func Render(content string) string {
	if content == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// On error, return empty — frontend falls back to plain text
		return ""
	}
	return processExternalLinks(buf.String())
}

// RenderLines renders message body text line by line and joins the
// non-empty results. Assistant replies arrive as loose paragraphs; per-line
// rendering keeps each one an independent fragment for the front end.
func RenderLines(content string) string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rendered := strings.TrimSpace(unwrapParagraph(Render(line)))
		if rendered != "" {
			out = append(out, rendered)
		}
	}
	return strings.Join(out, "\n")
}

var paragraphRe = regexp.MustCompile(`(?s)^<p>(.*)</p>\s*$`)

// unwrapParagraph strips a single wrapping <p> element so one source line
// does not become one paragraph per line in the joined output.
func unwrapParagraph(s string) string {
	if m := paragraphRe.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return m[1]
	}
	return s
}

// processExternalLinks adds target="_blank" rel="noopener noreferrer" to external links.
var linkRe = regexp.MustCompile(`<a href="(https?://[^"]*)"`)

func processExternalLinks(s string) string {
	return linkRe.ReplaceAllStringFunc(s, func(match string) string {
		return match + ` target="_blank" rel="noopener noreferrer"`
	})
}
