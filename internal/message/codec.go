// Package message converts between raw assistant output and the structured
// chat responses the front end renders, including the "Category Mode"
// marker convention used to tag which biography topic a reply belongs to.
package message

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const categoryMarker = "category mode:"

// maxCategoryLength bounds category names so they stay usable as keys.
const maxCategoryLength = 128

var whitespaceRunRe = regexp.MustCompile(`\s+`)

// NormalizeCategory canonicalizes a category name: trimmed, truncated to
// 128 characters, internal whitespace runs collapsed to single
// underscores, lower-cased. Idempotent.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	if utf8.RuneCountInString(c) > maxCategoryLength {
		// Truncate on a rune boundary, not a byte boundary.
		c = string([]rune(c)[:maxCategoryLength])
	}
	c = whitespaceRunRe.ReplaceAllString(c, "_")
	return strings.ToLower(c)
}

// EncodeCategory prefixes body with the category marker line understood by
// the assistant instructions.
func EncodeCategory(category, body string) string {
	return "Category Mode: " + NormalizeCategory(category) + ".\n" + body
}

// DecodeCategory extracts the leading "Category Mode: X." marker from the
// first line of text, if present. It returns the normalized category and
// the remaining content with empty lines removed. Absence of a marker is
// not an error: category is "" and content is the full text.
func DecodeCategory(text string) (category, content string) {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if strings.HasPrefix(strings.ToLower(first), categoryMarker) {
			rest := strings.TrimSpace(first[len(categoryMarker):])
			if dot := strings.Index(rest, "."); dot >= 0 {
				category = rest[:dot]
				trailing := strings.TrimSpace(rest[dot+1:])
				lines = lines[1:]
				if trailing != "" {
					lines = append([]string{trailing}, lines...)
				}
			} else {
				category = rest
				lines = lines[1:]
			}
			category = NormalizeCategory(category)
		}
	}

	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return category, strings.Join(kept, "\n")
}
