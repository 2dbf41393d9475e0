// Package htmltext converts HTML fragments into whitespace-normalized plain text.
package htmltext

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"NewsDigest/internal/domain"
)

// blockTag matches tags whose boundaries separate words visually.
var blockTag = regexp.MustCompile(`(?i)</?(p|div|br|hr|li|ul|ol|h[1-6]|tr|td|th|table|section|article|blockquote|figure|figcaption|header|footer|main|aside|pre)\b[^>]*>`)

// strict drops every tag and skips script/style/noscript/iframe bodies.
var strict = bluemonday.StrictPolicy()

// FromHTML strips markup and returns normalized text. Plain text input is
// returned normalized.
func FromHTML(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	spaced := blockTag.ReplaceAllStringFunc(markup, func(tag string) string {
		return " " + tag + " "
	})
	text := strict.Sanitize(spaced)
	return domain.NormalizeWhitespace(html.UnescapeString(text))
}
