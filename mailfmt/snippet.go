package mailfmt

import (
	"strings"
	"unicode/utf8"

	"minimail/models"
)

// SnippetLength is the maximum number of characters kept in a snippet
const SnippetLength = 200

// Ellipsis is appended to truncated snippets
const Ellipsis = "…"

// Summarize returns the single-line list preview of a message
func Summarize(msg *models.NormalizedMessage) string {
	if msg == nil {
		return ""
	}
	text := msg.TextBody
	if strings.TrimSpace(text) == "" && msg.HTMLBody != "" {
		text = HTMLToText(msg.HTMLBody)
	}
	return Snippet(text)
}

// Snippet collapses whitespace (line breaks included) to single spaces
// and truncates to SnippetLength characters.
func Snippet(text string) string {
	text = strings.Join(strings.Fields(toValidUTF8(text)), " ")
	if utf8.RuneCountInString(text) <= SnippetLength {
		return text
	}

	runes := []rune(text)
	return string(runes[:SnippetLength]) + Ellipsis
}
