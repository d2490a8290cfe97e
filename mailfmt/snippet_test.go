package mailfmt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"minimail/models"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "short", in: "Hello there", want: "Hello there"},
		{name: "line breaks", in: "first line\r\nsecond\n\n\tthird", want: "first line second third"},
		{name: "surrounding space", in: "   padded   ", want: "padded"},
		{name: "exact length", in: strings.Repeat("a", SnippetLength), want: strings.Repeat("a", SnippetLength)},
		{name: "truncated", in: strings.Repeat("a", 300), want: strings.Repeat("a", SnippetLength) + Ellipsis},
		{name: "multibyte", in: strings.Repeat("é", 250), want: strings.Repeat("é", SnippetLength) + Ellipsis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Snippet(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\n")
			assert.LessOrEqual(t, utf8.RuneCountInString(got), SnippetLength+1)
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		msg  *models.NormalizedMessage
		want string
	}{
		{name: "nil", msg: nil, want: ""},
		{
			name: "text body",
			msg:  &models.NormalizedMessage{TextBody: "Hi\nthere", HTMLBody: "<p>ignored</p>"},
			want: "Hi there",
		},
		{
			name: "html fallback",
			msg:  &models.NormalizedMessage{HTMLBody: "<p>Only</p><p>markup</p>"},
			want: "Only markup",
		},
		{name: "no body", msg: &models.NormalizedMessage{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.msg))
		})
	}
}
