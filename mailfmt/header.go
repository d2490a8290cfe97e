package mailfmt

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
)

var headerUnfolder = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

// wordDecoder never fails on an unknown charset: the encoded bytes are
// passed through untouched and fixed up by toValidUTF8 afterwards.
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
		if r, err := charset.Reader(label, input); err == nil {
			return r, nil
		}
		return input, nil
	},
}

// DecodeHeader turns a raw header value carrying RFC 2047 encoded-words
// into plain UTF-8 text. Plain ASCII values are returned unchanged.
func DecodeHeader(value string) string {
	if value == "" {
		return ""
	}
	value = headerUnfolder.Replace(value)

	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		decoded = value
	}
	return toValidUTF8(decoded)
}

func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// decodeCharset converts a body payload to UTF-8. Unknown charsets pass
// the bytes through.
func decodeCharset(label string, payload []byte) string {
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8", "us-ascii":
		return toValidUTF8(string(payload))
	}
	r, err := charset.Reader(label, bytes.NewReader(payload))
	if err != nil {
		return toValidUTF8(string(payload))
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return toValidUTF8(string(payload))
	}
	return toValidUTF8(string(out))
}
