package mailfmt

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"minimail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func base64Lines(data []byte) string {
	enc := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteString("\n")
	return b.String()
}

const plainHello = `From: Alice <alice@example.com>
To: bob@example.com
Subject: Greetings
Date: Mon, 02 Jan 2006 15:04:05 -0700
Content-Type: text/plain; charset=utf-8

Hello
`

func reportMessage() []byte {
	pdf := bytes.Repeat([]byte{0x25}, 1024)
	return crlf(`From: alice@example.com
To: bob@example.com
Subject: Report
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Hi
--b1
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

` + base64Lines(pdf) + `--b1--
`)
}

func TestNormalizeSinglePartPlain(t *testing.T) {
	msg, err := Normalize("42", crlf(plainHello))
	require.NoError(t, err)

	assert.Equal(t, "42", msg.UID)
	assert.Equal(t, "Alice <alice@example.com>", msg.From)
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "", msg.Cc)
	assert.Equal(t, "Greetings", msg.Subject)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 -0700", msg.Date)
	assert.Equal(t, "Hello", msg.TextBody)
	assert.Equal(t, `<pre class="whitespace-pre-wrap">Hello</pre>`, msg.HTMLBody)
	assert.NotNil(t, msg.Attachments)
	assert.Empty(t, msg.Attachments)
}

func TestNormalizeAttachmentScenario(t *testing.T) {
	msg, err := Normalize("7", reportMessage())
	require.NoError(t, err)

	assert.Equal(t, "Hi", msg.TextBody)
	assert.Contains(t, msg.HTMLBody, "Hi")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, models.AttachmentRef{
		Index:       1,
		Filename:    "report.pdf",
		Size:        1024,
		ContentType: "application/pdf",
	}, msg.Attachments[0])
	assert.True(t, msg.HasAttachments())
}

func TestNormalizeAttachmentIndexStable(t *testing.T) {
	raw := reportMessage()

	first, err := Normalize("1", raw)
	require.NoError(t, err)
	second, err := Normalize("1", raw)
	require.NoError(t, err)

	assert.Equal(t, first.Attachments, second.Attachments)
}

func TestNormalizeNestedMultipart(t *testing.T) {
	raw := crlf(`From: alice@example.com
Subject: Nested
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

plain version
--inner
Content-Type: text/html; charset=utf-8

<p>html version</p>
--inner--
--outer
Content-Type: image/png; name="dot.png"
Content-Transfer-Encoding: base64

iVBORw0KGgo=
--outer
Content-Type: application/octet-stream
Content-Disposition: attachment

AAAA
--outer--
`)

	msg, err := Normalize("3", raw)
	require.NoError(t, err)

	assert.Equal(t, "plain version", msg.TextBody)
	assert.Equal(t, "<p>html version</p>", strings.TrimSpace(msg.HTMLBody))
	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, 2, msg.Attachments[0].Index)
	assert.Equal(t, "dot.png", msg.Attachments[0].Filename)
	assert.Equal(t, int64(8), msg.Attachments[0].Size)
	assert.Equal(t, 3, msg.Attachments[1].Index)
	assert.Equal(t, "attachment-3.bin", msg.Attachments[1].Filename)
}

func TestNormalizeHTMLOnly(t *testing.T) {
	raw := crlf(`From: news@example.com
Subject: =?UTF-8?B?R3LDvMOfZQ==?=
Content-Type: text/html; charset=utf-8

<html><body><p>Hello</p><p>World &amp; co</p></body></html>
`)

	msg, err := Normalize("9", raw)
	require.NoError(t, err)

	assert.Equal(t, "Grüße", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "<p>Hello</p>")
	assert.Equal(t, "Hello\nWorld & co", msg.TextBody)
}

func TestNormalizeAttachedTextIsNotBody(t *testing.T) {
	raw := crlf(`From: alice@example.com
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

not the body
--b
Content-Type: text/html

<b>the body</b>
--b--
`)

	msg, err := Normalize("5", raw)
	require.NoError(t, err)

	assert.Equal(t, "the body", msg.TextBody)
	assert.Contains(t, msg.HTMLBody, "<b>the body</b>")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, 0, msg.Attachments[0].Index)
	assert.Equal(t, "notes.txt", msg.Attachments[0].Filename)
	assert.Equal(t, NoSubject, msg.Subject)
}

func TestNormalizeBodyFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "plain only",
			raw:  "Content-Type: text/plain\n\nonly text\n",
		},
		{
			name: "html only",
			raw:  "Content-Type: text/html\n\n<div>only html</div>\n",
		},
		{
			name: "no content type",
			raw:  "Subject: bare\n\nimplicit text\n",
		},
		{
			name: "multipart plain only",
			raw:  "Content-Type: multipart/mixed; boundary=x\n\n--x\nContent-Type: text/plain\n\nbody\n--x--\n",
		},
		{
			name: "multipart html only",
			raw:  "Content-Type: multipart/alternative; boundary=x\n\n--x\nContent-Type: text/html\n\n<i>body</i>\n--x--\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Normalize("1", crlf(tt.raw))
			require.NoError(t, err)
			assert.NotEmpty(t, msg.TextBody)
			assert.NotEmpty(t, msg.HTMLBody)
		})
	}
}

func TestNormalizeEmptyTextStillDerivesHTML(t *testing.T) {
	msg, err := Normalize("1", crlf("Content-Type: text/plain\n\n\n"))
	require.NoError(t, err)

	assert.Equal(t, "", msg.TextBody)
	assert.Equal(t, `<pre class="whitespace-pre-wrap"></pre>`, msg.HTMLBody)
}

func TestNormalizeEscapesDerivedHTML(t *testing.T) {
	msg, err := Normalize("1", crlf("Content-Type: text/plain\n\n<script>alert(1)</script> & more\n"))
	require.NoError(t, err)

	assert.Equal(t, `<pre class="whitespace-pre-wrap">&lt;script&gt;alert(1)&lt;/script&gt; &amp; more</pre>`, msg.HTMLBody)
}

func TestNormalizeCharsets(t *testing.T) {
	t.Run("latin1 body", func(t *testing.T) {
		raw := append(crlf("Content-Type: text/plain; charset=iso-8859-1\n\n"), []byte("caf\xe9\r\n")...)
		msg, err := Normalize("1", raw)
		require.NoError(t, err)
		assert.Equal(t, "café", msg.TextBody)
	})

	t.Run("unknown body charset", func(t *testing.T) {
		raw := append(crlf("Content-Type: text/plain; charset=x-no-such-charset\n\n"), []byte("caf\xe9\r\n")...)
		msg, err := Normalize("1", raw)
		require.NoError(t, err)
		assert.Equal(t, "caf�", msg.TextBody)
	})

	t.Run("unknown header charset", func(t *testing.T) {
		raw := crlf("Subject: =?x-no-such-charset?Q?plain?=\nContent-Type: text/plain\n\nbody\n")
		msg, err := Normalize("1", raw)
		require.NoError(t, err)
		assert.Equal(t, "plain", msg.Subject)
	})

	t.Run("encoded from and cc", func(t *testing.T) {
		raw := crlf("From: =?ISO-8859-1?Q?Andr=E9?= <andre@example.com>\nCc: =?UTF-8?Q?J=C3=BCrgen?= <j@example.com>\n\nbody\n")
		msg, err := Normalize("1", raw)
		require.NoError(t, err)
		assert.Equal(t, "André <andre@example.com>", msg.From)
		assert.Equal(t, "Jürgen <j@example.com>", msg.Cc)
	})
}

func TestNormalizeParseError(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "nil", raw: nil},
		{name: "blank", raw: []byte("\r\n\r\n")},
		{name: "malformed header", raw: crlf("this is not a header line\n\nbody\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Normalize("13", tt.raw)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.True(t, errors.Is(err, ErrParse))

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "13", perr.UID)
		})
	}
}

func TestExtractAttachment(t *testing.T) {
	raw := reportMessage()

	att, err := ExtractAttachment(raw, 1)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, bytes.Repeat([]byte{0x25}, 1024), att.Data)

	// index 0 is the body, not an attachment
	_, err = ExtractAttachment(raw, 0)
	assert.True(t, errors.Is(err, ErrAttachmentNotFound))

	_, err = ExtractAttachment(raw, 5)
	assert.True(t, errors.Is(err, ErrAttachmentNotFound))

	_, err = ExtractAttachment(nil, 0)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestExtractAttachmentKeepsDeclaredCharsetBytes(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: latin
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

caf=E9
--b
Content-Type: text/plain; charset=iso-8859-1
Content-Disposition: attachment; filename="latin.txt"
Content-Transfer-Encoding: base64

6ejp
--b--
`)

	msg, err := Normalize("1", raw)
	require.NoError(t, err)
	assert.Equal(t, "café", msg.TextBody)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "latin.txt", msg.Attachments[0].Filename)
	assert.Equal(t, int64(3), msg.Attachments[0].Size)

	att, err := ExtractAttachment(raw, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe9, 0xe8, 0xe9}, att.Data)
	assert.Equal(t, "text/plain", att.ContentType)
}

func TestNormalizeListsForwardedMessage(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: Fwd: hello
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain

see below
--b
Content-Type: message/rfc822

From: b@example.com
Subject: hello

original text
--b--
`)

	msg, err := Normalize("2", raw)
	require.NoError(t, err)
	assert.Equal(t, "see below", msg.TextBody)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, 1, msg.Attachments[0].Index)
	assert.Equal(t, "attachment-1.eml", msg.Attachments[0].Filename)
	assert.Equal(t, "message/rfc822", msg.Attachments[0].ContentType)

	att, err := ExtractAttachment(raw, 1)
	require.NoError(t, err)
	assert.Contains(t, string(att.Data), "Subject: hello")
	assert.Contains(t, string(att.Data), "original text")
}

func TestParseTreeIndexesLeavesOnly(t *testing.T) {
	root, err := ParseTree(reportMessage())
	require.NoError(t, err)

	assert.True(t, root.IsContainer())
	assert.Equal(t, -1, root.Index)
	require.Len(t, root.Children, 2)
	assert.Equal(t, 0, root.Children[0].Index)
	assert.Equal(t, "text/plain", root.Children[0].ContentType)
	assert.Equal(t, "utf-8", root.Children[0].Charset)
	assert.Equal(t, 1, root.Children[1].Index)
	assert.True(t, root.Children[1].IsAttachment())
}
