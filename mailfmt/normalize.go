package mailfmt

import (
	"fmt"
	"html"
	"strings"

	"minimail/models"
)

// NoSubject replaces an empty or missing subject
const NoSubject = "(no subject)"

// Normalize parses raw message bytes into a NormalizedMessage. The uid is
// copied as-is. Only unreadable input fails; missing headers, bodies and
// unknown charsets degrade to defaults.
func Normalize(uid string, raw []byte) (*models.NormalizedMessage, error) {
	root, err := ParseTree(raw)
	if err != nil {
		return nil, &ParseError{UID: uid, Err: err}
	}
	header := root.Header

	msg := &models.NormalizedMessage{
		UID:         uid,
		From:        DecodeHeader(header.Get("From")),
		To:          DecodeHeader(header.Get("To")),
		Cc:          DecodeHeader(header.Get("Cc")),
		Subject:     DecodeHeader(header.Get("Subject")),
		Date:        DecodeHeader(header.Get("Date")),
		Attachments: []models.AttachmentRef{},
	}
	if strings.TrimSpace(msg.Subject) == "" {
		msg.Subject = NoSubject
	}

	body := selectBodies(root)
	msg.Attachments = collectAttachments(root, body)

	switch {
	case body.text != nil && body.html != nil:
		msg.TextBody = partText(body.text)
		msg.HTMLBody = partHTML(body.html)
	case body.text != nil:
		msg.TextBody = partText(body.text)
		msg.HTMLBody = TextToHTML(msg.TextBody)
	case body.html != nil:
		msg.HTMLBody = partHTML(body.html)
		msg.TextBody = HTMLToText(msg.HTMLBody)
	}
	return msg, nil
}

// ExtractAttachment returns the attachment Normalize reports at index
func ExtractAttachment(raw []byte, index int) (*models.AttachmentContent, error) {
	root, err := ParseTree(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	body := selectBodies(root)
	var found *Part
	root.Walk(func(p *Part) {
		if found == nil && p.Index == index && isAttachmentPart(p, body) {
			found = p
		}
	})
	if found == nil {
		return nil, fmt.Errorf("index %d: %w", index, ErrAttachmentNotFound)
	}
	return &models.AttachmentContent{
		AttachmentRef: attachmentRef(found),
		Data:          found.Payload,
	}, nil
}

// TextToHTML wraps plain text in a preformatted block with HTML escaped
func TextToHTML(text string) string {
	return `<pre class="whitespace-pre-wrap">` + html.EscapeString(text) + `</pre>`
}

type bodyParts struct {
	text *Part
	html *Part
}

func selectBodies(root *Part) bodyParts {
	var b bodyParts
	root.Walk(func(p *Part) {
		if p.IsContainer() || p.IsAttachment() {
			return
		}
		switch p.ContentType {
		case "text/plain":
			if b.text == nil {
				b.text = p
			}
		case "text/html":
			if b.html == nil {
				b.html = p
			}
		}
	})
	return b
}

func isAttachmentPart(p *Part, body bodyParts) bool {
	if p.IsContainer() || p == body.text || p == body.html {
		return false
	}
	return p.IsAttachment() || p.Filename != "" || p.ContentType == "message/rfc822"
}

func collectAttachments(root *Part, body bodyParts) []models.AttachmentRef {
	refs := []models.AttachmentRef{}
	root.Walk(func(p *Part) {
		if isAttachmentPart(p, body) {
			refs = append(refs, attachmentRef(p))
		}
	})
	return refs
}

func attachmentRef(p *Part) models.AttachmentRef {
	name := p.Filename
	if name == "" {
		ext := ".bin"
		if p.ContentType == "message/rfc822" {
			ext = ".eml"
		}
		name = fmt.Sprintf("attachment-%d%s", p.Index, ext)
	}
	return models.AttachmentRef{
		Index:       p.Index,
		Filename:    name,
		Size:        int64(len(p.Payload)),
		ContentType: p.ContentType,
	}
}

func partText(p *Part) string {
	text := strings.ReplaceAll(decodeCharset(p.Charset, p.Payload), "\r\n", "\n")
	return strings.TrimSpace(text)
}

func partHTML(p *Part) string {
	return decodeCharset(p.Charset, p.Payload)
}
