package mailfmt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
)

// Part is one node of a parsed MIME tree. Containers (multipart/*) have
// Children and Index -1; leaves carry the transfer-decoded Payload and
// their position in a depth-first walk over leaves only. Payload is never
// charset converted; Charset records what the part declared.
type Part struct {
	Header      message.Header
	ContentType string
	Params      map[string]string
	Disposition string
	Filename    string
	Charset     string
	Index       int
	Children    []*Part
	Payload     []byte
}

// IsContainer reports whether the part is a multipart node
func (p *Part) IsContainer() bool {
	return strings.HasPrefix(p.ContentType, "multipart/")
}

// IsAttachment reports whether the disposition marks the part as an attachment
func (p *Part) IsAttachment() bool {
	return strings.Contains(p.Disposition, "attachment")
}

// Walk visits p and all of its descendants depth-first, left to right
func (p *Part) Walk(fn func(*Part)) {
	fn(p)
	for _, child := range p.Children {
		child.Walk(fn)
	}
}

// ParseTree parses raw message bytes into a Part tree
func ParseTree(raw []byte) (*Part, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty message")
	}

	br := bufio.NewReader(bytes.NewReader(raw))
	header, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, err
	}

	b := &treeBuilder{}
	root, err := b.build(message.Header{Header: header}, br)
	if err != nil {
		// A broken nested structure is tolerated once something was read
		if b.leaves == 0 {
			return nil, err
		}
	}
	return root, nil
}

type treeBuilder struct {
	leaves int
}

func (b *treeBuilder) build(h message.Header, body io.Reader) (*Part, error) {
	p := newPart(h)

	if p.IsContainer() {
		p.Index = -1
		boundary := p.Params["boundary"]
		if boundary == "" {
			return p, nil
		}
		mr := textproto.NewMultipartReader(body, boundary)
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return p, fmt.Errorf("reading %s part: %w", p.ContentType, err)
			}

			cp, err := b.build(message.Header{Header: child.Header}, child)
			if cp != nil {
				p.Children = append(p.Children, cp)
			}
			if err != nil {
				return p, err
			}
		}
		return p, nil
	}

	p.Index = b.leaves
	b.leaves++

	e, err := message.New(withoutCharset(h), body)
	if e == nil {
		return p, err
	}
	// A corrupt transfer encoding keeps whatever was decoded before the error
	p.Payload, _ = io.ReadAll(e.Body)
	return p, nil
}

// withoutCharset hides the charset parameter so go-message only undoes
// the transfer encoding
func withoutCharset(h message.Header) message.Header {
	mediaType, params, err := h.ContentType()
	if err != nil || params["charset"] == "" {
		return h
	}
	delete(params, "charset")
	hc := message.Header{Header: h.Header.Copy()}
	hc.SetContentType(mediaType, params)
	return hc
}

func newPart(h message.Header) *Part {
	p := &Part{Header: h, Charset: "utf-8"}

	// ParseMediaType still returns the media type when only a parameter is malformed
	mediaType, params, _ := mime.ParseMediaType(h.Get("Content-Type"))
	if mediaType == "" {
		mediaType = "text/plain"
	}
	p.ContentType = strings.ToLower(mediaType)
	p.Params = params
	if cs := params["charset"]; cs != "" {
		p.Charset = strings.ToLower(cs)
	}

	if raw := h.Get("Content-Disposition"); raw != "" {
		disp, dispParams, err := mime.ParseMediaType(raw)
		if err != nil {
			p.Disposition = strings.ToLower(raw)
		} else {
			p.Disposition = disp
			p.Filename = DecodeHeader(dispParams["filename"])
		}
	}
	if p.Filename == "" {
		p.Filename = DecodeHeader(params["name"])
	}
	return p
}
