package models

// NormalizedMessage is the canonical view of one raw message
type NormalizedMessage struct {
	UID         string          `json:"uid"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Cc          string          `json:"cc"`
	Subject     string          `json:"subject"`
	Date        string          `json:"date"`
	TextBody    string          `json:"text"`
	HTMLBody    string          `json:"html"`
	Attachments []AttachmentRef `json:"attachments"`
}

// HasAttachments reports whether the message carries any attachment
func (m *NormalizedMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// AttachmentRef points at one attachment part by its walk index
type AttachmentRef struct {
	Index       int    `json:"index"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// AttachmentContent is an attachment together with its decoded payload
type AttachmentContent struct {
	AttachmentRef
	Data []byte `json:"-"` // Excluded from JSON
}

// MessageSummary is one row of the inbox listing
type MessageSummary struct {
	UID            string `json:"uid"`
	From           string `json:"from"`
	Subject        string `json:"subject"`
	Date           string `json:"date"`
	Snippet        string `json:"snippet"`
	HasAttachments bool   `json:"has_attachments"`

	// Failed marks a row whose fetch or parse failed
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}
