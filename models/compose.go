package models

// ComposeRequest holds the fields of an outgoing message
type ComposeRequest struct {
	From        string               `json:"-"`
	FromName    string               `json:"-"`
	To          string               `json:"to"`
	Subject     string               `json:"subject"`
	Body        string               `json:"body"`
	Attachments []OutgoingAttachment `json:"attachments"`
}

// OutgoingAttachment is a file to attach to an outgoing message.
// Content is base64 in JSON.
type OutgoingAttachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// ComposedMessage is a fully encoded message ready for SMTP
type ComposedMessage struct {
	MessageID  string   `json:"message_id"`
	Recipients []string `json:"recipients"`
	Raw        []byte   `json:"-"`
}
