package mailfmt

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"minimail/models"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// DefaultAttachmentType is used when the file extension is unknown
const DefaultAttachmentType = "application/octet-stream"

var newlineToBreak = strings.NewReplacer("\r\n", "<br>", "\n", "<br>")

// commonTypes covers extensions missing from hosts without a mime.types file
var commonTypes = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Compose builds an outgoing message: a plain text part with an HTML
// alternative, followed by one base64 part per attachment. Only the
// recipient and the configured sender are required.
func Compose(req models.ComposeRequest) (*models.ComposedMessage, error) {
	return compose(req, time.Now())
}

func compose(req models.ComposeRequest, now time.Time) (*models.ComposedMessage, error) {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return nil, &ValidationError{Field: "to", Message: "recipient is required"}
	}
	from := strings.TrimSpace(req.From)
	if from == "" {
		return nil, &ValidationError{Field: "from", Message: "sender address is not configured"}
	}

	messageID := uuid.NewString() + "@" + SenderDomain(from)

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Name: req.FromName, Address: from}})
	h.Set("To", to)
	h.SetSubject(req.Subject)
	h.SetMessageID(messageID)
	h.Set("MIME-Version", "1.0")

	var attachments []models.OutgoingAttachment
	for _, att := range req.Attachments {
		if strings.TrimSpace(att.Filename) != "" {
			attachments = append(attachments, att)
		}
	}

	var buf bytes.Buffer
	if len(attachments) == 0 {
		iw, err := mail.CreateInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("creating message writer: %w", err)
		}
		if err := writeAlternative(iw, req.Body); err != nil {
			return nil, err
		}
	} else {
		mw, err := mail.CreateWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("creating message writer: %w", err)
		}
		iw, err := mw.CreateInline()
		if err != nil {
			return nil, fmt.Errorf("creating body part: %w", err)
		}
		if err := writeAlternative(iw, req.Body); err != nil {
			return nil, err
		}
		for _, att := range attachments {
			if err := writeAttachment(mw, att); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("closing message: %w", err)
		}
	}

	return &models.ComposedMessage{
		MessageID:  "<" + messageID + ">",
		Recipients: parseRecipients(to),
		Raw:        buf.Bytes(),
	}, nil
}

// BodyToHTML renders a plain body as the HTML alternative part
func BodyToHTML(body string) string {
	return "<html>\n  <body>\n    <div>" + newlineToBreak.Replace(body) + "</div>\n  </body>\n</html>\n"
}

// AttachmentType picks a media type from the filename extension
func AttachmentType(filename string) (string, map[string]string) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return DefaultAttachmentType, nil
	}
	if mediaType, params, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil && mediaType != "" {
		return mediaType, params
	}
	if mediaType, ok := commonTypes[ext]; ok {
		return mediaType, nil
	}
	return DefaultAttachmentType, nil
}

func writeAlternative(iw *mail.InlineWriter, body string) error {
	if err := writeInline(iw, "text/plain", body); err != nil {
		return err
	}
	if err := writeInline(iw, "text/html", BodyToHTML(body)); err != nil {
		return err
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing body parts: %w", err)
	}
	return nil
}

func writeInline(iw *mail.InlineWriter, contentType, content string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	w, err := iw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		w.Close()
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return w.Close()
}

func writeAttachment(mw *mail.Writer, att models.OutgoingAttachment) error {
	name := filepath.Base(strings.TrimSpace(att.Filename))
	mediaType, params := AttachmentType(name)

	var h mail.AttachmentHeader
	h.SetContentType(mediaType, params)
	if isPlainFilename(name) {
		h.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	} else {
		h.SetFilename(name)
	}
	h.Set("Content-Transfer-Encoding", "base64")

	w, err := mw.CreateAttachment(h)
	if err != nil {
		return fmt.Errorf("creating attachment %s: %w", name, err)
	}
	if _, err := w.Write(att.Content); err != nil {
		w.Close()
		return fmt.Errorf("writing attachment %s: %w", name, err)
	}
	return w.Close()
}

// isPlainFilename reports whether name fits a quoted-string as is
func isPlainFilename(name string) bool {
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return false
		}
	}
	return true
}

// SenderDomain returns the part after the last @, or "localhost"
func SenderDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.Trim(from[i+1:], "<> ")
	}
	return "localhost"
}

func parseRecipients(to string) []string {
	addrs, err := mail.ParseAddressList(to)
	if err == nil {
		recipients := make([]string, 0, len(addrs))
		for _, addr := range addrs {
			recipients = append(recipients, addr.Address)
		}
		return recipients
	}

	// Fallback to a plain comma split
	var recipients []string
	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return recipients
}
