package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"minimail/config"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// fakeSource serves raw messages from memory
type fakeSource struct {
	mu        sync.Mutex
	raws      map[uint32][]byte
	searchErr error
	fetchErr  error
	extraUIDs []uint32 // returned by search but gone at fetch time
	closed    int
	fetched   [][]uint32
}

func (f *fakeSource) SearchUIDs(folder string) ([]uint32, error) {
	if f.searchErr != nil {
		return nil, &TransportError{Op: "imap search", Err: f.searchErr}
	}
	uids := append([]uint32(nil), f.extraUIDs...)
	for uid := range f.raws {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeSource) FetchRaw(folder string, uids []uint32) (map[uint32][]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, append([]uint32(nil), uids...))
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, &TransportError{Op: "imap fetch", Err: f.fetchErr}
	}
	out := make(map[uint32][]byte)
	for _, uid := range uids {
		if raw, ok := f.raws[uid]; ok {
			out[uid] = raw
		}
	}
	return out, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

// fakeSender records the last transmission
type fakeSender struct {
	from  string
	to    []string
	raw   []byte
	calls int
	err   error
}

func (f *fakeSender) Send(from string, to []string, raw []byte) error {
	f.calls++
	if f.err != nil {
		return &TransportError{Op: "smtp send", Err: f.err}
	}
	f.from, f.to, f.raw = from, to, raw
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.IMAP.Server = "imap.example.com"
	cfg.IMAP.Username = "me@example.com"
	cfg.SMTP.Server = "smtp.example.com"
	cfg.Identity.Email = "me@example.com"
	cfg.Identity.Name = "Me"
	return cfg
}

func newTestMailer(src *fakeSource, sender *fakeSender) *Mailer {
	dial := func() (MailSource, error) { return src, nil }
	return NewMailer(testConfig(), dial, sender)
}

func plainMessage(subject, body string) []byte {
	return []byte(fmt.Sprintf("From: Alice <alice@example.com>\r\nTo: me@example.com\r\nSubject: %s\r\nDate: Mon, 02 Jan 2006 15:04:05 -0700\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", subject, body))
}

func reportMessage() []byte {
	return []byte(strings.ReplaceAll(`From: alice@example.com
Subject: Report
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain

Hi
--b1
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQ=
--b1--
`, "\n", "\r\n"))
}

// newTestApp wires the JSON routes the way the server does
func newTestApp(t *testing.T, mailer *Mailer) *fiber.App {
	t.Helper()
	require.NoError(t, utils.InitI18n())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if appErr, ok := utils.AsAppError(err); ok {
				code = appErr.Code
			} else if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	messages := NewMessageHandler(mailer)
	attachments := NewAttachmentHandler(mailer)
	send := NewSendHandler(mailer)

	app.Get("/api/messages", messages.HandleList)
	app.Get("/api/messages/:uid", messages.HandleGet)
	app.Get("/api/messages/:uid/attachments/:index", attachments.HandleDownload)
	app.Post("/api/send", send.HandleSend)
	app.Get("/api/i18n/:lang", (&I18nHandler{}).GetTranslations)
	return app
}
