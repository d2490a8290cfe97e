package web

import (
	"minimail/handlers/api"

	"github.com/gofiber/fiber/v2"
)

// AttachmentWebHandler serves attachment downloads linked from the message view
type AttachmentWebHandler struct {
	attachments *api.AttachmentHandler
}

func NewAttachmentWebHandler(mailer *api.Mailer) *AttachmentWebHandler {
	return &AttachmentWebHandler{attachments: api.NewAttachmentHandler(mailer)}
}

// HandleDownload sends the attachment. Errors render the error page.
func (h *AttachmentWebHandler) HandleDownload(c *fiber.Ctx) error {
	att, err := h.attachments.Fetch(c)
	if err != nil {
		return err
	}
	return api.SendAttachment(c, att)
}
