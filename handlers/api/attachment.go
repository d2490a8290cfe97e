package api

import (
	"strconv"

	"minimail/models"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
)

// AttachmentHandler handles attachment-related requests
type AttachmentHandler struct {
	mailer *Mailer
}

// NewAttachmentHandler creates a new attachment handler
func NewAttachmentHandler(mailer *Mailer) *AttachmentHandler {
	return &AttachmentHandler{mailer: mailer}
}

// HandleDownload serves an attachment for download
func (h *AttachmentHandler) HandleDownload(c *fiber.Ctx) error {
	att, err := h.Fetch(c)
	if err != nil {
		return err
	}
	return SendAttachment(c, att)
}

// Fetch loads the attachment named by the :uid and :index route params
func (h *AttachmentHandler) Fetch(c *fiber.Ctx) (*models.AttachmentContent, error) {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return nil, utils.BadRequestError("Attachment index must be a non-negative integer", err)
	}

	att, err := h.mailer.GetAttachment(c.Params("uid"), index)
	if err != nil {
		return nil, ToAppError(c, err)
	}
	return att, nil
}

// SendAttachment writes the attachment bytes as a download
func SendAttachment(c *fiber.Ctx, att *models.AttachmentContent) error {
	c.Attachment(att.Filename)
	if att.ContentType != "" {
		c.Set(fiber.HeaderContentType, att.ContentType)
	}
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	return c.Send(att.Data)
}
