package api

import (
	"minimail/models"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
)

// SendHandler handles email sending
type SendHandler struct {
	mailer *Mailer
}

// NewSendHandler creates a new send handler
func NewSendHandler(mailer *Mailer) *SendHandler {
	return &SendHandler{mailer: mailer}
}

// HandleSend composes and sends a JSON request. Attachment content is base64.
func (h *SendHandler) HandleSend(c *fiber.Ctx) error {
	var req models.ComposeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	msg, err := h.mailer.Send(req)
	if err != nil {
		return ToAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"message_id": msg.MessageID,
		"recipients": msg.Recipients,
	})
}
