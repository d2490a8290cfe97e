package api

import (
	"github.com/gofiber/fiber/v2"
)

// MessageHandler serves the JSON inbox and message views
type MessageHandler struct {
	mailer *Mailer
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(mailer *Mailer) *MessageHandler {
	return &MessageHandler{mailer: mailer}
}

// HandleList returns the newest messages. ?limit= overrides the configured size.
func (h *MessageHandler) HandleList(c *fiber.Ctx) error {
	messages, err := h.mailer.ListInbox(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return ToAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// HandleGet returns one normalized message
func (h *MessageHandler) HandleGet(c *fiber.Ctx) error {
	msg, err := h.mailer.GetMessage(c.Params("uid"))
	if err != nil {
		return ToAppError(c, err)
	}
	return c.JSON(msg)
}
