package api

import (
	"slices"

	"minimail/locales"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
)

// clientMessages are the texts a script-driven client needs
var clientMessages = []string{
	"Inbox", "Compose", "Send", "EmptyInbox",
	"MessageSent", "MessageNotFound", "MessageUnreadable",
	"RecipientRequired", "AttachmentNotFound", "TooManyRequests", "ErrorTitle",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// GetTranslations returns translations for client-side use. Unsupported
// languages fall back to English.
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := c.Params("lang")
	if !slices.Contains(locales.Languages, lang) {
		lang = "en"
	}

	localizer := utils.GetLocalizer(lang)
	translations := make(map[string]string, len(clientMessages))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(fiber.Map{
		"lang":         lang,
		"translations": translations,
	})
}
