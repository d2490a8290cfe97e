package middleware

import (
	"minimail/locales"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var supported = func() language.Matcher {
	tags := make([]language.Tag, 0, len(locales.Languages))
	for _, lang := range locales.Languages {
		tags = append(tags, language.MustParse(lang))
	}
	return language.NewMatcher(tags)
}()

// LocaleMiddleware detects and sets the user's locale
func LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Query parameter, then cookie, then Accept-Language
		lang := c.Query("lang")
		if lang == "" {
			lang = c.Cookies("lang")
		}
		lang = matchLanguage(lang, c.Get(fiber.HeaderAcceptLanguage))

		if c.Query("lang") != "" {
			c.Cookie(&fiber.Cookie{
				Name:     "lang",
				Value:    lang,
				MaxAge:   365 * 24 * 3600,
				HTTPOnly: true,
				SameSite: "Lax",
			})
		}

		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)

		utils.Log.Debug("Locale detected: %s for path: %s", lang, c.Path())

		return c.Next()
	}
}

// matchLanguage returns the supported language closest to the explicit
// choice, or to the Accept-Language header when there is none
func matchLanguage(explicit, acceptLanguage string) string {
	var prefs []language.Tag
	if explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if len(prefs) == 0 && acceptLanguage != "" {
		prefs, _, _ = language.ParseAcceptLanguage(acceptLanguage)
	}

	_, index, confidence := supported.Match(prefs...)
	if confidence == language.No {
		return locales.Languages[0]
	}
	return locales.Languages[index]
}

// localizerFrom returns the request localizer set by LocaleMiddleware
func localizerFrom(c *fiber.Ctx) *i18n.Localizer {
	if l, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return l
	}
	return utils.Localizer
}
