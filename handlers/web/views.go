package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"minimail/handlers/api"
	"minimail/templates"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

// NewViews builds the template engine over the embedded views
func NewViews() *html.Engine {
	engine := html.NewFileSystem(http.FS(templates.FS), ".html")

	// i18n template functions take the request language explicitly
	engine.AddFunc("t", func(lang, messageID string) string {
		return utils.T(utils.GetLocalizer(lang), messageID)
	})
	engine.AddFunc("tWithData", func(lang, messageID string, data map[string]interface{}) string {
		return utils.TWithData(utils.GetLocalizer(lang), messageID, data)
	})
	engine.AddFunc("tPlural", func(lang, messageID string, count int) string {
		return utils.TPlural(utils.GetLocalizer(lang), messageID, count)
	})

	engine.AddFunc("formatSize", formatSize)
	return engine
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func langFrom(c *fiber.Ctx) string {
	if lang, ok := c.Locals("lang").(string); ok && lang != "" {
		return lang
	}
	return "en"
}

// isAPIRequest reports whether the error should be rendered as JSON
func isAPIRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api")
}

// ErrorHandler renders JSON for /api routes and the error view otherwise
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	if appErr, ok := utils.AsAppError(err); ok {
		code = appErr.Code
		if code >= fiber.StatusInternalServerError {
			utils.Log.Error("Application error on %s: %v", c.Path(), appErr)
		}
	} else if errors.As(err, &fe) {
		code = fe.Code
	} else {
		utils.Log.Error("Unhandled error on %s: %v", c.Path(), err)
		appErr := api.ToAppError(c, err)
		code, message = appErr.Code, appErr.Error()
	}

	if isAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{"error": message})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Lang":  langFrom(c),
		"Title": utils.T(utils.GetLocalizer(langFrom(c)), "ErrorTitle"),
		"Error": message,
		"Code":  code,
	})
}
