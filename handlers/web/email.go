// handlers/web/email.go
package web

import (
	"errors"
	"html/template"
	"io"
	"mime/multipart"

	"minimail/handlers/api"
	"minimail/middleware"
	"minimail/models"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

type EmailHandler struct {
	store  *session.Store
	mailer *api.Mailer
}

func NewEmailHandler(store *session.Store, mailer *api.Mailer) *EmailHandler {
	return &EmailHandler{
		store:  store,
		mailer: mailer,
	}
}

func localizer(c *fiber.Ctx) *i18n.Localizer {
	if l, ok := c.Locals("localizer").(*i18n.Localizer); ok {
		return l
	}
	return utils.GetLocalizer(langFrom(c))
}

// page adds the values every view needs to data
func (h *EmailHandler) page(c *fiber.Ctx, data fiber.Map) fiber.Map {
	data["Lang"] = langFrom(c)
	data["FlashError"], data["FlashSuccess"] = popFlashes(h.store, c)
	return data
}

// HandleInbox renders the newest messages. A transport failure shows an
// empty inbox with the error flashed.
func (h *EmailHandler) HandleInbox(c *fiber.Ctx) error {
	messages, err := h.mailer.ListInbox(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		if !api.IsTransportError(err) {
			return err
		}
		utils.Log.Error("Error loading inbox: %v", err)
		setFlash(h.store, c, flashError, utils.TWithData(localizer(c), "InboxLoadError", map[string]interface{}{
			"Error": err.Error(),
		}))
		messages = []models.MessageSummary{}
	}

	return c.Render("index", h.page(c, fiber.Map{
		"Title":    utils.T(localizer(c), "Inbox"),
		"Messages": messages,
	}))
}

// HandleView renders one message with its HTML body sanitized
func (h *EmailHandler) HandleView(c *fiber.Ctx) error {
	msg, err := h.mailer.GetMessage(c.Params("uid"))
	if err != nil {
		if errors.Is(err, api.ErrMessageNotFound) || errors.Is(err, api.ErrInvalidUID) {
			setFlash(h.store, c, flashError, utils.T(localizer(c), "MessageNotFound"))
			return c.Redirect("/")
		}
		return api.ToAppError(c, err)
	}

	var body template.HTML
	if msg.HTMLBody != "" {
		body = template.HTML(utils.SanitizeHTML(msg.HTMLBody))
	}

	return c.Render("view", h.page(c, fiber.Map{
		"Title":   msg.Subject,
		"Message": msg,
		"HTML":    body,
	}))
}

// HandleComposeForm renders an empty compose form
func (h *EmailHandler) HandleComposeForm(c *fiber.Ctx) error {
	return h.renderCompose(c, fiber.StatusOK, models.ComposeRequest{}, "")
}

func (h *EmailHandler) renderCompose(c *fiber.Ctx, status int, req models.ComposeRequest, errMsg string) error {
	return c.Status(status).Render("compose", h.page(c, fiber.Map{
		"Title":     utils.T(localizer(c), "Compose"),
		"CSRFToken": middleware.GenerateCSRFToken(c),
		"To":        req.To,
		"Subject":   req.Subject,
		"Body":      req.Body,
		"Error":     errMsg,
	}))
}

// HandleComposeSubmit sends the posted form. Failures re-render the form
// with the user's input kept.
func (h *EmailHandler) HandleComposeSubmit(c *fiber.Ctx) error {
	req := models.ComposeRequest{
		To:      c.FormValue("to"),
		Subject: c.FormValue("subject"),
		Body:    c.FormValue("body"),
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		attachments, err := readAttachments(form.File["attachment"])
		if err != nil {
			return utils.BadRequestError("Invalid attachment", err)
		}
		req.Attachments = attachments
	}

	msg, err := h.mailer.Send(req)
	if err != nil {
		appErr := api.ToAppError(c, err)
		errMsg := appErr.Message
		if api.IsTransportError(err) {
			errMsg = utils.TWithData(localizer(c), "SendFailed", map[string]interface{}{
				"Error": err.Error(),
			})
		}
		utils.Log.Warn("Compose failed: %v", err)
		return h.renderCompose(c, appErr.Code, req, errMsg)
	}

	utils.Log.WithField("message_id", msg.MessageID).Debug("Compose form sent")
	setFlash(h.store, c, flashSuccess, utils.T(localizer(c), "MessageSent"))
	return c.Redirect("/")
}

// readAttachments loads uploaded files, skipping the empty part browsers
// send when no file was chosen
func readAttachments(files []*multipart.FileHeader) ([]models.OutgoingAttachment, error) {
	var out []models.OutgoingAttachment
	for _, fh := range files {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, models.OutgoingAttachment{Filename: fh.Filename, Content: data})
	}
	return out, nil
}
