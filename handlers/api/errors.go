package api

import (
	"errors"
	"fmt"

	"minimail/mailfmt"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

var (
	// ErrMessageNotFound is returned when the UID is not in the mailbox
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidUID is returned for identifiers that cannot be an IMAP UID
	ErrInvalidUID = errors.New("invalid message uid")
)

// TransportError wraps a failure talking to the IMAP or SMTP server
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err came from the mail servers
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ToAppError maps Mailer errors to HTTP errors with a localized message
func ToAppError(c *fiber.Ctx, err error) *utils.AppError {
	if appErr, ok := utils.AsAppError(err); ok {
		return appErr
	}

	localizer, _ := c.Locals("localizer").(*i18n.Localizer)
	if localizer == nil {
		localizer = utils.Localizer
	}

	var verr *mailfmt.ValidationError
	switch {
	case errors.Is(err, ErrInvalidUID):
		return utils.BadRequestError(utils.T(localizer, "MessageNotFound"), err)
	case errors.Is(err, ErrMessageNotFound):
		return utils.NotFoundError(utils.T(localizer, "MessageNotFound"), err)
	case errors.Is(err, mailfmt.ErrAttachmentNotFound):
		return utils.NotFoundError(utils.T(localizer, "AttachmentNotFound"), err)
	case errors.As(err, &verr):
		msg := verr.Error()
		if verr.Field == "to" {
			msg = utils.T(localizer, "RecipientRequired")
		}
		return utils.BadRequestError(msg, err).WithContext("field", verr.Field)
	case errors.Is(err, mailfmt.ErrParse):
		return utils.NewAppError(fiber.StatusUnprocessableEntity, utils.T(localizer, "MessageUnreadable"), err)
	case IsTransportError(err):
		return utils.BadGatewayError(err.Error(), err)
	default:
		return utils.InternalServerError(utils.T(localizer, "ErrorTitle"), err)
	}
}
