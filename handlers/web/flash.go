package web

import (
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	flashError   = "flash_error"
	flashSuccess = "flash_success"
)

// setFlash stores a one-shot message for the next page render
func setFlash(store *session.Store, c *fiber.Ctx, key, message string) {
	sess, err := store.Get(c)
	if err != nil {
		utils.Log.Warn("Failed to load session for flash: %v", err)
		return
	}
	sess.Set(key, message)
	if err := sess.Save(); err != nil {
		utils.Log.Warn("Failed to save flash: %v", err)
	}
}

// popFlashes returns and clears any pending flash messages
func popFlashes(store *session.Store, c *fiber.Ctx) (errMsg, successMsg string) {
	sess, err := store.Get(c)
	if err != nil {
		return "", ""
	}
	errMsg, _ = sess.Get(flashError).(string)
	successMsg, _ = sess.Get(flashSuccess).(string)
	if errMsg == "" && successMsg == "" {
		return "", ""
	}

	sess.Delete(flashError)
	sess.Delete(flashSuccess)
	if err := sess.Save(); err != nil {
		utils.Log.Warn("Failed to clear flash: %v", err)
	}
	return errMsg, successMsg
}
