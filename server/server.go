// Package server assembles the fiber application: views, middleware,
// sessions and routes.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"minimail/config"
	"minimail/handlers/api"
	"minimail/handlers/web"
	"minimail/metrics"
	"minimail/middleware"
	"minimail/storage"
	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Server is the HTTP front end over a Mailer
type Server struct {
	App      *fiber.App
	config   *config.Config
	sessions *storage.SessionStorage // nil when sessions live in memory
}

// New builds the application. ctx bounds the background sweepers.
func New(ctx context.Context, cfg *config.Config, mailer *api.Mailer) (*Server, error) {
	s := &Server{config: cfg}

	sessCfg := session.Config{
		Expiration:     24 * time.Hour,
		CookieSecure:   cfg.SSL.Enabled,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	}
	if cfg.Server.SessionDB != "" {
		sessions, err := storage.NewSessionStorage(cfg.Server.SessionDB)
		if err != nil {
			return nil, err
		}
		s.sessions = sessions
		sessCfg.Storage = sessions
		go s.sweepSessions(ctx, time.Hour)
	}
	store := session.New(sessCfg)

	app := fiber.New(fiber.Config{
		Views:        web.NewViews(),
		ViewsLayout:  "layouts/main",
		ErrorHandler: web.ErrorHandler,
		BodyLimit:    25 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline';",
	}))
	if headers := cfg.GetSecurityHeaders(); len(headers) > 0 {
		app.Use(func(c *fiber.Ctx) error {
			for k, v := range headers {
				c.Set(k, v)
			}
			return c.Next()
		})
	}
	if cfg.Server.SessionSecret != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key:    cookieKey(cfg.Server.SessionSecret),
			Except: []string{"csrf_token", "lang"},
		}))
	}

	app.Use(middleware.LocaleMiddleware())
	app.Use(middleware.RateLimiter(ctx, cfg.Server.RateLimit, time.Minute))

	csrf := middleware.DefaultCSRFConfig()
	csrf.Secure = cfg.SSL.Enabled
	app.Use(middleware.CSRFProtection(csrf))

	emailHandler := web.NewEmailHandler(store, mailer)
	attachmentHandler := web.NewAttachmentWebHandler(mailer)

	app.Get("/", emailHandler.HandleInbox)
	app.Get("/email/:uid", emailHandler.HandleView)
	app.Get("/email/:uid/attachments/:index", attachmentHandler.HandleDownload)
	app.Get("/compose", emailHandler.HandleComposeForm)
	app.Post("/compose", emailHandler.HandleComposeSubmit)

	messages := api.NewMessageHandler(mailer)
	attachments := api.NewAttachmentHandler(mailer)
	send := api.NewSendHandler(mailer)

	apiRoutes := app.Group("/api")
	{
		apiRoutes.Get("/messages", messages.HandleList)
		apiRoutes.Get("/messages/:uid", messages.HandleGet)
		apiRoutes.Get("/messages/:uid/attachments/:index", attachments.HandleDownload)
		apiRoutes.Post("/send", send.HandleSend)
		apiRoutes.Get("/i18n/:lang", (&api.I18nHandler{}).GetTranslations)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundError(utils.T(utils.GetLocalizer(localeOf(c)), "PageNotFound"), nil)
	})

	s.App = app
	return s, nil
}

func localeOf(c *fiber.Ctx) string {
	if lang, ok := c.Locals("lang").(string); ok {
		return lang
	}
	return "en"
}

// cookieKey derives the AES-256 key encryptcookie expects from the
// configured secret
func cookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (s *Server) sweepSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.sessions.Sweep(); err != nil {
				utils.Log.Warn("Session sweep failed: %v", err)
			} else if n > 0 {
				utils.Log.Debug("Swept %d expired sessions", n)
			}
		}
	}
}

// Listen serves until the app is shut down, over TLS when configured
func (s *Server) Listen() error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	if s.config.SSL.Enabled {
		if err := s.config.ValidateSSL(); err != nil {
			return err
		}
		utils.Log.Info("Starting HTTPS server on port %d...", s.config.Server.Port)
		return s.App.ListenTLS(addr, s.config.SSL.CertFile, s.config.SSL.KeyFile)
	}
	utils.Log.Info("Starting server on port %d...", s.config.Server.Port)
	return s.App.Listen(addr)
}

// Shutdown stops accepting requests and closes the session database
func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.App.ShutdownWithTimeout(timeout)
	if s.sessions != nil {
		if cerr := s.sessions.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
