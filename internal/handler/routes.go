package handler

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nhle/mail-assistant/internal/web"
)

// Handlers groups every endpoint handler.
type Handlers struct {
	Config   *ConfigHandler
	Email    *EmailHandler
	Monitor  *MonitorHandler
	Activity *ActivityHandler
}

// NewApp creates the fiber application with its error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "Mail Assistant",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
		},
	})
}

// SetupRoutes registers middleware and routes on app.
func SetupRoutes(app *fiber.App, h Handlers, accessLog bool) {
	if accessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(web.Index())
	})

	app.Get("/config", h.Config.Get)
	app.Post("/config", h.Config.Save)

	app.Get("/emails", h.Email.List)
	app.Post("/generate-draft", h.Email.GenerateDraft)
	app.Post("/send-reply", h.Email.SendReply)

	app.Get("/monitor", h.Monitor.Poll)
	app.Get("/monitor/status", h.Monitor.Status)

	app.Get("/activity", h.Activity.List)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
