package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
)

// SettingsStore persists the mailbox and provider settings.
type SettingsStore interface {
	Configured() bool
	Save(next model.Settings) error
}

// Refresher is told when new settings are in effect.
type Refresher interface {
	Refresh()
}

// ConfigHandler serves the configuration endpoints.
type ConfigHandler struct {
	settings  SettingsStore
	refresher Refresher
	log       logger.Logger
}

// NewConfigHandler creates a ConfigHandler. refresher may be nil.
func NewConfigHandler(settings SettingsStore, refresher Refresher, log logger.Logger) *ConfigHandler {
	return &ConfigHandler{settings: settings, refresher: refresher, log: log}
}

type configRequest struct {
	AnthropicKey     flexString `json:"anthropicKey"`
	EmailHost        flexString `json:"emailHost"`
	EmailPort        flexString `json:"emailPort"`
	EmailUser        flexString `json:"emailUser"`
	EmailPassword    flexString `json:"emailPassword"`
	SMTPHost         flexString `json:"smtpHost"`
	SMTPPort         flexString `json:"smtpPort"`
	AutoReplyEnabled flexString `json:"autoReplyEnabled"`
}

func (r configRequest) settings() model.Settings {
	return model.Settings{
		AnthropicKey:     r.AnthropicKey.String(),
		EmailHost:        r.EmailHost.String(),
		EmailPort:        r.EmailPort.String(),
		EmailUser:        r.EmailUser.String(),
		EmailPassword:    r.EmailPassword.String(),
		SMTPHost:         r.SMTPHost.String(),
		SMTPPort:         r.SMTPPort.String(),
		AutoReplyEnabled: r.AutoReplyEnabled.String() == "true",
	}
}

// Get reports whether settings have been saved.
func (h *ConfigHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"configured": h.settings.Configured()})
}

// Save replaces the persisted settings with the request body. Fields are
// not validated; missing ones are stored empty.
func (h *ConfigHandler) Save(c *fiber.Ctx) error {
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.log, badRequest("invalid request body"))
	}

	if err := h.settings.Save(req.settings()); err != nil {
		return respondError(c, h.log, err)
	}

	h.log.Info("configuration saved", "autoReply", req.AutoReplyEnabled.String() == "true")
	if h.refresher != nil {
		h.refresher.Refresh()
	}
	return c.JSON(fiber.Map{"success": true})
}
