package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/service"
)

// EmailHandler serves the email list, draft and reply endpoints.
type EmailHandler struct {
	svc *service.Assistant
	log logger.Logger
}

// NewEmailHandler creates an EmailHandler.
func NewEmailHandler(svc *service.Assistant, log logger.Logger) *EmailHandler {
	return &EmailHandler{svc: svc, log: log}
}

// List fetches the mailbox and returns the new email list.
func (h *EmailHandler) List(c *fiber.Ctx) error {
	snap, err := h.svc.Fetch(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"emails":     snap.Messages(),
		"generation": snap.Generation,
		"fetchedAt":  snap.FetchedAt,
	})
}

// GenerateDraft drafts a reply for one email.
func (h *EmailHandler) GenerateDraft(c *fiber.Ctx) error {
	req, err := parseEmailRequest(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	msg, err := h.svc.GenerateDraft(c.UserContext(), req.EmailID.String(), req.Generation)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{"draft": msg.Draft})
}

// SendReply sends the stored draft for one email.
func (h *EmailHandler) SendReply(c *fiber.Ctx) error {
	req, err := parseEmailRequest(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	if _, err := h.svc.SendReply(c.UserContext(), req.EmailID.String(), req.Generation); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func parseEmailRequest(c *fiber.Ctx) (emailRequest, error) {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return req, badRequest("invalid request body")
	}
	if req.EmailID == "" {
		return req, badRequest("emailId is required")
	}
	return req, nil
}
