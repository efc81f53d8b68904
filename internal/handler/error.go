package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/directory"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`

	// Stale is set when the id came from an email list that has since
	// been replaced.
	Stale bool `json:"stale,omitempty"`
}

// respondError maps err to a status code and writes it as JSON.
func respondError(c *fiber.Ctx, log logger.Logger, err error) error {
	status := fiber.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error()}

	var fe *fiber.Error
	switch {
	case directory.IsStale(err):
		status = fiber.StatusNotFound
		resp.Stale = true
	case errors.Is(err, directory.ErrNotFound):
		status = fiber.StatusNotFound
		resp.Error = "Email not found"
	case errors.Is(err, model.ErrNoDraft):
		status = fiber.StatusBadRequest
		resp.Error = "No draft available"
	case errors.As(err, &fe):
		status = fe.Code
	}

	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		log.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}

	return c.Status(status).JSON(resp)
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
