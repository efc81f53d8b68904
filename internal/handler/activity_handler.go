package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/store"
)

// ActivityHandler lists recent activity records.
type ActivityHandler struct {
	store store.Store
	log   logger.Logger
}

// NewActivityHandler creates an ActivityHandler. A nil store serves an
// empty list.
func NewActivityHandler(s store.Store, log logger.Logger) *ActivityHandler {
	return &ActivityHandler{store: s, log: log}
}

// List returns the most recent records, newest first.
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", store.DefaultLimit)
	if limit < 1 {
		return respondError(c, h.log, badRequest("limit must be positive"))
	}

	if h.store == nil {
		return c.JSON(fiber.Map{"activity": []model.Activity{}})
	}

	filter := store.ActivityFilter{Limit: limit}
	if kind := c.Query("kind"); kind != "" {
		k := model.ActivityKind(kind)
		filter.Kind = &k
	}
	if id := c.Query("emailId"); id != "" {
		filter.EmailID = &id
	}

	activity, err := h.store.Recent(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"activity": activity})
}
