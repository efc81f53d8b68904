package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/service"
	"github.com/nhle/mail-assistant/internal/sync"
)

// MonitorHandler serves the poll-once endpoint and the background poller
// status.
type MonitorHandler struct {
	svc    *service.Assistant
	poller *sync.Poller
	log    logger.Logger
}

// NewMonitorHandler creates a MonitorHandler. poller may be nil when
// server-side polling is disabled.
func NewMonitorHandler(svc *service.Assistant, poller *sync.Poller, log logger.Logger) *MonitorHandler {
	return &MonitorHandler{svc: svc, poller: poller, log: log}
}

// Poll runs one poll pass and returns its result.
func (h *MonitorHandler) Poll(c *fiber.Ctx) error {
	result, err := h.svc.PollOnce(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

// Status reports the background poller state.
func (h *MonitorHandler) Status(c *fiber.Ctx) error {
	if h.poller == nil {
		return c.JSON(sync.SyncStatus{State: sync.SyncStopped})
	}
	return c.JSON(h.poller.Status())
}
