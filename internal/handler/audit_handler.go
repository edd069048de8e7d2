package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/edutrilha/classe-api/internal/service"
	"github.com/edutrilha/classe-api/internal/utils"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	audit service.AuditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListRecent returns the most recent audit entries, newest first.
func (h *AuditHandler) ListRecent(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	responses, err := h.audit.ListRecent(c.UserContext(), limit)
	if err != nil {
		requestLogger(c).Error().Err(err).Msg("audit request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "audit entries retrieved", responses)
}
