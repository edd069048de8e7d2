package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/edutrilha/classe-api/internal/service"
	"github.com/edutrilha/classe-api/internal/utils"
)

// SummaryHandler exposes the grade summary endpoints.
type SummaryHandler struct {
	summaries service.GradeSummaryService
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(summaries service.GradeSummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// Get returns the grade rollup for one student in one class.
func (h *SummaryHandler) Get(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.summaries.Get(c.UserContext(), classID, studentID)
	if err != nil {
		if errors.Is(err, service.ErrSummaryNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "grade summary not found")
		}
		requestLogger(c).Error().Err(err).Msg("summary request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "grade summary retrieved", response)
}

// Rebuild forces a full recomputation of the rollup for one pair.
func (h *SummaryHandler) Rebuild(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.summaries.Rebuild(c.UserContext(), classID, studentID, nil); err != nil {
		requestLogger(c).Error().Err(err).Msg("summary rebuild failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "grade summary rebuilt", nil)
}
