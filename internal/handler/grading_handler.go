package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/repository"
	"github.com/edutrilha/classe-api/internal/service"
	"github.com/edutrilha/classe-api/internal/utils"
)

// GradingHandler exposes the teacher grading workflow endpoints.
type GradingHandler struct {
	grading service.GradingService
}

// NewGradingHandler constructs a GradingHandler.
func NewGradingHandler(grading service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// StartSession opens a grading session over one activity's submissions.
func (h *GradingHandler) StartSession(c *fiber.Ctx) error {
	var payload dto.GradingSessionStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.StartSession(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grading session started", response)
}

// GetSession returns the current session snapshot.
func (h *GradingHandler) GetSession(c *fiber.Ctx) error {
	response, err := h.grading.GetSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading session retrieved", response)
}

// SelectSubmission loads one student's submission into the session.
func (h *GradingHandler) SelectSubmission(c *fiber.Ctx) error {
	var payload dto.GradingSelectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.SelectSubmission(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission loaded", response)
}

// SetItemScore edits the working score of one item.
func (h *GradingHandler) SetItemScore(c *fiber.Ctx) error {
	var payload dto.ItemScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.SetItemScore(c.UserContext(), c.Params("id"), c.Params("itemID"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "item score updated", response)
}

// GradeTextItem asks the AI grader to score one text item.
func (h *GradingHandler) GradeTextItem(c *fiber.Ctx) error {
	response, err := h.grading.GradeTextItem(c.UserContext(), c.Params("id"), c.Params("itemID"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "item graded", response)
}

// GradeAllTextItems runs the AI grader over every ungraded text item.
func (h *GradingHandler) GradeAllTextItems(c *fiber.Ctx) error {
	response, err := h.grading.GradeAllTextItems(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "bulk grading completed", response)
}

// FilterRoster narrows the session's roster projection.
func (h *GradingHandler) FilterRoster(c *fiber.Ctx) error {
	var payload dto.RosterFilterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.FilterRoster(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roster filter applied", response)
}

// Save persists the current grading state and advances per the requested
// action.
func (h *GradingHandler) Save(c *fiber.Ctx) error {
	var payload dto.GradingSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.grading.Save(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading saved", response)
}

// EndSession discards the session.
func (h *GradingHandler) EndSession(c *fiber.Ctx) error {
	if err := h.grading.EndSession(c.UserContext(), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading session ended", nil)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grading session not found")
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrItemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "item not found")
	case errors.Is(err, service.ErrNoSubmissionSelected):
		return utils.SendError(c, fiber.StatusConflict, "no submission selected")
	case errors.Is(err, service.ErrSaveInProgress):
		return utils.SendError(c, fiber.StatusConflict, "a save is already in progress")
	case errors.Is(err, service.ErrGradeOutOfRange),
		errors.Is(err, service.ErrItemNotText),
		errors.Is(err, service.ErrScoreRequired):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrGraderUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "ai grader is not configured")
	default:
		requestLogger(c).Error().Err(err).Msg("grading request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
