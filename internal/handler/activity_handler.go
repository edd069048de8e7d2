package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/service"
	"github.com/edutrilha/classe-api/internal/utils"
)

// ActivityHandler exposes the activity authoring and read endpoints.
type ActivityHandler struct {
	activities service.ActivityService
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(activities service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// Create registers a new activity for a class.
func (h *ActivityHandler) Create(c *fiber.Ctx) error {
	var payload dto.ActivityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.activities.Create(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity created", response)
}

// ListByClass returns every activity of a class, oldest first.
func (h *ActivityHandler) ListByClass(c *fiber.Ctx) error {
	classID, ok := parseQueryUint(c, "class_id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "class_id query parameter is required")
	}

	responses, err := h.activities.ListByClass(c.UserContext(), classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activities retrieved", responses)
}

// GetByID returns one activity.
func (h *ActivityHandler) GetByID(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.activities.GetByID(c.UserContext(), activityID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity retrieved", response)
}

// AttachFile uploads support material for an activity.
func (h *ActivityHandler) AttachFile(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "attachment file is required")
	}

	response, err := h.activities.AttachFile(c.UserContext(), activityID, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachment stored", response)
}

func (h *ActivityHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.Is(err, service.ErrInvalidUnidade), errors.Is(err, service.ErrInvalidItems):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrUploadsDisabled):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "attachment uploads are disabled")
	default:
		requestLogger(c).Error().Err(err).Msg("activity request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
