package dto

import (
	"time"

	"github.com/edutrilha/classe-api/internal/models"
)

// ActivityItemRequest describes one question in an activity create payload.
type ActivityItemRequest struct {
	ID              string              `json:"id" validate:"required"`
	Type            string              `json:"type" validate:"required,oneof=multiple_choice text"`
	Question        string              `json:"question" validate:"required"`
	Points          float64             `json:"points" validate:"gte=0"`
	Options         []ItemOptionRequest `json:"options" validate:"omitempty,dive"`
	CorrectOptionID string              `json:"correctOptionId"`
}

// ItemOptionRequest is one selectable choice of a multiple_choice item.
type ItemOptionRequest struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// ActivityCreateRequest is the payload to author a new activity.
type ActivityCreateRequest struct {
	ClassID            uint                  `json:"class_id" validate:"required,gt=0"`
	Title              string                `json:"title" validate:"required,min=3,max=255"`
	Materia            string                `json:"materia" validate:"required,min=2,max=128"`
	Unidade            string                `json:"unidade" validate:"required"`
	Items              []ActivityItemRequest `json:"items" validate:"required,min=1,dive"`
	ObjectiveQuestions string                `json:"objective_questions" validate:"omitempty,oneof=automatic manual"`
}

// ActivityResponse is returned to API clients when viewing activities.
type ActivityResponse struct {
	ID                 uint                  `json:"id"`
	ClassID            uint                  `json:"class_id"`
	TeacherID          uint                  `json:"teacher_id"`
	Title              string                `json:"title"`
	Materia            string                `json:"materia"`
	Unidade            string                `json:"unidade"`
	Points             float64               `json:"points"`
	Items              []models.ActivityItem `json:"items"`
	ObjectiveQuestions string                `json:"objective_questions"`
	AttachmentURL      string                `json:"attachment_url,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// NewActivityResponse converts an Activity model into a DTO. Legacy
// flat-question activities surface through the same canonical item shape.
func NewActivityResponse(model models.Activity) ActivityResponse {
	items, err := model.NormalizedItems()
	if err != nil {
		items = nil
	}

	return ActivityResponse{
		ID:                 model.ID,
		ClassID:            model.ClassID,
		TeacherID:          model.TeacherID,
		Title:              model.Title,
		Materia:            model.Materia,
		Unidade:            model.Unidade,
		Points:             model.MaxPoints(),
		Items:              items,
		ObjectiveQuestions: model.GradingConfig.ObjectiveQuestions,
		AttachmentURL:      model.AttachmentURL,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// NewActivityResponseSlice converts activity models into DTOs.
func NewActivityResponseSlice(activities []models.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, NewActivityResponse(activity))
	}

	return responses
}
