package dto

import (
	"encoding/json"
	"time"

	"github.com/edutrilha/classe-api/internal/models"
)

// SubmissionCreateRequest is the payload a student posts when answering an
// activity. Content is the serialized answer map (itemID -> chosen option or
// free text).
type SubmissionCreateRequest struct {
	ActivityID  uint            `json:"activity_id" validate:"required,gt=0"`
	StudentID   uint            `json:"student_id" validate:"required,gt=0"`
	StudentName string          `json:"student_name" validate:"required,min=2,max=255"`
	Content     json.RawMessage `json:"content" validate:"required"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	ActivityID *uint   `query:"activity_id"`
	StudentID  *uint   `query:"student_id"`
	Status     *string `query:"status" validate:"omitempty,oneof='Aguardando correção' 'Corrigido'"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID          uint               `json:"id"`
	ActivityID  uint               `json:"activity_id"`
	StudentID   uint               `json:"student_id"`
	StudentName string             `json:"student_name"`
	Content     map[string]string  `json:"content"`
	Status      string             `json:"status"`
	Grade       *float64           `json:"grade"`
	Feedback    string             `json:"feedback"`
	Scores      map[string]float64 `json:"scores,omitempty"`
	SubmittedAt time.Time          `json:"submission_date"`
	GradedAt    *time.Time         `json:"graded_at"`
	GradedBy    *uint              `json:"graded_by"`
}

// NewSubmissionResponse converts an ActivitySubmission model into a DTO.
func NewSubmissionResponse(model models.ActivitySubmission) SubmissionResponse {
	answers, err := model.AnswerMap()
	if err != nil {
		answers = map[string]string{}
	}

	scores, err := model.ScoreMap()
	if err != nil {
		scores = nil
	}

	return SubmissionResponse{
		ID:          model.ID,
		ActivityID:  model.ActivityID,
		StudentID:   model.StudentID,
		StudentName: model.StudentName,
		Content:     answers,
		Status:      model.Status,
		Grade:       model.Grade,
		Feedback:    model.Feedback,
		Scores:      scores,
		SubmittedAt: model.SubmittedAt,
		GradedAt:    model.GradedAt,
		GradedBy:    model.GradedBy,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.ActivitySubmission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
