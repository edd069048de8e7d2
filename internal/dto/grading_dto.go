package dto

import (
	"time"

	"github.com/edutrilha/classe-api/internal/models"
)

// GradingSessionStartRequest opens a grading session for one activity.
type GradingSessionStartRequest struct {
	ActivityID uint `json:"activity_id" validate:"required,gt=0"`
}

// GradingSelectRequest loads one student's submission into the session.
type GradingSelectRequest struct {
	StudentID uint `json:"student_id" validate:"required,gt=0"`
}

// ItemScoreRequest sets or derives the score of one item. With
// ManualOverride unset the score is recomputed from the automatic scorer and
// Score is ignored; with it set, Score is required and must lie within
// [0, item points].
type ItemScoreRequest struct {
	ManualOverride bool     `json:"manual_override"`
	Score          *float64 `json:"score" validate:"omitempty,gte=0"`
}

// RosterFilterRequest narrows the roster projection. Empty values clear the
// corresponding filter.
type RosterFilterRequest struct {
	Name   string `json:"name" validate:"omitempty,max=255"`
	Status string `json:"status" validate:"omitempty,oneof='Aguardando correção' 'Corrigido'"`
}

// GradingSaveRequest persists the current grading state. Action decides
// where the session goes afterwards.
type GradingSaveRequest struct {
	Action   string  `json:"action" validate:"required,oneof=stay next exit"`
	Feedback *string `json:"feedback"`
}

// ItemGradeView is the working score of one item as seen by the grader.
type ItemGradeView struct {
	ItemID         string  `json:"item_id"`
	Score          float64 `json:"score"`
	ManualOverride bool    `json:"manual_override"`
}

// GradingSessionResponse is the session snapshot returned by every
// session-mutating call.
type GradingSessionResponse struct {
	ID               string               `json:"id"`
	ActivityID       uint                 `json:"activity_id"`
	ClassID          uint                 `json:"class_id"`
	State            string               `json:"state"`
	Roster           []models.RosterEntry `json:"roster"`
	CurrentStudentID uint                 `json:"current_student_id,omitempty"`
	ItemGrades       []ItemGradeView      `json:"item_grades,omitempty"`
	Total            float64              `json:"total"`
	Feedback         string               `json:"feedback,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// GradingSaveResponse reports the outcome of a save-and-advance.
type GradingSaveResponse struct {
	Submission    SubmissionResponse      `json:"submission"`
	NextStudentID *uint                   `json:"next_student_id,omitempty"`
	Exited        bool                    `json:"exited"`
	Session       *GradingSessionResponse `json:"session,omitempty"`
}

// BulkGradeResponse reports a sequential grade-all-text-items run. Failed
// items keep their previous scores; Skipped items already carried a manual
// override.
type BulkGradeResponse struct {
	Graded  []string                `json:"graded"`
	Failed  []string                `json:"failed"`
	Skipped []string                `json:"skipped"`
	Session *GradingSessionResponse `json:"session"`
}

// NewGradingSessionResponse converts a session into its API snapshot. Item
// grades are keyed deterministically by the activity's item order.
func NewGradingSessionResponse(session models.GradingSession, items []models.ActivityItem) GradingSessionResponse {
	response := GradingSessionResponse{
		ID:               session.ID,
		ActivityID:       session.ActivityID,
		ClassID:          session.ClassID,
		State:            session.State,
		Roster:           session.FilteredRoster(),
		CurrentStudentID: session.CurrentStudentID,
		Total:            session.Total(),
		Feedback:         session.Feedback,
		CreatedAt:        session.CreatedAt,
	}

	if len(session.ItemGrades) > 0 {
		views := make([]ItemGradeView, 0, len(session.ItemGrades))
		for _, item := range items {
			if grade, ok := session.ItemGrades[item.ID]; ok {
				views = append(views, ItemGradeView{
					ItemID:         item.ID,
					Score:          grade.Score,
					ManualOverride: grade.ManualOverride,
				})
			}
		}
		response.ItemGrades = views
	}

	return response
}
