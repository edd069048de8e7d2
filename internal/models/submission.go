package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Submission statuses are persisted verbatim; they double as the
// user-visible labels.
const (
	// SubmissionStatusAwaiting indicates the submission still needs a
	// teacher (or AI-assisted) correction pass.
	SubmissionStatusAwaiting = "Aguardando correção"
	// SubmissionStatusCorrected indicates the submission carries a final grade.
	SubmissionStatusCorrected = "Corrigido"
)

// AutoCorrectionFeedback marks submissions graded without teacher action.
const AutoCorrectionFeedback = "Corrigido automaticamente pelo sistema."

// ActivitySubmission is one student's attempt at an activity. There is at
// most one row per (activity, student); re-submission overwrites it entirely.
type ActivitySubmission struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ActivityID  uint           `gorm:"not null;uniqueIndex:idx_submission_activity_student" json:"activity_id"`
	StudentID   uint           `gorm:"not null;uniqueIndex:idx_submission_activity_student" json:"student_id"`
	StudentName string         `gorm:"size:255" json:"student_name"`
	Content     datatypes.JSON `gorm:"type:json" json:"content"`
	Status      string         `gorm:"size:64;not null" json:"status"`
	Grade       *float64       `json:"grade"`
	Feedback    string         `gorm:"type:text" json:"feedback"`
	Scores      datatypes.JSON `gorm:"type:json" json:"scores"`
	SubmittedAt time.Time      `gorm:"not null" json:"submission_date"`
	GradedAt    *time.Time     `json:"graded_at"`
	GradedBy    *uint          `json:"graded_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Activity    Activity       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsCorrected reports whether the submission holds a final grade.
func (s ActivitySubmission) IsCorrected() bool {
	return s.Status == SubmissionStatusCorrected
}

// AnswerMap decodes the serialized answer content (itemID -> chosen option
// or free text).
func (s ActivitySubmission) AnswerMap() (map[string]string, error) {
	if len(s.Content) == 0 || string(s.Content) == "null" {
		return map[string]string{}, nil
	}

	var answers map[string]string
	if err := json.Unmarshal(s.Content, &answers); err != nil {
		return nil, fmt.Errorf("decode submission content: %w", err)
	}
	return answers, nil
}

// ScoreMap decodes the per-item awarded points, when any scoring has occurred.
func (s ActivitySubmission) ScoreMap() (map[string]float64, error) {
	if len(s.Scores) == 0 || string(s.Scores) == "null" {
		return nil, nil
	}

	var scores map[string]float64
	if err := json.Unmarshal(s.Scores, &scores); err != nil {
		return nil, fmt.Errorf("decode submission scores: %w", err)
	}
	return scores, nil
}

// SubmissionGradeHistory is an immutable record of one grading save.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
