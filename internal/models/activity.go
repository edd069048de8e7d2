package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"
)

// Item types supported by an activity.
const (
	ItemTypeMultipleChoice = "multiple_choice"
	ItemTypeText           = "text"
)

// Objective-question grading modes.
const (
	ObjectiveGradingAutomatic = "automatic"
	ObjectiveGradingManual    = "manual"
)

// Unidades enumerates the grading periods, in report order.
var Unidades = []string{"1ª Unidade", "2ª Unidade", "3ª Unidade", "4ª Unidade"}

// ItemOption is one selectable choice of a multiple_choice item.
type ItemOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ActivityItem is one question of an activity in its canonical shape.
// Items are immutable once the activity is published.
type ActivityItem struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	Question        string       `json:"question"`
	Points          float64      `json:"points"`
	Options         []ItemOption `json:"options,omitempty"`
	CorrectOptionID string       `json:"correctOptionId,omitempty"`
}

// AutoScore returns the automatic score for a raw answer. Text items always
// score 0 at this layer; their points come from manual override or the AI
// grader. A multiple_choice item without a correct option is never
// auto-graded. Missing answers score 0, never error.
func (i ActivityItem) AutoScore(answer string) float64 {
	if i.Type != ItemTypeMultipleChoice {
		return 0
	}
	if i.CorrectOptionID == "" || answer == "" {
		return 0
	}
	if answer == i.CorrectOptionID {
		return i.Points
	}
	return 0
}

// legacyQuestion is the flat shape older activities persist instead of items.
type legacyQuestion struct {
	ID              string       `json:"id"`
	Question        string       `json:"question"`
	Options         []ItemOption `json:"options"`
	CorrectOptionID string       `json:"correctOptionId"`
}

// GradingConfig controls how a submission is corrected.
type GradingConfig struct {
	// ObjectiveQuestions decides whether an all-objective submission closes
	// automatically at submit time.
	ObjectiveQuestions string `gorm:"size:16;not null;default:manual" json:"objectiveQuestions"`
}

// Activity is a gradable assignment authored by a teacher.
type Activity struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ClassID       uint           `gorm:"not null;index" json:"class_id"`
	TeacherID     uint           `gorm:"not null" json:"teacher_id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Materia       string         `gorm:"size:128;not null" json:"materia"`
	Unidade       string         `gorm:"size:32;not null" json:"unidade"`
	Points        float64        `gorm:"not null" json:"points"`
	Items         datatypes.JSON `gorm:"type:json" json:"items"`
	Questions     datatypes.JSON `gorm:"type:json" json:"questions"`
	GradingConfig GradingConfig  `gorm:"embedded;embeddedPrefix:grading_" json:"gradingConfig"`
	AttachmentURL string         `gorm:"size:512" json:"attachment_url"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NormalizedItems decodes the activity's question list in its canonical
// shape. Legacy activities carry a flat questions list instead of items;
// those are mapped 1:1 to single-point multiple_choice items here, at the
// boundary, so nothing downstream branches on the stored shape.
func (a Activity) NormalizedItems() ([]ActivityItem, error) {
	if len(a.Items) > 0 && string(a.Items) != "null" {
		var items []ActivityItem
		if err := json.Unmarshal(a.Items, &items); err != nil {
			return nil, fmt.Errorf("decode activity items: %w", err)
		}
		return items, nil
	}

	if len(a.Questions) > 0 && string(a.Questions) != "null" {
		var questions []legacyQuestion
		if err := json.Unmarshal(a.Questions, &questions); err != nil {
			return nil, fmt.Errorf("decode legacy questions: %w", err)
		}

		items := make([]ActivityItem, 0, len(questions))
		for index, question := range questions {
			id := question.ID
			if id == "" {
				id = fmt.Sprintf("q%d", index+1)
			}
			items = append(items, ActivityItem{
				ID:              id,
				Type:            ItemTypeMultipleChoice,
				Question:        question.Question,
				Points:          1,
				Options:         question.Options,
				CorrectOptionID: question.CorrectOptionID,
			})
		}
		return items, nil
	}

	return nil, nil
}

// MaxPoints returns the activity's maximum total score, falling back to the
// sum of item points when the denormalized column was never set.
func (a Activity) MaxPoints() float64 {
	if a.Points > 0 {
		return a.Points
	}

	items, err := a.NormalizedItems()
	if err != nil {
		return 0
	}

	var total float64
	for _, item := range items {
		total += item.Points
	}
	return total
}

// RoundGrade rounds a grade to one decimal place, the precision used for
// every persisted and displayed total.
func RoundGrade(value float64) float64 {
	return math.Round(value*10) / 10
}

// IsValidUnidade reports whether the value belongs to the fixed grading
// period set.
func IsValidUnidade(value string) bool {
	for _, unidade := range Unidades {
		if unidade == value {
			return true
		}
	}
	return false
}
