package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SummaryActivity is one corrected activity inside the rollup.
type SummaryActivity struct {
	ActivityID uint    `json:"activityId"`
	Title      string  `json:"title"`
	Grade      float64 `json:"grade"`
	MaxPoints  float64 `json:"maxPoints"`
}

// MateriaSummary groups corrected grades of one subject within a grading
// period, with a running total.
type MateriaSummary struct {
	Materia     string            `json:"materia"`
	Activities  []SummaryActivity `json:"activities"`
	TotalPoints float64           `json:"totalPoints"`
}

// UnidadeSummary holds the per-subject rollups of one grading period.
type UnidadeSummary struct {
	Unidade  string           `json:"unidade"`
	Materias []MateriaSummary `json:"materias"`
}

// StudentGradeSummary is the denormalized per-(class, student) grade rollup.
// It is a derived, disposable cache: rebuilt in full from corrected
// submissions on every grading change and never treated as a source of truth.
type StudentGradeSummary struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ClassID   uint           `gorm:"not null;uniqueIndex:idx_summary_class_student" json:"class_id"`
	StudentID uint           `gorm:"not null;uniqueIndex:idx_summary_class_student" json:"student_id"`
	Report    datatypes.JSON `gorm:"type:json" json:"report"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ReportUnidades decodes the persisted rollup document.
func (s StudentGradeSummary) ReportUnidades() ([]UnidadeSummary, error) {
	if len(s.Report) == 0 || string(s.Report) == "null" {
		return nil, nil
	}

	var unidades []UnidadeSummary
	if err := json.Unmarshal(s.Report, &unidades); err != nil {
		return nil, fmt.Errorf("decode grade summary report: %w", err)
	}
	return unidades, nil
}
