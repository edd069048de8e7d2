package dto

import (
	"time"

	"github.com/edutrilha/classe-api/internal/models"
)

// GradeSummaryResponse serves the denormalized per-(class, student) rollup.
type GradeSummaryResponse struct {
	ClassID   uint                    `json:"class_id"`
	StudentID uint                    `json:"student_id"`
	Unidades  []models.UnidadeSummary `json:"unidades"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewGradeSummaryResponse converts a summary row into its API shape.
func NewGradeSummaryResponse(model models.StudentGradeSummary) GradeSummaryResponse {
	unidades, err := model.ReportUnidades()
	if err != nil {
		unidades = nil
	}

	return GradeSummaryResponse{
		ClassID:   model.ClassID,
		StudentID: model.StudentID,
		Unidades:  unidades,
		UpdatedAt: model.UpdatedAt,
	}
}
