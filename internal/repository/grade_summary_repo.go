package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edutrilha/classe-api/internal/models"
)

// GradeSummaryRepository persists the denormalized per-(class, student)
// grade rollups.
type GradeSummaryRepository interface {
	GetByClassAndStudent(ctx context.Context, classID, studentID uint) (models.StudentGradeSummary, error)
	Upsert(ctx context.Context, summary *models.StudentGradeSummary) error
}

type gradeSummaryRepository struct {
	db *gorm.DB
}

// NewGradeSummaryRepository instantiates the repository.
func NewGradeSummaryRepository(db *gorm.DB) GradeSummaryRepository {
	return &gradeSummaryRepository{db: db}
}

func (r *gradeSummaryRepository) GetByClassAndStudent(ctx context.Context, classID, studentID uint) (models.StudentGradeSummary, error) {
	var summary models.StudentGradeSummary
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("student_id = ?", studentID).
		First(&summary).Error; err != nil {
		return models.StudentGradeSummary{}, err
	}

	return summary, nil
}

// Upsert replaces the rollup document for the (class, student) pair.
func (r *gradeSummaryRepository) Upsert(ctx context.Context, summary *models.StudentGradeSummary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"report", "updated_at"}),
	}).Create(summary).Error
}
