package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edutrilha/classe-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	ActivityID *uint
	StudentID  *uint
	Status     *string
}

// SubmissionRepository defines data operations for activity submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.ActivitySubmission, error)
	GetByID(ctx context.Context, id uint) (models.ActivitySubmission, error)
	GetByActivityAndStudent(ctx context.Context, activityID, studentID uint) (models.ActivitySubmission, error)
	Upsert(ctx context.Context, submission *models.ActivitySubmission) error
	Update(ctx context.Context, submission *models.ActivitySubmission) error
	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.ActivitySubmission, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivitySubmission{})

	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.ActivitySubmission
	if err := query.Order("student_name ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.ActivitySubmission, error) {
	var submission models.ActivitySubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.ActivitySubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByActivityAndStudent(ctx context.Context, activityID, studentID uint) (models.ActivitySubmission, error) {
	var submission models.ActivitySubmission
	if err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.ActivitySubmission{}, err
	}

	return submission, nil
}

// Upsert writes the submission keyed by (activity, student). Re-submission
// replaces the prior record entirely: last write wins, no content merge.
func (r *submissionRepository) Upsert(ctx context.Context, submission *models.ActivitySubmission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "activity_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"student_name", "content", "status", "grade", "feedback",
			"scores", "submitted_at", "graded_at", "graded_by", "updated_at",
		}),
	}).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.ActivitySubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}
