package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edutrilha/classe-api/internal/models"
)

func seedActivity(t *testing.T, db *gorm.DB) models.Activity {
	t.Helper()

	activity := models.Activity{
		ClassID: 10,
		Title:   "Prova de Matemática",
		Materia: "Matemática",
		Unidade: "1ª Unidade",
		Points:  10,
		Items:   datatypes.JSON(`[{"id":"q1","type":"text","question":"?","points":10}]`),
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func TestSubmissionUpsertKeepsOneRowPerPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	activity := seedActivity(t, db)
	ctx := context.Background()

	first := models.ActivitySubmission{
		ActivityID:  activity.ID,
		StudentID:   7,
		StudentName: "Ana Souza",
		Content:     datatypes.JSON(`{"q1":"primeira resposta"}`),
		Status:      models.SubmissionStatusAwaiting,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, &first))

	grade := 8.5
	gradedAt := time.Now()
	second := models.ActivitySubmission{
		ActivityID:  activity.ID,
		StudentID:   7,
		StudentName: "Ana S. Souza",
		Content:     datatypes.JSON(`{"q1":"segunda resposta"}`),
		Status:      models.SubmissionStatusCorrected,
		Grade:       &grade,
		Feedback:    "Boa evolução.",
		Scores:      datatypes.JSON(`{"q1":8.5}`),
		SubmittedAt: time.Now(),
		GradedAt:    &gradedAt,
	}
	require.NoError(t, repo.Upsert(ctx, &second))

	submissions, err := repo.List(ctx, SubmissionFilter{ActivityID: &activity.ID})
	require.NoError(t, err)
	require.Len(t, submissions, 1)

	stored := submissions[0]
	require.Equal(t, "Ana S. Souza", stored.StudentName)
	require.Equal(t, models.SubmissionStatusCorrected, stored.Status)
	require.NotNil(t, stored.Grade)
	require.Equal(t, 8.5, *stored.Grade)

	answers, err := stored.AnswerMap()
	require.NoError(t, err)
	require.Equal(t, "segunda resposta", answers["q1"])
}

func TestSubmissionListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	activity := seedActivity(t, db)
	other := seedActivity(t, db)
	ctx := context.Background()

	corrected := models.ActivitySubmission{
		ActivityID: activity.ID, StudentID: 7, StudentName: "Ana Souza",
		Status: models.SubmissionStatusCorrected, SubmittedAt: time.Now(),
	}
	awaiting := models.ActivitySubmission{
		ActivityID: activity.ID, StudentID: 8, StudentName: "Bruno Lima",
		Status: models.SubmissionStatusAwaiting, SubmittedAt: time.Now(),
	}
	elsewhere := models.ActivitySubmission{
		ActivityID: other.ID, StudentID: 7, StudentName: "Ana Souza",
		Status: models.SubmissionStatusAwaiting, SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, &corrected))
	require.NoError(t, repo.Upsert(ctx, &awaiting))
	require.NoError(t, repo.Upsert(ctx, &elsewhere))

	status := models.SubmissionStatusAwaiting
	byStatus, err := repo.List(ctx, SubmissionFilter{ActivityID: &activity.ID, Status: &status})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, uint(8), byStatus[0].StudentID)

	studentID := uint(7)
	byStudent, err := repo.List(ctx, SubmissionFilter{StudentID: &studentID})
	require.NoError(t, err)
	require.Len(t, byStudent, 2)

	// Ordered by student name.
	all, err := repo.List(ctx, SubmissionFilter{ActivityID: &activity.ID})
	require.NoError(t, err)
	require.Equal(t, "Ana Souza", all[0].StudentName)
	require.Equal(t, "Bruno Lima", all[1].StudentName)
}

func TestGetByActivityAndStudent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	activity := seedActivity(t, db)
	ctx := context.Background()

	submission := models.ActivitySubmission{
		ActivityID: activity.ID, StudentID: 7, StudentName: "Ana Souza",
		Status: models.SubmissionStatusAwaiting, SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, &submission))

	found, err := repo.GetByActivityAndStudent(ctx, activity.ID, 7)
	require.NoError(t, err)
	require.Equal(t, submission.ID, found.ID)

	_, err = repo.GetByActivityAndStudent(ctx, activity.ID, 99)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	activity := seedActivity(t, db)
	ctx := context.Background()

	submission := models.ActivitySubmission{
		ActivityID: activity.ID, StudentID: 7, StudentName: "Ana Souza",
		Status: models.SubmissionStatusAwaiting, SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, &submission))

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        8.5,
		Feedback:     "Primeira correção.",
		GradedBy:     50,
		GradedAt:     time.Now(),
	}
	require.NoError(t, repo.CreateHistory(ctx, &history))
	require.NotZero(t, history.ID)

	var count int64
	require.NoError(t, db.Model(&models.SubmissionGradeHistory{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
