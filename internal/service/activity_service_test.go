package service

import (
	"context"
	"mime/multipart"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/models"
)

func newActivityServiceForTest(t *testing.T, activities *fakeActivityRepo, audit *fakeAudit) ActivityService {
	t.Helper()

	var recorder AuditRecorder
	if audit != nil {
		recorder = audit
	}

	return NewActivityService(activities, recorder, validator.New(), nil, zerolog.Nop())
}

func validCreateRequest() dto.ActivityCreateRequest {
	return dto.ActivityCreateRequest{
		ClassID: 10,
		Title:   "Prova de Matemática",
		Materia: "Matemática",
		Unidade: "1ª Unidade",
		Items: []dto.ActivityItemRequest{
			{
				ID:       "q1",
				Type:     models.ItemTypeMultipleChoice,
				Question: "2+2?",
				Points:   2,
				Options: []dto.ItemOptionRequest{
					{ID: "a", Text: "3"},
					{ID: "b", Text: "4"},
				},
				CorrectOptionID: "b",
			},
			{ID: "q2", Type: models.ItemTypeText, Question: "Explique.", Points: 3},
		},
	}
}

func TestCreateActivitySumsPoints(t *testing.T) {
	activities := newFakeActivityRepo()
	audit := &fakeAudit{}
	svc := newActivityServiceForTest(t, activities, audit)

	response, err := svc.Create(context.Background(), validCreateRequest(), Actor{ID: 50, Role: "teacher"})
	require.NoError(t, err)

	require.NotZero(t, response.ID)
	require.Equal(t, 5.0, response.Points)
	require.Len(t, response.Items, 2)
	require.Equal(t, models.ObjectiveGradingManual, response.ObjectiveQuestions)
	require.Equal(t, 1, audit.entryCount())
}

func TestCreateActivityRejectsInvalidUnidade(t *testing.T) {
	svc := newActivityServiceForTest(t, newFakeActivityRepo(), nil)

	payload := validCreateRequest()
	payload.Unidade = "5ª Unidade"

	_, err := svc.Create(context.Background(), payload, Actor{ID: 50, Role: "teacher"})
	require.ErrorIs(t, err, ErrInvalidUnidade)
}

func TestCreateActivityRejectsBadItems(t *testing.T) {
	svc := newActivityServiceForTest(t, newFakeActivityRepo(), nil)

	duplicate := validCreateRequest()
	duplicate.Items[1].ID = "q1"
	_, err := svc.Create(context.Background(), duplicate, Actor{ID: 50, Role: "teacher"})
	require.ErrorIs(t, err, ErrInvalidItems)

	singleOption := validCreateRequest()
	singleOption.Items[0].Options = singleOption.Items[0].Options[:1]
	_, err = svc.Create(context.Background(), singleOption, Actor{ID: 50, Role: "teacher"})
	require.ErrorIs(t, err, ErrInvalidItems)

	strayCorrect := validCreateRequest()
	strayCorrect.Items[0].CorrectOptionID = "z"
	_, err = svc.Create(context.Background(), strayCorrect, Actor{ID: 50, Role: "teacher"})
	require.ErrorIs(t, err, ErrInvalidItems)
}

func TestAttachFileWithoutUploaderConfigured(t *testing.T) {
	activities := newFakeActivityRepo()
	svc := newActivityServiceForTest(t, activities, nil)

	created, err := svc.Create(context.Background(), validCreateRequest(), Actor{ID: 50, Role: "teacher"})
	require.NoError(t, err)

	file := &multipart.FileHeader{Filename: "material.pdf"}
	_, err = svc.AttachFile(context.Background(), created.ID, file)
	require.ErrorIs(t, err, ErrUploadsDisabled)

	// The activity is left untouched.
	stored, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Empty(t, stored.AttachmentURL)
}

func TestListByClassAndGetByID(t *testing.T) {
	activities := newFakeActivityRepo()
	svc := newActivityServiceForTest(t, activities, nil)

	created, err := svc.Create(context.Background(), validCreateRequest(), Actor{ID: 50, Role: "teacher"})
	require.NoError(t, err)

	listed, err := svc.ListByClass(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	found, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrActivityNotFound)
}
