package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/models"
	"github.com/edutrilha/classe-api/internal/repository"
)

// ErrActivityNotFound indicates the activity could not be found.
var ErrActivityNotFound = errors.New("activity not found")

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrInvalidAnswerPayload indicates the answer map failed schema validation.
var ErrInvalidAnswerPayload = errors.New("invalid answer payload")

// answerSchema constrains the submitted content: an object mapping item IDs
// to string answers (chosen option ID or free text).
const answerSchema = `{
	"type": "object",
	"propertyNames": {"minLength": 1},
	"additionalProperties": {"type": "string"}
}`

var compiledAnswerSchema = jsonschema.MustCompileString("answers.json", answerSchema)

// SubmissionService orchestrates the student submission flow.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	GetForStudent(ctx context.Context, activityID, studentID uint) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	activities  repository.ActivityRepository
	summaries   SummaryRebuilder
	notifier    Notifier
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	activities repository.ActivityRepository,
	summaries SummaryRebuilder,
	notifier Notifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		activities:  activities,
		summaries:   summaries,
		notifier:    notifier,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Submit records a student's answers, computing the automatic score at
// submit time. An all-objective activity configured for automatic grading is
// closed immediately; anything with a text item awaits correction. Writing
// again overwrites the prior record entirely.
func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	answers, err := s.decodeAnswers(payload.Content)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	activity, err := s.activities.GetByID(ctx, payload.ActivityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrActivityNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	items, err := activity.NormalizedItems()
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	allObjective := true
	scores := make(map[string]float64, len(items))
	var earned float64
	for _, item := range items {
		if item.Type != models.ItemTypeMultipleChoice {
			allObjective = false
			continue
		}
		score := item.AutoScore(answers[item.ID])
		scores[item.ID] = score
		earned += score
	}

	content, err := json.Marshal(answers)
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("encode answers: %w", err)
	}

	now := s.now()
	submission := models.ActivitySubmission{
		ActivityID:  activity.ID,
		StudentID:   payload.StudentID,
		StudentName: strings.TrimSpace(payload.StudentName),
		Content:     content,
		Status:      models.SubmissionStatusAwaiting,
		SubmittedAt: now,
	}

	autoCorrected := allObjective && activity.GradingConfig.ObjectiveQuestions == models.ObjectiveGradingAutomatic
	if autoCorrected {
		grade := models.RoundGrade(earned)
		scoresPayload, err := json.Marshal(scores)
		if err != nil {
			return dto.SubmissionResponse{}, fmt.Errorf("encode scores: %w", err)
		}

		gradedAt := now
		submission.Status = models.SubmissionStatusCorrected
		submission.Grade = &grade
		submission.Feedback = models.AutoCorrectionFeedback
		submission.Scores = scoresPayload
		submission.GradedAt = &gradedAt
	}

	if err := s.submissions.Upsert(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	stored, err := s.submissions.GetByActivityAndStudent(ctx, activity.ID, payload.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("activity_id", activity.ID).
		Uint("student_id", payload.StudentID).
		Bool("auto_corrected", autoCorrected).
		Msg("submission recorded")

	if autoCorrected {
		s.afterAutomaticCorrection(ctx, activity, stored)
	}

	return dto.NewSubmissionResponse(stored), nil
}

// afterAutomaticCorrection runs the best-effort side effects of an automatic
// grading decision. Neither is awaited by the caller's success path.
func (s *submissionService) afterAutomaticCorrection(ctx context.Context, activity models.Activity, submission models.ActivitySubmission) {
	background := context.WithoutCancel(ctx)

	if s.summaries != nil {
		go func() {
			if err := s.summaries.Rebuild(background, activity.ClassID, submission.StudentID, nil); err != nil {
				s.logger.Warn().Err(err).Uint("student_id", submission.StudentID).Msg("grade summary rebuild failed after automatic correction")
			}
		}()
	}

	if s.notifier != nil {
		grade := 0.0
		if submission.Grade != nil {
			grade = *submission.Grade
		}
		go s.notifier.GradePublished(background, GradeEvent{
			StudentID:     submission.StudentID,
			ActivityID:    activity.ID,
			ActivityTitle: activity.Title,
			Grade:         grade,
			Automatic:     true,
		})
	}
}

// decodeAnswers validates the raw content against the answer schema and
// sanitizes free-text values.
func (s *submissionService) decodeAnswers(raw json.RawMessage) (map[string]string, error) {
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswerPayload, err)
	}

	if err := compiledAnswerSchema.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswerPayload, err)
	}

	var answers map[string]string
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswerPayload, err)
	}

	for itemID, answer := range answers {
		answers[itemID] = strings.TrimSpace(s.sanitizer.Sanitize(answer))
	}

	return answers, nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		ActivityID: filter.ActivityID,
		StudentID:  filter.StudentID,
		Status:     filter.Status,
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) GetForStudent(ctx context.Context, activityID, studentID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByActivityAndStudent(ctx, activityID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}
