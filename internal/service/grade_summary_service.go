package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/models"
	"github.com/edutrilha/classe-api/internal/repository"
)

// ErrSummaryNotFound indicates no rollup exists yet for the pair; a student
// has no summary before their first corrected submission in the class.
var ErrSummaryNotFound = errors.New("grade summary not found")

// GradeOverride substitutes an in-flight grade not yet visible in the
// submission rows, so the rollup triggered by a save already reflects it.
type GradeOverride struct {
	ActivityID uint
	Grade      float64
}

// SummaryRebuilder is the narrow contract grading and submission flows
// depend on. Rebuild failures must never block the save that triggered them.
type SummaryRebuilder interface {
	Rebuild(ctx context.Context, classID, studentID uint, override *GradeOverride) error
}

// GradeSummaryService maintains and serves the denormalized grade rollups.
type GradeSummaryService interface {
	SummaryRebuilder
	Get(ctx context.Context, classID, studentID uint) (dto.GradeSummaryResponse, error)
}

type gradeSummaryService struct {
	activities  repository.ActivityRepository
	submissions repository.SubmissionRepository
	summaries   repository.GradeSummaryRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradeSummaryService builds the summary aggregator.
func NewGradeSummaryService(
	activities repository.ActivityRepository,
	submissions repository.SubmissionRepository,
	summaries repository.GradeSummaryRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) GradeSummaryService {
	return &gradeSummaryService{
		activities:  activities,
		submissions: submissions,
		summaries:   summaries,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "grade_summary_service").Logger(),
		now:         time.Now,
	}
}

func summaryCacheKey(classID, studentID uint) string {
	return fmt.Sprintf("summary:class:%d:student:%d", classID, studentID)
}

// Rebuild recomputes the full rollup for one (class, student) pair and
// upserts it. Always a full rebuild over every activity of the class, never
// an incremental patch, so the cache cannot drift from the submissions.
func (s *gradeSummaryService) Rebuild(ctx context.Context, classID, studentID uint, override *GradeOverride) error {
	activities, err := s.activities.ListByClass(ctx, classID)
	if err != nil {
		return fmt.Errorf("list class activities: %w", err)
	}

	filter := repository.SubmissionFilter{StudentID: &studentID}
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list student submissions: %w", err)
	}

	byActivity := make(map[uint]models.ActivitySubmission, len(submissions))
	for _, submission := range submissions {
		byActivity[submission.ActivityID] = submission
	}

	report := buildReport(activities, byActivity, override)

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode summary report: %w", err)
	}

	summary := models.StudentGradeSummary{
		ClassID:   classID,
		StudentID: studentID,
		Report:    payload,
		UpdatedAt: s.now(),
	}

	if err := s.summaries.Upsert(ctx, &summary); err != nil {
		return fmt.Errorf("upsert grade summary: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, summaryCacheKey(classID, studentID)).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate summary cache")
		}
	}

	s.logger.Debug().Uint("class_id", classID).Uint("student_id", studentID).Msg("grade summary rebuilt")

	return nil
}

// buildReport aggregates corrected grades by (unidade, materia). Output is
// deterministic: unidades in their fixed order, materias sorted, activities
// in class order (ID ascending, the order ListByClass returns).
func buildReport(activities []models.Activity, byActivity map[uint]models.ActivitySubmission, override *GradeOverride) []models.UnidadeSummary {
	type materiaKey struct {
		unidade string
		materia string
	}

	grouped := make(map[materiaKey][]models.SummaryActivity)

	for _, activity := range activities {
		submission, ok := byActivity[activity.ID]

		status := submission.Status
		grade := submission.Grade
		if override != nil && override.ActivityID == activity.ID {
			status = models.SubmissionStatusCorrected
			value := override.Grade
			grade = &value
			ok = true
		}

		if !ok || status != models.SubmissionStatusCorrected || grade == nil {
			continue
		}

		key := materiaKey{unidade: activity.Unidade, materia: activity.Materia}
		grouped[key] = append(grouped[key], models.SummaryActivity{
			ActivityID: activity.ID,
			Title:      activity.Title,
			Grade:      *grade,
			MaxPoints:  activity.MaxPoints(),
		})
	}

	report := make([]models.UnidadeSummary, 0, len(models.Unidades))
	for _, unidade := range models.Unidades {
		var materias []string
		for key := range grouped {
			if key.unidade == unidade {
				materias = append(materias, key.materia)
			}
		}
		if len(materias) == 0 {
			continue
		}
		sort.Strings(materias)

		unidadeSummary := models.UnidadeSummary{Unidade: unidade}
		for _, materia := range materias {
			entries := grouped[materiaKey{unidade: unidade, materia: materia}]

			var total float64
			for _, entry := range entries {
				total += entry.Grade
			}

			unidadeSummary.Materias = append(unidadeSummary.Materias, models.MateriaSummary{
				Materia:     materia,
				Activities:  entries,
				TotalPoints: models.RoundGrade(total),
			})
		}

		report = append(report, unidadeSummary)
	}

	return report
}

func (s *gradeSummaryService) Get(ctx context.Context, classID, studentID uint) (dto.GradeSummaryResponse, error) {
	cacheKey := summaryCacheKey(classID, studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.GradeSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
	}

	summary, err := s.summaries.GetByClassAndStudent(ctx, classID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeSummaryResponse{}, ErrSummaryNotFound
		}
		return dto.GradeSummaryResponse{}, err
	}

	response := dto.NewGradeSummaryResponse(summary)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return response, nil
}
