package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/models"
	"github.com/edutrilha/classe-api/internal/observability"
	"github.com/edutrilha/classe-api/internal/repository"
	"github.com/edutrilha/classe-api/pkg/ai"
)

// Grading errors surfaced to handlers.
var (
	ErrNoSubmissionSelected = errors.New("no submission selected")
	ErrSaveInProgress       = errors.New("a save is already in progress")
	ErrGradeOutOfRange      = errors.New("grade outside the activity's point range")
	ErrItemNotFound         = errors.New("item not found in activity")
	ErrItemNotText          = errors.New("item is not a text item")
	ErrScoreRequired        = errors.New("score is required for a manual override")
	ErrGraderUnavailable    = errors.New("ai grader is not configured")
)

// GradingService drives the teacher-side grading workflow: an explicit
// session per activity, per-item score edits, AI assistance for text items,
// and the save-and-advance contract.
type GradingService interface {
	StartSession(ctx context.Context, payload dto.GradingSessionStartRequest, actor Actor) (dto.GradingSessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (dto.GradingSessionResponse, error)
	SelectSubmission(ctx context.Context, sessionID string, payload dto.GradingSelectRequest) (dto.GradingSessionResponse, error)
	SetItemScore(ctx context.Context, sessionID, itemID string, payload dto.ItemScoreRequest) (dto.GradingSessionResponse, error)
	GradeTextItem(ctx context.Context, sessionID, itemID string) (dto.GradingSessionResponse, error)
	GradeAllTextItems(ctx context.Context, sessionID string) (dto.BulkGradeResponse, error)
	FilterRoster(ctx context.Context, sessionID string, payload dto.RosterFilterRequest) (dto.GradingSessionResponse, error)
	Save(ctx context.Context, sessionID string, payload dto.GradingSaveRequest) (dto.GradingSaveResponse, error)
	EndSession(ctx context.Context, sessionID string) error
}

type gradingService struct {
	activities  repository.ActivityRepository
	submissions repository.SubmissionRepository
	sessions    repository.GradingSessionStore
	summaries   SummaryRebuilder
	notifier    Notifier
	audit       AuditRecorder
	grader      ai.Grader
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	activities repository.ActivityRepository,
	submissions repository.SubmissionRepository,
	sessions repository.GradingSessionStore,
	summaries SummaryRebuilder,
	notifier Notifier,
	audit AuditRecorder,
	grader ai.Grader,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		activities:  activities,
		submissions: submissions,
		sessions:    sessions,
		summaries:   summaries,
		notifier:    notifier,
		audit:       audit,
		grader:      grader,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) StartSession(ctx context.Context, payload dto.GradingSessionStartRequest, actor Actor) (dto.GradingSessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	activity, err := s.activities.GetByID(ctx, payload.ActivityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSessionResponse{}, ErrActivityNotFound
		}
		return dto.GradingSessionResponse{}, err
	}

	filter := repository.SubmissionFilter{ActivityID: &activity.ID}
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	roster := make([]models.RosterEntry, 0, len(submissions))
	for _, submission := range submissions {
		roster = append(roster, models.RosterEntry{
			StudentID:   submission.StudentID,
			StudentName: submission.StudentName,
			Status:      submission.Status,
		})
	}

	session := models.GradingSession{
		ID:         uuid.NewString(),
		ActivityID: activity.ID,
		ClassID:    activity.ClassID,
		GraderID:   actor.ID,
		State:      models.SessionStateNoSubmissionSelected,
		Roster:     roster,
		CreatedAt:  s.now(),
	}

	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Uint("activity_id", activity.ID).
		Int("roster_size", len(roster)).
		Msg("grading session started")

	return s.sessionResponse(session, activity), nil
}

func (s *gradingService) GetSession(ctx context.Context, sessionID string) (dto.GradingSessionResponse, error) {
	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	return s.sessionResponse(session, activity), nil
}

// SelectSubmission loads one student into the session and initializes the
// per-item scores: the persisted scores map when present (resume), else a
// fresh auto-grade pass. Idempotent — saved AI or manual work is never
// re-run.
func (s *gradingService) SelectSubmission(ctx context.Context, sessionID string, payload dto.GradingSelectRequest) (dto.GradingSessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	if session.Saving() {
		return dto.GradingSessionResponse{}, ErrSaveInProgress
	}

	if err := s.loadStudent(ctx, &session, activity, payload.StudentID); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	return s.sessionResponse(session, activity), nil
}

// loadStudent fills the session's working state from one student's
// submission.
func (s *gradingService) loadStudent(ctx context.Context, session *models.GradingSession, activity models.Activity, studentID uint) error {
	submission, err := s.submissions.GetByActivityAndStudent(ctx, activity.ID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	items, err := activity.NormalizedItems()
	if err != nil {
		return err
	}

	answers, err := submission.AnswerMap()
	if err != nil {
		return err
	}

	persisted, err := submission.ScoreMap()
	if err != nil {
		return err
	}

	grades := make(map[string]models.ItemGrade, len(items))
	for _, item := range items {
		auto := item.AutoScore(answers[item.ID])
		grade := models.ItemGrade{Score: auto, AutoScore: auto}

		if persisted != nil {
			if saved, ok := persisted[item.ID]; ok {
				grade.Score = saved
				// Any persisted text score is finalized work (manual or AI),
				// including one equal to the automatic zero. For choice items
				// only a value differing from the automatic one marks an
				// override.
				grade.ManualOverride = item.Type == models.ItemTypeText || saved != auto
			}
		}

		grades[item.ID] = grade
	}

	session.CurrentStudentID = studentID
	session.ItemGrades = grades
	session.Answers = answers
	session.Feedback = submission.Feedback
	session.State = models.SessionStateSubmissionLoaded

	return nil
}

// SetItemScore edits one item's working score. While the manual override is
// unset the score is derived: clearing the override restores exactly the
// automatic scorer's value, discarding anything typed.
func (s *gradingService) SetItemScore(ctx context.Context, sessionID, itemID string, payload dto.ItemScoreRequest) (dto.GradingSessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	if session.Saving() {
		return dto.GradingSessionResponse{}, ErrSaveInProgress
	}

	if session.CurrentStudentID == 0 {
		return dto.GradingSessionResponse{}, ErrNoSubmissionSelected
	}

	item, err := findItem(activity, itemID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	grade := session.ItemGrades[item.ID]

	if payload.ManualOverride || item.Type == models.ItemTypeText {
		if payload.Score == nil {
			return dto.GradingSessionResponse{}, ErrScoreRequired
		}
		if *payload.Score < 0 || *payload.Score > item.Points {
			return dto.GradingSessionResponse{}, ErrGradeOutOfRange
		}
		grade.Score = *payload.Score
		grade.ManualOverride = true
	} else {
		grade.Score = grade.AutoScore
		grade.ManualOverride = false
	}

	session.ItemGrades[item.ID] = grade
	session.State = models.SessionStateEditing

	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	return s.sessionResponse(session, activity), nil
}

// GradeTextItem asks the AI grader for a score and feedback on one text
// item. The returned grade is clamped to the item's points and the feedback
// is appended with a label naming the item it answers. On failure the item's
// score is left unchanged.
func (s *gradingService) GradeTextItem(ctx context.Context, sessionID, itemID string) (dto.GradingSessionResponse, error) {
	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	if session.Saving() {
		return dto.GradingSessionResponse{}, ErrSaveInProgress
	}

	if session.CurrentStudentID == 0 {
		return dto.GradingSessionResponse{}, ErrNoSubmissionSelected
	}

	item, err := findItem(activity, itemID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	if err := s.gradeTextItemInSession(ctx, &session, item); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	session.State = models.SessionStateEditing

	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	return s.sessionResponse(session, activity), nil
}

func (s *gradingService) gradeTextItemInSession(ctx context.Context, session *models.GradingSession, item models.ActivityItem) error {
	if s.grader == nil {
		return ErrGraderUnavailable
	}

	if item.Type != models.ItemTypeText {
		return ErrItemNotText
	}

	result, err := s.grader.GradeAnswer(ctx, ai.GradingInput{
		Question:  item.Question,
		Answer:    session.Answers[item.ID],
		MaxPoints: item.Points,
	})
	if err != nil {
		return err
	}

	score := result.Grade
	if score < 0 {
		score = 0
	}
	if score > item.Points {
		score = item.Points
	}

	grade := session.ItemGrades[item.ID]
	grade.Score = score
	grade.ManualOverride = true
	session.ItemGrades[item.ID] = grade

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(result.Feedback))
	if feedback != "" {
		labeled := fmt.Sprintf("Questão %s: %s", item.ID, feedback)
		if session.Feedback == "" {
			session.Feedback = labeled
		} else {
			session.Feedback = session.Feedback + "\n\n" + labeled
		}
	}

	return nil
}

// GradeAllTextItems runs the AI grader over every text item, strictly
// sequentially — feedback is accumulated in item order and concurrent calls
// would race on it. A failing item keeps its current score and the loop
// proceeds; items already manually overridden are skipped.
func (s *gradingService) GradeAllTextItems(ctx context.Context, sessionID string) (dto.BulkGradeResponse, error) {
	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.BulkGradeResponse{}, err
	}

	if session.Saving() {
		return dto.BulkGradeResponse{}, ErrSaveInProgress
	}

	if session.CurrentStudentID == 0 {
		return dto.BulkGradeResponse{}, ErrNoSubmissionSelected
	}

	items, err := activity.NormalizedItems()
	if err != nil {
		return dto.BulkGradeResponse{}, err
	}

	response := dto.BulkGradeResponse{
		Graded:  []string{},
		Failed:  []string{},
		Skipped: []string{},
	}

	for _, item := range items {
		if item.Type != models.ItemTypeText {
			continue
		}

		if grade, ok := session.ItemGrades[item.ID]; ok && grade.ManualOverride {
			response.Skipped = append(response.Skipped, item.ID)
			continue
		}

		if err := s.gradeTextItemInSession(ctx, &session, item); err != nil {
			s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("ai grading failed for item")
			response.Failed = append(response.Failed, item.ID)
			continue
		}

		response.Graded = append(response.Graded, item.ID)
	}

	session.State = models.SessionStateEditing

	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.BulkGradeResponse{}, err
	}

	snapshot := s.sessionResponse(session, activity)
	response.Session = &snapshot

	return response, nil
}

func (s *gradingService) FilterRoster(ctx context.Context, sessionID string, payload dto.RosterFilterRequest) (dto.GradingSessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.GradingSessionResponse{}, err
	}

	session.NameFilter = payload.Name
	session.StatusFilter = payload.Status

	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.GradingSessionResponse{}, err
	}

	return s.sessionResponse(session, activity), nil
}

// Save validates and persists the current grading state, then advances per
// the requested action. The grading save is reported successful regardless
// of the fire-and-forget summary rebuild and notification outcomes.
func (s *gradingService) Save(ctx context.Context, sessionID string, payload dto.GradingSaveRequest) (dto.GradingSaveResponse, error) {
	tracer := otel.Tracer("github.com/edutrilha/classe-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.save")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingSaveResponse{}, err
	}

	session, activity, err := s.loadSessionAndActivity(ctx, sessionID)
	if err != nil {
		return dto.GradingSaveResponse{}, err
	}

	span.SetAttributes(
		attribute.String("grading.session_id", session.ID),
		attribute.Int64("grading.activity_id", int64(activity.ID)),
		attribute.Int64("grading.student_id", int64(session.CurrentStudentID)),
	)

	if session.Saving() {
		observability.GradingSaves().WithLabelValues("rejected").Inc()
		return dto.GradingSaveResponse{}, ErrSaveInProgress
	}

	if session.CurrentStudentID == 0 {
		return dto.GradingSaveResponse{}, ErrNoSubmissionSelected
	}

	if payload.Feedback != nil {
		session.Feedback = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Feedback))
	}

	total := session.Total()
	maxPoints := activity.MaxPoints()
	if total < 0 || total > maxPoints {
		span.SetStatus(codes.Error, "grade_out_of_range")
		observability.GradingSaves().WithLabelValues("rejected").Inc()
		return dto.GradingSaveResponse{}, fmt.Errorf("%w: %.1f not in [0, %.1f]", ErrGradeOutOfRange, total, maxPoints)
	}

	// Busy gate: the stored session rejects re-entrant saves until this one
	// settles. Advisory only — there is no cross-client lock and concurrent
	// graders remain last-write-wins at the row level.
	session.State = models.SessionStateSaving
	if err := s.sessions.Save(ctx, &session); err != nil {
		return dto.GradingSaveResponse{}, err
	}

	submission, err := s.submissions.GetByActivityAndStudent(ctx, activity.ID, session.CurrentStudentID)
	if err != nil {
		s.restoreEditing(ctx, &session)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSaveResponse{}, ErrSubmissionNotFound
		}
		return dto.GradingSaveResponse{}, err
	}

	scoresPayload, err := json.Marshal(session.ScoresMap())
	if err != nil {
		s.restoreEditing(ctx, &session)
		return dto.GradingSaveResponse{}, fmt.Errorf("encode scores: %w", err)
	}

	gradedAt := s.now()
	gradedBy := session.GraderID
	submission.Status = models.SubmissionStatusCorrected
	submission.Grade = &total
	submission.Feedback = session.Feedback
	submission.Scores = scoresPayload
	submission.GradedAt = &gradedAt
	submission.GradedBy = &gradedBy

	if err := s.submissions.Update(ctx, &submission); err != nil {
		// Leave the session editable so the teacher can retry without
		// re-entering anything.
		s.restoreEditing(ctx, &session)
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		observability.GradingSaves().WithLabelValues("error").Inc()
		return dto.GradingSaveResponse{}, err
	}

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        total,
		Feedback:     session.Feedback,
		GradedBy:     gradedBy,
		GradedAt:     gradedAt,
	}
	if err := s.submissions.CreateHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading history")
	}

	if s.audit != nil {
		entityID := submission.ID
		if err := s.audit.Record(ctx, AuditEntry{
			ActorID:    gradedBy,
			ActorRole:  "teacher",
			Action:     "submission.graded",
			EntityType: "submission",
			EntityID:   &entityID,
			Metadata: map[string]interface{}{
				"activity_id": activity.ID,
				"student_id":  submission.StudentID,
				"grade":       total,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record grading audit entry")
		}
	}

	s.afterGradingSave(ctx, activity, submission, total)

	session.MarkRosterStatus(submission.StudentID, models.SubmissionStatusCorrected)

	response := dto.GradingSaveResponse{Submission: dto.NewSubmissionResponse(submission)}

	switch payload.Action {
	case models.SaveActionStay:
		session.State = models.SessionStateSaved
		if err := s.sessions.Save(ctx, &session); err != nil {
			return dto.GradingSaveResponse{}, err
		}
		snapshot := s.sessionResponse(session, activity)
		response.Session = &snapshot

	case models.SaveActionNext:
		nextID, ok := session.NextStudentID()
		if !ok {
			// "next" on the last student degrades to exit.
			if err := s.sessions.Delete(ctx, session.ID); err != nil {
				s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to delete grading session")
			}
			response.Exited = true
			break
		}

		if err := s.loadStudent(ctx, &session, activity, nextID); err != nil {
			return dto.GradingSaveResponse{}, err
		}
		if err := s.sessions.Save(ctx, &session); err != nil {
			return dto.GradingSaveResponse{}, err
		}
		response.NextStudentID = &nextID
		snapshot := s.sessionResponse(session, activity)
		response.Session = &snapshot

	case models.SaveActionExit:
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to delete grading session")
		}
		response.Exited = true
	}

	span.SetAttributes(attribute.Float64("grading.grade", total))
	observability.GradingSaves().WithLabelValues("saved").Inc()

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Float64("grade", total).
		Str("action", payload.Action).
		Msg("grading saved")

	return response, nil
}

// afterGradingSave runs the best-effort side effects of a save. The save is
// already successful; failures here are logged and swallowed.
func (s *gradingService) afterGradingSave(ctx context.Context, activity models.Activity, submission models.ActivitySubmission, grade float64) {
	background := context.WithoutCancel(ctx)

	if s.summaries != nil {
		override := &GradeOverride{ActivityID: activity.ID, Grade: grade}
		go func() {
			if err := s.summaries.Rebuild(background, activity.ClassID, submission.StudentID, override); err != nil {
				s.logger.Warn().Err(err).Uint("student_id", submission.StudentID).Msg("grade summary rebuild failed after save")
			}
		}()
	}

	if s.notifier != nil {
		go s.notifier.GradePublished(background, GradeEvent{
			StudentID:     submission.StudentID,
			ActivityID:    activity.ID,
			ActivityTitle: activity.Title,
			Grade:         grade,
		})
	}
}

func (s *gradingService) EndSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *gradingService) restoreEditing(ctx context.Context, session *models.GradingSession) {
	session.State = models.SessionStateEditing
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to restore session state")
	}
}

func (s *gradingService) loadSessionAndActivity(ctx context.Context, sessionID string) (models.GradingSession, models.Activity, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.GradingSession{}, models.Activity{}, err
	}

	activity, err := s.activities.GetByID(ctx, session.ActivityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingSession{}, models.Activity{}, ErrActivityNotFound
		}
		return models.GradingSession{}, models.Activity{}, err
	}

	return session, activity, nil
}

func (s *gradingService) sessionResponse(session models.GradingSession, activity models.Activity) dto.GradingSessionResponse {
	items, err := activity.NormalizedItems()
	if err != nil {
		items = nil
	}

	return dto.NewGradingSessionResponse(session, items)
}

func findItem(activity models.Activity, itemID string) (models.ActivityItem, error) {
	items, err := activity.NormalizedItems()
	if err != nil {
		return models.ActivityItem{}, err
	}

	for _, item := range items {
		if item.ID == itemID {
			return item, nil
		}
	}

	return models.ActivityItem{}, ErrItemNotFound
}
