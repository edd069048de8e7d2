package service

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/edutrilha/classe-api/internal/models"
	"github.com/edutrilha/classe-api/internal/repository"
	"github.com/edutrilha/classe-api/pkg/ai"
)

type fakeActivityRepo struct {
	mu         sync.Mutex
	activities map[uint]models.Activity
	nextID     uint
}

func newFakeActivityRepo(activities ...models.Activity) *fakeActivityRepo {
	repo := &fakeActivityRepo{activities: map[uint]models.Activity{}, nextID: 1}
	for _, activity := range activities {
		if activity.ID >= repo.nextID {
			repo.nextID = activity.ID + 1
		}
		repo.activities[activity.ID] = activity
	}
	return repo
}

func (r *fakeActivityRepo) ListByClass(_ context.Context, classID uint) ([]models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.Activity
	for id := uint(1); id < r.nextID; id++ {
		if activity, ok := r.activities[id]; ok && activity.ClassID == classID {
			result = append(result, activity)
		}
	}
	return result, nil
}

func (r *fakeActivityRepo) GetByID(_ context.Context, id uint) (models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[id]
	if !ok {
		return models.Activity{}, gorm.ErrRecordNotFound
	}
	return activity, nil
}

func (r *fakeActivityRepo) Create(_ context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity.ID = r.nextID
	r.nextID++
	r.activities[activity.ID] = *activity
	return nil
}

func (r *fakeActivityRepo) Update(_ context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activities[activity.ID] = *activity
	return nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.ActivitySubmission
	history     []models.SubmissionGradeHistory
	nextID      uint
	updateErr   error
}

func newFakeSubmissionRepo(submissions ...models.ActivitySubmission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: map[uint]models.ActivitySubmission{}, nextID: 1}
	for _, submission := range submissions {
		if submission.ID >= repo.nextID {
			repo.nextID = submission.ID + 1
		}
		repo.submissions[submission.ID] = submission
	}
	return repo
}

func (r *fakeSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.ActivitySubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.ActivitySubmission
	for id := uint(1); id < r.nextID; id++ {
		submission, ok := r.submissions[id]
		if !ok {
			continue
		}
		if filter.ActivityID != nil && submission.ActivityID != *filter.ActivityID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		result = append(result, submission)
	}
	return result, nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.ActivitySubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.submissions[id]
	if !ok {
		return models.ActivitySubmission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *fakeSubmissionRepo) GetByActivityAndStudent(_ context.Context, activityID, studentID uint) (models.ActivitySubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, submission := range r.submissions {
		if submission.ActivityID == activityID && submission.StudentID == studentID {
			return submission, nil
		}
	}
	return models.ActivitySubmission{}, gorm.ErrRecordNotFound
}

func (r *fakeSubmissionRepo) Upsert(_ context.Context, submission *models.ActivitySubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.submissions {
		if existing.ActivityID == submission.ActivityID && existing.StudentID == submission.StudentID {
			submission.ID = id
			r.submissions[id] = *submission
			return nil
		}
	}

	submission.ID = r.nextID
	r.nextID++
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) Update(_ context.Context, submission *models.ActivitySubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) CreateHistory(_ context.Context, history *models.SubmissionGradeHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history.ID = uint(len(r.history) + 1)
	r.history = append(r.history, *history)
	return nil
}

func (r *fakeSubmissionRepo) historyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

type rebuildCall struct {
	ClassID   uint
	StudentID uint
	Override  *GradeOverride
}

type fakeRebuilder struct {
	mu    sync.Mutex
	calls []rebuildCall
	err   error
}

func (f *fakeRebuilder) Rebuild(_ context.Context, classID, studentID uint, override *GradeOverride) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, rebuildCall{ClassID: classID, StudentID: studentID, Override: override})
	return f.err
}

func (f *fakeRebuilder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRebuilder) lastCall() (rebuildCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		return rebuildCall{}, false
	}
	return f.calls[len(f.calls)-1], true
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []GradeEvent
}

func (f *fakeNotifier) GradePublished(_ context.Context, event GradeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (f *fakeAudit) Record(_ context.Context, entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeGrader scores by item ID from a fixed table; unknown items error.
type fakeGrader struct {
	mu      sync.Mutex
	results map[string]ai.GradingResult
	errs    map[string]error
	calls   []string
}

func (f *fakeGrader) GradeAnswer(_ context.Context, input ai.GradingInput) (ai.GradingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, input.Question)
	if err, ok := f.errs[input.Question]; ok {
		return ai.GradingResult{}, err
	}
	if result, ok := f.results[input.Question]; ok {
		return result, nil
	}
	return ai.GradingResult{}, errors.New("no canned result")
}

// memorySessionStore keeps sessions in a map; the Redis-backed store is
// covered by its own tests.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.GradingSession
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: map[string]models.GradingSession{}}
}

func (s *memorySessionStore) Save(_ context.Context, session *models.GradingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, sessionID string) (models.GradingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return models.GradingSession{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s *memorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *memorySessionStore) has(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}
