package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edutrilha/classe-api/internal/models"
)

func newTestSessionStore(t *testing.T, ttl time.Duration) (GradingSessionStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewGradingSessionStore(client, ttl), server
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	session := models.GradingSession{
		ID:         "sess-1",
		ActivityID: 2,
		ClassID:    10,
		GraderID:   50,
		State:      models.SessionStateEditing,
		Roster: []models.RosterEntry{
			{StudentID: 7, StudentName: "Ana Souza", Status: models.SubmissionStatusAwaiting},
		},
		CurrentStudentID: 7,
		ItemGrades: map[string]models.ItemGrade{
			"q1": {Score: 1.5, AutoScore: 2, ManualOverride: true},
		},
		Answers:   map[string]string{"q1": "b"},
		Feedback:  "Quase lá.",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, &session))

	loaded, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, session.State, loaded.State)
	require.Equal(t, session.Roster, loaded.Roster)
	require.Equal(t, session.ItemGrades, loaded.ItemGrades)
	require.Equal(t, session.Answers, loaded.Answers)
	require.Equal(t, session.Feedback, loaded.Feedback)
}

func TestSessionStoreMissing(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreDelete(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	session := models.GradingSession{ID: "sess-2", State: models.SessionStateNoSubmissionSelected}
	require.NoError(t, store.Save(ctx, &session))
	require.NoError(t, store.Delete(ctx, "sess-2"))

	_, err := store.Get(ctx, "sess-2")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	store, server := newTestSessionStore(t, time.Minute)
	ctx := context.Background()

	session := models.GradingSession{ID: "sess-3", State: models.SessionStateNoSubmissionSelected}
	require.NoError(t, store.Save(ctx, &session))

	server.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-3")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
