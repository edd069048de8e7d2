package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edutrilha/classe-api/internal/models"
)

// ErrSessionNotFound indicates the grading session expired or never existed.
var ErrSessionNotFound = errors.New("grading session not found")

// GradingSessionStore keeps grading sessions alive for the duration of a
// grading workflow. Sessions expire on their own when the teacher abandons
// the screen without exiting.
type GradingSessionStore interface {
	Save(ctx context.Context, session *models.GradingSession) error
	Get(ctx context.Context, sessionID string) (models.GradingSession, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGradingSessionStore builds a Redis-backed session store.
func NewGradingSessionStore(client *redis.Client, ttl time.Duration) GradingSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("grading:session:%s", sessionID)
}

func (s *redisSessionStore) Save(ctx context.Context, session *models.GradingSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode grading session: %w", err)
	}

	return s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (models.GradingSession, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.GradingSession{}, ErrSessionNotFound
		}
		return models.GradingSession{}, err
	}

	var session models.GradingSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return models.GradingSession{}, fmt.Errorf("decode grading session: %w", err)
	}

	return session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}
