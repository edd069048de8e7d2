package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const gradeStreamMaxLen = 1024

// GradeEvent announces a grading decision to interested listeners.
type GradeEvent struct {
	EventID       string    `json:"event_id"`
	StudentID     uint      `json:"student_id"`
	ActivityID    uint      `json:"activity_id"`
	ActivityTitle string    `json:"activity_title"`
	Grade         float64   `json:"grade"`
	Automatic     bool      `json:"automatic"`
	SentAt        time.Time `json:"sent_at"`
}

// Notifier emits grade notifications. Calls are fire-and-forget: they are
// never awaited by grading logic and may fail silently (logged only).
type Notifier interface {
	GradePublished(ctx context.Context, event GradeEvent)
}

type notifierService struct {
	nats        *nats.Conn
	natsSubject string
	redis       *redis.Client
	redisStream string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewNotifier constructs the notification emitter. Both backends are
// optional; a nil client simply disables that channel.
func NewNotifier(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) Notifier {
	if channelBase == "" {
		channelBase = "classe"
	}

	return &notifierService{
		nats:        natsConn,
		natsSubject: channelBase + ".notifications.grades",
		redis:       redisClient,
		redisStream: channelBase + ":notifications:grades",
		logger:      logger.With().Str("component", "notifier").Logger(),
		now:         time.Now,
	}
}

func (s *notifierService) GradePublished(ctx context.Context, event GradeEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.SentAt.IsZero() {
		event.SentAt = s.now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode grade event")
		return
	}

	if s.nats != nil {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Str("subject", s.natsSubject).Msg("failed to publish grade event to nats")
		}
	}

	if s.redis != nil {
		if err := s.redis.XAdd(ctx, &redis.XAddArgs{
			Stream: s.redisStream,
			MaxLen: gradeStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"payload": string(payload)},
		}).Err(); err != nil {
			s.logger.Warn().Err(err).Str("stream", s.redisStream).Msg("failed to append grade event to redis stream")
		}
	}
}
