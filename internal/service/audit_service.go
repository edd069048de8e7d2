package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/models"
	"github.com/edutrilha/classe-api/internal/repository"
)

// Actor represents the authenticated user performing an action.
type Actor struct {
	ID   uint
	Role string
}

// AuditEntry captures the details required to persist an audit record.
type AuditEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// AuditRecorder defines behaviour for recording audit entries. Recording is
// best-effort; callers log failures and continue.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditService exposes methods to persist and query audit entries.
type AuditService interface {
	AuditRecorder
	ListRecent(ctx context.Context, limit int) ([]dto.AuditLogResponse, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("audit action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("audit entity type is required")
	}

	record := models.AuditLog{
		ActorID:    entry.ActorID,
		ActorRole:  strings.ToLower(strings.TrimSpace(entry.ActorRole)),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		return err
	}

	s.logger.Debug().Str("action", record.Action).Uint("actor_id", record.ActorID).Msg("audit entry recorded")

	return nil
}

func (s *auditService) ListRecent(ctx context.Context, limit int) ([]dto.AuditLogResponse, error) {
	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewAuditLogResponseSlice(entries), nil
}
