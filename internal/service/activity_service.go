package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edutrilha/classe-api/internal/dto"
	"github.com/edutrilha/classe-api/internal/models"
	"github.com/edutrilha/classe-api/internal/repository"
)

// ErrInvalidUnidade indicates the grading period is outside the fixed set.
var ErrInvalidUnidade = errors.New("invalid unidade")

// ErrInvalidItems indicates the item list violates authoring rules.
var ErrInvalidItems = errors.New("invalid activity items")

// ErrUploadsDisabled indicates no upload backend is configured.
var ErrUploadsDisabled = errors.New("attachment uploads are disabled")

// FileUploader pushes an attachment to external storage and returns its URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ActivityService orchestrates activity authoring and reads.
type ActivityService interface {
	Create(ctx context.Context, payload dto.ActivityCreateRequest, actor Actor) (dto.ActivityResponse, error)
	ListByClass(ctx context.Context, classID uint) ([]dto.ActivityResponse, error)
	GetByID(ctx context.Context, id uint) (dto.ActivityResponse, error)
	AttachFile(ctx context.Context, activityID uint, file *multipart.FileHeader) (dto.ActivityResponse, error)
}

type activityService struct {
	activities repository.ActivityRepository
	audit      AuditRecorder
	validator  *validator.Validate
	uploader   FileUploader
	logger     zerolog.Logger
	now        func() time.Time
}

// NewActivityService constructs an ActivityService instance.
func NewActivityService(
	activities repository.ActivityRepository,
	audit AuditRecorder,
	validate *validator.Validate,
	uploader FileUploader,
	logger zerolog.Logger,
) ActivityService {
	return &activityService{
		activities: activities,
		audit:      audit,
		validator:  validate,
		uploader:   uploader,
		logger:     logger.With().Str("component", "activity_service").Logger(),
		now:        time.Now,
	}
}

func (s *activityService) Create(ctx context.Context, payload dto.ActivityCreateRequest, actor Actor) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	if !models.IsValidUnidade(payload.Unidade) {
		return dto.ActivityResponse{}, ErrInvalidUnidade
	}

	items, totalPoints, err := buildItems(payload.Items)
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	itemsPayload, err := json.Marshal(items)
	if err != nil {
		return dto.ActivityResponse{}, fmt.Errorf("encode items: %w", err)
	}

	objective := payload.ObjectiveQuestions
	if objective == "" {
		objective = models.ObjectiveGradingManual
	}

	activity := models.Activity{
		ClassID:       payload.ClassID,
		TeacherID:     actor.ID,
		Title:         payload.Title,
		Materia:       payload.Materia,
		Unidade:       payload.Unidade,
		Points:        totalPoints,
		Items:         itemsPayload,
		GradingConfig: models.GradingConfig{ObjectiveQuestions: objective},
	}

	if err := s.activities.Create(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, err
	}

	if s.audit != nil {
		entityID := activity.ID
		if err := s.audit.Record(ctx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "activity.created",
			EntityType: "activity",
			EntityID:   &entityID,
			Metadata: map[string]interface{}{
				"class_id": activity.ClassID,
				"points":   activity.Points,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record activity audit entry")
		}
	}

	s.logger.Info().Uint("activity_id", activity.ID).Msg("activity created")

	return dto.NewActivityResponse(activity), nil
}

// buildItems validates authoring rules and returns the canonical items plus
// the activity's max total score (the sum of item points).
func buildItems(requests []dto.ActivityItemRequest) ([]models.ActivityItem, float64, error) {
	seen := make(map[string]struct{}, len(requests))
	items := make([]models.ActivityItem, 0, len(requests))
	var total float64

	for _, request := range requests {
		if _, duplicate := seen[request.ID]; duplicate {
			return nil, 0, fmt.Errorf("%w: duplicate item id %q", ErrInvalidItems, request.ID)
		}
		seen[request.ID] = struct{}{}

		if request.Type == models.ItemTypeMultipleChoice {
			if len(request.Options) < 2 {
				return nil, 0, fmt.Errorf("%w: item %q needs at least two options", ErrInvalidItems, request.ID)
			}
			if request.CorrectOptionID != "" && !hasOption(request.Options, request.CorrectOptionID) {
				return nil, 0, fmt.Errorf("%w: item %q correct option not among options", ErrInvalidItems, request.ID)
			}
		}

		options := make([]models.ItemOption, 0, len(request.Options))
		for _, option := range request.Options {
			options = append(options, models.ItemOption{ID: option.ID, Text: option.Text})
		}

		items = append(items, models.ActivityItem{
			ID:              request.ID,
			Type:            request.Type,
			Question:        request.Question,
			Points:          request.Points,
			Options:         options,
			CorrectOptionID: request.CorrectOptionID,
		})
		total += request.Points
	}

	return items, total, nil
}

func hasOption(options []dto.ItemOptionRequest, id string) bool {
	for _, option := range options {
		if option.ID == id {
			return true
		}
	}
	return false
}

func (s *activityService) ListByClass(ctx context.Context, classID uint) ([]dto.ActivityResponse, error) {
	activities, err := s.activities.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	return dto.NewActivityResponseSlice(activities), nil
}

func (s *activityService) GetByID(ctx context.Context, id uint) (dto.ActivityResponse, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(activity), nil
}

// AttachFile uploads support material for an activity and stores its URL.
func (s *activityService) AttachFile(ctx context.Context, activityID uint, file *multipart.FileHeader) (dto.ActivityResponse, error) {
	if s.uploader == nil {
		return dto.ActivityResponse{}, ErrUploadsDisabled
	}

	if file == nil {
		return dto.ActivityResponse{}, fmt.Errorf("attachment file is required")
	}

	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	if err := validateAttachmentType(file); err != nil {
		return dto.ActivityResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.ActivityResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	uploadURL, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.ActivityResponse{}, fmt.Errorf("failed to upload attachment: %w", err)
	}

	activity.AttachmentURL = uploadURL
	if err := s.activities.Update(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, err
	}

	s.logger.Info().Uint("activity_id", activity.ID).Msg("attachment stored")

	return dto.NewActivityResponse(activity), nil
}

func validateAttachmentType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
