package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edutrilha/classe-api/internal/config"
	"github.com/edutrilha/classe-api/internal/database"
	"github.com/edutrilha/classe-api/internal/handler"
	"github.com/edutrilha/classe-api/internal/middleware"
	"github.com/edutrilha/classe-api/internal/repository"
	"github.com/edutrilha/classe-api/internal/router"
	"github.com/edutrilha/classe-api/internal/service"
	"github.com/edutrilha/classe-api/pkg/ai"
	"github.com/edutrilha/classe-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.With().Str("app", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	natsConn, err := database.ConnectNATS(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, grade notifications limited to redis streams")
		natsConn = nil
	}

	var uploader service.FileUploader
	if cloudinaryService, err := cloudinary.New(cloudinary.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger); err != nil {
		logger.Warn().Err(err).Msg("cloudinary unavailable, activity attachments disabled")
	} else {
		uploader = cloudinaryService
	}

	grader := buildGrader(cfg, logger)

	validate := validator.New()

	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	summaryRepo := repository.NewGradeSummaryRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	sessionStore := repository.NewGradingSessionStore(redisClient, cfg.GradingSessionTTL)

	auditService := service.NewAuditService(auditRepo, logger)
	notifier := service.NewNotifier(natsConn, redisClient, cfg.NotificationChannel, logger)
	summaryService := service.NewGradeSummaryService(activityRepo, submissionRepo, summaryRepo, redisClient, cfg.SummaryCacheTTL, logger)
	activityService := service.NewActivityService(activityRepo, auditService, validate, uploader, logger)
	submissionService := service.NewSubmissionService(submissionRepo, activityRepo, summaryService, notifier, validate, logger)
	gradingService := service.NewGradingService(activityRepo, submissionRepo, sessionStore, summaryService, notifier, auditService, grader, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, router.Dependencies{
		Config:     cfg,
		Activity:   handler.NewActivityHandler(activityService),
		Submission: handler.NewSubmissionHandler(submissionService),
		Grading:    handler.NewGradingHandler(gradingService),
		Summary:    handler.NewSummaryHandler(summaryService),
		Audit:      handler.NewAuditHandler(auditService),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Msg("server started")

	waitForShutdown(app, logger, func() {
		if natsConn != nil {
			natsConn.Close()
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	})
}

func buildGrader(cfg config.Config, logger zerolog.Logger) ai.Grader {
	switch cfg.AIProvider {
	case "anthropic":
		grader, err := ai.NewAnthropicGrader(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			logger.Warn().Err(err).Msg("anthropic grader unavailable, ai grading disabled")
			return nil
		}
		return grader
	default:
		grader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Logger: logger})
		if err != nil {
			logger.Warn().Err(err).Msg("openai grader unavailable, ai grading disabled")
			return nil
		}
		return grader
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	cleanup()

	logger.Info().Msg("server stopped")
}
