package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/jmoiron/sqlx"
	"github.com/templui/cortex/internal/config"
	"github.com/templui/cortex/internal/db"
	"github.com/templui/cortex/internal/metrics"
	"github.com/templui/cortex/internal/repository"
	"github.com/templui/cortex/internal/service"
	"github.com/templui/cortex/internal/storage"
)

type App struct {
	Cfg                  *config.Config
	DB                   *sqlx.DB
	Metrics              *metrics.Metrics
	Storage              storage.Storage
	TokenRepository      repository.TokenRepository
	AuthService          *service.AuthService
	UserService          *service.UserService
	EmailService         *service.EmailService
	VoiceNoteService     *service.VoiceNoteService
	TranscriptionService *service.TranscriptionService
	RelayClient          *resty.Client
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	voiceNoteRepository := repository.NewVoiceNoteRepository(database)

	// Storage
	audioStorage, err := storage.New(ctx, cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		emailService,
		service.AuthOptions{
			JWTSecret:       cfg.JWTSecret,
			JWTExpiry:       cfg.JWTExpiry,
			SignupExpiry:    cfg.TokenSignupExpiry,
			MagicLinkExpiry: cfg.TokenMagicLinkExpiry,
			RecoveryExpiry:  cfg.TokenRecoveryExpiry,
			AppURL:          cfg.AppURL,
			IsProduction:    cfg.IsProduction(),
			SignupEnabled:   cfg.SignupEnabled,
		},
	)
	voiceNoteService := service.NewVoiceNoteService(voiceNoteRepository, audioStorage, service.VoiceNoteOptions{
		MaxUploadSize: cfg.MaxUploadSize,
		DefaultExpiry: cfg.S3PresignExpiryPrivate,
		MaxExpiry:     cfg.S3PresignExpiryMax,
	})
	userService := service.NewUserService(userRepository, voiceNoteRepository, audioStorage, emailService)

	// Transcription stays reachable without a key; requests then fail with 500.
	var generator service.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := service.NewGeminiGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		generator = gemini
	} else {
		slog.Warn("GEMINI_API_KEY not set, transcription is disabled")
	}
	transcriptionService := service.NewTranscriptionService(voiceNoteService, generator, cfg.GeminiModels)

	return &App{
		Cfg:                  cfg,
		DB:                   database,
		Metrics:              metrics.New(),
		Storage:              audioStorage,
		TokenRepository:      tokenRepository,
		AuthService:          authService,
		UserService:          userService,
		EmailService:         emailService,
		VoiceNoteService:     voiceNoteService,
		TranscriptionService: transcriptionService,
		RelayClient:          resty.New(),
	}, nil
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
