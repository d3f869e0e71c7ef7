package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	StorageS3     = "s3"
	StorageMemory = "memory"
)

// DefaultGeminiModels is the order in which transcription models are tried.
var DefaultGeminiModels = []string{
	"gemini-1.5-pro-latest",
	"gemini-1.5-pro",
	"gemini-2.0-flash-exp",
	"gemini-pro",
}

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret            string
	JWTExpiry            time.Duration
	TokenSignupExpiry    time.Duration
	TokenMagicLinkExpiry time.Duration
	TokenRecoveryExpiry  time.Duration
	SignupEnabled        bool

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	StorageDriver          string
	S3Region               string
	S3Bucket               string
	S3AccessKey            string
	S3SecretKey            string
	S3Endpoint             string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3PresignExpiryPrivate time.Duration // Default expiry for signed audio URLs
	S3PresignExpiryMax     time.Duration // Upper bound a client may request
	MaxUploadSize          int64

	// Transcription
	TranscribeFunctionURL string // Relay target, defaults to this server's own function endpoint
	GeminiAPIKey          string
	GeminiModels          []string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	appURL := strings.TrimSuffix(envRequired("APP_URL"), "/")

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Cortex"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  appURL,                 // Required: base URL for email links and auth redirects
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", DriverSQLite),
		DBConnection: envString("DB_CONNECTION", "./data/cortex.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:            envRequired("JWT_SECRET"),
		JWTExpiry:            envDuration("JWT_EXPIRY", 168*time.Hour),                // 7 days
		TokenSignupExpiry:    envDuration("TOKEN_SIGNUP_EXPIRY", 24*time.Hour),        // 24 hours
		TokenMagicLinkExpiry: envDuration("TOKEN_MAGIC_LINK_EXPIRY", 10*time.Minute),  // 10 minutes
		TokenRecoveryExpiry:  envDuration("TOKEN_RECOVERY_EXPIRY", 1*time.Hour),       // 1 hour
		SignupEnabled:        envBool("SIGNUP_ENABLED", true),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageDriver:          envString("STORAGE_DRIVER", StorageS3),
		S3Region:               envString("S3_REGION", ""),
		S3Bucket:               envString("S3_BUCKET", "voice-notes"),
		S3AccessKey:            envString("S3_ACCESS_KEY", ""),
		S3SecretKey:            envString("S3_SECRET_KEY", ""),
		S3Endpoint:             envString("S3_ENDPOINT", ""),                          // Optional: for non-AWS providers
		S3PresignExpiryPrivate: envDuration("S3_PRESIGN_EXPIRY_PRIVATE", 1*time.Hour), // Matches the player's 3600s request
		S3PresignExpiryMax:     envDuration("S3_PRESIGN_EXPIRY_MAX", 168*time.Hour),
		MaxUploadSize:          envInt64("MAX_UPLOAD_SIZE", 50<<20), // 50MB

		// Transcription
		TranscribeFunctionURL: envString("TRANSCRIBE_FUNCTION_URL", appURL+"/functions/v1/transcribe"),
		GeminiAPIKey:          envString("GEMINI_API_KEY", ""),
		GeminiModels:          envList("GEMINI_MODELS", DefaultGeminiModels),
	}

	err = cfg.Validate()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// Validate checks field-level constraints that env parsing cannot express.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppEnv, validation.Required, validation.In("development", "production", "test")),
		validation.Field(&c.AppURL, validation.Required, is.URL),
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.DBDriver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.StorageDriver, validation.Required, validation.In(StorageS3, StorageMemory)),
		validation.Field(&c.S3Region, validation.When(c.StorageDriver == StorageS3, validation.Required)),
		validation.Field(&c.S3AccessKey, validation.When(c.StorageDriver == StorageS3, validation.Required)),
		validation.Field(&c.S3SecretKey, validation.When(c.StorageDriver == StorageS3, validation.Required)),
		validation.Field(&c.S3Bucket, validation.Required),
		validation.Field(&c.S3PresignExpiryPrivate, validation.Required, validation.Max(c.S3PresignExpiryMax)),
		validation.Field(&c.MaxUploadSize, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.GeminiModels, validation.Required),
	)
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email) to use fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.StorageDriver == StorageMemory {
		slog.Error("production deployment requires STORAGE_DRIVER=s3")
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, transcription requests will fail")
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
