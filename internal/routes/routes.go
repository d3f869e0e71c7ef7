package routes

import (
	"net/http"

	"github.com/templui/cortex/internal/app"
	"github.com/templui/cortex/internal/handler"
	"github.com/templui/cortex/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg.AppURL)
	account := handler.NewAccountHandler(app.AuthService, app.UserService)
	notes := handler.NewVoiceNoteHandler(app.VoiceNoteService, app.Metrics)
	blobs := handler.NewStorageHandler(app.VoiceNoteService, app.Metrics)
	transcribe := handler.NewTranscribeHandler(
		app.TranscriptionService,
		app.AuthService,
		app.RelayClient,
		app.Cfg.TranscribeFunctionURL,
		app.Metrics,
	)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.Handle("GET /metrics", app.Metrics.Handler())

	// ============================================================================
	// AUTH
	// ============================================================================

	rateLimiter := middleware.RateLimitAuth()

	// Emailed links land here
	mux.HandleFunc("GET /auth/callback", auth.Callback)

	mux.HandleFunc("POST /auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /auth/signin", rateLimiter(auth.Signin))
	mux.HandleFunc("POST /auth/magic-link", rateLimiter(auth.MagicLink))
	mux.HandleFunc("POST /auth/recover", rateLimiter(auth.Recover))
	mux.HandleFunc("POST /auth/verify", rateLimiter(auth.Verify))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /auth/user", middleware.RequireAuth(auth.User))

	// ============================================================================
	// PROTECTED API (/api/*)
	// ============================================================================

	// Notes
	mux.HandleFunc("GET /api/notes", middleware.RequireAuth(notes.List))
	mux.HandleFunc("POST /api/notes", middleware.RequireAuth(notes.Create))
	mux.HandleFunc("PATCH /api/notes/{id}", middleware.RequireAuth(notes.Update))
	mux.HandleFunc("DELETE /api/notes/{id}", middleware.RequireAuth(notes.Delete))

	// Audio blobs
	mux.HandleFunc("POST /api/storage/sign", middleware.RequireAuth(blobs.Sign))
	mux.HandleFunc("PUT /api/storage/{path...}", middleware.RequireAuth(blobs.Upload))
	mux.HandleFunc("DELETE /api/storage/{path...}", middleware.RequireAuth(blobs.Delete))

	// Transcription relay
	mux.HandleFunc("POST /api/transcribe", middleware.RequireAuth(transcribe.Relay))

	// Account
	mux.HandleFunc("PUT /api/account/password", middleware.RequireAuth(account.UpdatePassword))
	mux.HandleFunc("DELETE /api/account", middleware.RequireAuth(account.DeleteAccount))

	// ============================================================================
	// FUNCTIONS
	// ============================================================================

	// Verifies its own bearer credential
	mux.HandleFunc("POST /functions/v1/transcribe", transcribe.Function)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
		middleware.CSRFProtection(app.Cfg.IsProduction()), // needs the auth source
		middleware.RequestLogging(app.Metrics),            // innermost, reads the matched pattern
	)

	return handler
}
