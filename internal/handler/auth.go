package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/cortex/internal/ctxkeys"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	appURL      string
}

func NewAuthHandler(authService *service.AuthService, appURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		appURL:      appURL,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	TokenHash string `json:"token_hash"`
	Type      string `json:"type"`
}

// SessionResponse is returned by sign-in and verification.
type SessionResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *model.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Callback verifies an emailed one-time link, sets the session cookie and
// redirects to next. Any failure lands on /?error=auth_failed.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokenHash := q.Get("token_hash")
	tokenType := q.Get("type")

	if tokenHash == "" || tokenType == "" {
		http.Redirect(w, r, h.appURL+"/?error=auth_failed", http.StatusSeeOther)
		return
	}

	user, err := h.authService.VerifyOTP(r.Context(), tokenHash, tokenType)
	if err != nil {
		slog.Warn("auth callback verification failed", "error", err, "type", tokenType)
		http.Redirect(w, r, h.appURL+"/?error=auth_failed", http.StatusSeeOther)
		return
	}

	_, ok := h.startSession(w, user)
	if !ok {
		http.Redirect(w, r, h.appURL+"/?error=auth_failed", http.StatusSeeOther)
		return
	}

	slog.Info("user signed in via link", "user_id", user.ID, "type", tokenType)
	http.Redirect(w, r, h.authService.ResolveNext(q.Get("next")), http.StatusSeeOther)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.authService.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "signup failed")
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "Check your email to confirm your account"})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "signin failed")
		return
	}

	session, ok := h.startSession(w, user)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.authService.SendMagicLink(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err, "magic link failed")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Check your email for the sign-in link"})
}

func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.authService.SendRecoveryLink(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err, "recovery failed")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "If the account exists, a sign-in link is on its way"})
}

// Verify is the JSON twin of Callback for clients that cannot follow a
// browser redirect.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.VerifyOTP(r.Context(), req.TokenHash, req.Type)
	if err != nil {
		writeServiceError(w, err, "verification failed", "type", req.Type)
		return
	}

	session, ok := h.startSession(w, user)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// User returns the authenticated user.
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ctxkeys.User(r.Context()))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User) (*SessionResponse, bool) {
	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		return nil, false
	}

	h.authService.SetJWTCookie(w, token, expiresAt)

	return &SessionResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, true
}
