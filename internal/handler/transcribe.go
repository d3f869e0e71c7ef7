package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/templui/cortex/internal/ctxkeys"
	"github.com/templui/cortex/internal/metrics"
	"github.com/templui/cortex/internal/service"
)

type TranscribeHandler struct {
	transcriptionService *service.TranscriptionService
	authService          *service.AuthService
	relay                *resty.Client
	functionURL          string
	metrics              *metrics.Metrics
}

func NewTranscribeHandler(
	transcriptionService *service.TranscriptionService,
	authService *service.AuthService,
	relay *resty.Client,
	functionURL string,
	m *metrics.Metrics,
) *TranscribeHandler {
	return &TranscribeHandler{
		transcriptionService: transcriptionService,
		authService:          authService,
		relay:                relay,
		functionURL:          functionURL,
		metrics:              m,
	}
}

type transcribeRequest struct {
	FilePath string `json:"filePath"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Relay forwards a transcription request to the transcription function with
// the caller's credential. Cookie sessions are forwarded as a bearer token.
func (h *TranscribeHandler) Relay(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "File path is required")
		return
	}

	if h.functionURL == "" {
		writeError(w, http.StatusInternalServerError, "Transcription service not configured")
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" && ctxkeys.AccessToken(r.Context()) != "" {
		authHeader = "Bearer " + ctxkeys.AccessToken(r.Context())
	}
	if authHeader == "" {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	resp, err := h.relay.R().
		SetContext(r.Context()).
		SetHeader("Authorization", authHeader).
		SetBody(transcribeRequest{FilePath: req.FilePath}).
		Post(h.functionURL)
	if err != nil {
		slog.Error("transcription relay failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !resp.IsSuccess() {
		var upstream errorResponse
		message := "Failed to transcribe audio"
		if json.Unmarshal(resp.Body(), &upstream) == nil && upstream.Error != "" {
			message = upstream.Error
		}
		writeError(w, resp.StatusCode(), message)
		return
	}

	var out transcribeResponse
	err = json.Unmarshal(resp.Body(), &out)
	if err != nil {
		slog.Error("transcription relay returned invalid body", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// Function downloads the caller's audio from storage and transcribes it.
// Checks run in a fixed order: body, model configuration, credential.
func (h *TranscribeHandler) Function(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req transcribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "File path is required")
		return
	}

	if !h.transcriptionService.Configured() {
		writeError(w, http.StatusInternalServerError, "Gemini API key not configured")
		return
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	userID, err := h.authService.UserID(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	transcript, err := h.transcriptionService.Transcribe(r.Context(), userID, req.FilePath)
	h.metrics.RecordTranscription(err == nil, time.Since(start).Seconds())
	if err != nil {
		status, message := transcriptionError(err)
		slog.Warn("transcription failed", "error", err, "user_id", userID, "path", req.FilePath, "status", status)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Transcript: transcript})
}

func transcriptionError(err error) (int, string) {
	var downloadErr *service.DownloadError
	var modelErr *service.ModelError

	switch {
	case errors.Is(err, service.ErrPathRequired):
		return http.StatusBadRequest, "File path is required"
	case errors.Is(err, service.ErrModelNotConfigured):
		return http.StatusInternalServerError, "Gemini API key not configured"
	case errors.Is(err, service.ErrAudioNotFound):
		return http.StatusNotFound, "Audio file not found"
	case errors.As(err, &downloadErr):
		return http.StatusBadRequest, "Failed to download audio file: " + downloadErr.Err.Error()
	case errors.As(err, &modelErr):
		return http.StatusInternalServerError, modelErr.Message
	case errors.Is(err, service.ErrEmptyTranscript):
		return http.StatusInternalServerError, "No transcript generated. The audio might be too short or unclear."
	}
	return http.StatusInternalServerError, "Internal server error"
}
