package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/templui/cortex/internal/repository"
	"github.com/templui/cortex/internal/service"
	"github.com/templui/cortex/internal/storage"
	"github.com/templui/cortex/internal/validation"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeServiceError maps domain errors to status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, err error, msg string, args ...any) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, repository.ErrVoiceNoteNotFound):
		status, message = http.StatusNotFound, "Voice note not found"
	case errors.Is(err, storage.ErrObjectNotFound):
		status, message = http.StatusNotFound, "Object not found"
	case errors.Is(err, validation.ErrPathScope):
		status, message = http.StatusForbidden, "Path is outside your storage scope"
	case errors.Is(err, validation.ErrUnsupportedAudio):
		status, message = http.StatusUnsupportedMediaType, "Only audio uploads are allowed"
	case errors.Is(err, service.ErrFileTooLarge):
		status, message = http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, service.ErrInvalidNote),
		errors.Is(err, service.ErrInvalidTTL),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordless):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidLink),
		errors.Is(err, service.ErrInvalidCurrentPassword):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrSignupDisabled):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrEmailAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	}

	if status >= 500 {
		slog.Error(msg, append(args, "error", err)...)
	} else {
		slog.Warn(msg, append(args, "error", err)...)
	}
	writeError(w, status, message)
}
