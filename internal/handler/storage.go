package handler

import (
	"net/http"
	"time"

	"github.com/templui/cortex/internal/ctxkeys"
	"github.com/templui/cortex/internal/metrics"
	"github.com/templui/cortex/internal/service"
)

type StorageHandler struct {
	voiceNoteService *service.VoiceNoteService
	metrics          *metrics.Metrics
}

func NewStorageHandler(voiceNoteService *service.VoiceNoteService, m *metrics.Metrics) *StorageHandler {
	return &StorageHandler{
		voiceNoteService: voiceNoteService,
		metrics:          m,
	}
}

type uploadResponse struct {
	Path string `json:"path"`
}

type signRequest struct {
	Path      string `json:"path"`
	ExpiresIn int    `json:"expires_in"` // seconds, 0 for the default
}

type signResponse struct {
	SignedURL string `json:"signed_url"`
}

// Upload stores the raw request body at the wildcard path.
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	path := r.PathValue("path")

	err := h.voiceNoteService.UploadAudio(r.Context(), user.ID, path, r.Body, r.Header.Get("Content-Type"), r.ContentLength)
	h.metrics.RecordUpload(err == nil, r.ContentLength)
	if err != nil {
		writeServiceError(w, err, "audio upload failed", "user_id", user.ID, "path", path)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{Path: path})
}

func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	path := r.PathValue("path")

	err := h.voiceNoteService.DeleteAudio(r.Context(), user.ID, path)
	if err != nil {
		writeServiceError(w, err, "audio delete failed", "user_id", user.ID, "path", path)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *StorageHandler) Sign(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req signRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url, err := h.voiceNoteService.SignedURL(r.Context(), user.ID, req.Path, time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		writeServiceError(w, err, "failed to sign url", "user_id", user.ID, "path", req.Path)
		return
	}

	h.metrics.SignedURLs.Inc()
	writeJSON(w, http.StatusOK, signResponse{SignedURL: url})
}
