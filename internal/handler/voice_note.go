package handler

import (
	"net/http"

	"github.com/templui/cortex/internal/ctxkeys"
	"github.com/templui/cortex/internal/metrics"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/service"
)

type VoiceNoteHandler struct {
	voiceNoteService *service.VoiceNoteService
	metrics          *metrics.Metrics
}

func NewVoiceNoteHandler(voiceNoteService *service.VoiceNoteService, m *metrics.Metrics) *VoiceNoteHandler {
	return &VoiceNoteHandler{
		voiceNoteService: voiceNoteService,
		metrics:          m,
	}
}

// List returns the caller's notes, newest first.
func (h *VoiceNoteHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	notes, err := h.voiceNoteService.Notes(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "failed to list notes", "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

func (h *VoiceNoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var input model.NewVoiceNote
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.voiceNoteService.Create(r.Context(), user.ID, input)
	if err != nil {
		writeServiceError(w, err, "failed to create note", "user_id", user.ID)
		return
	}

	h.metrics.NotesCreated.Inc()
	writeJSON(w, http.StatusCreated, note)
}

func (h *VoiceNoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	noteID := r.PathValue("id")

	var update model.VoiceNoteUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.voiceNoteService.Update(r.Context(), user.ID, noteID, update)
	if err != nil {
		writeServiceError(w, err, "failed to update note", "user_id", user.ID, "note_id", noteID)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (h *VoiceNoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	noteID := r.PathValue("id")

	err := h.voiceNoteService.Delete(r.Context(), user.ID, noteID)
	if err != nil {
		writeServiceError(w, err, "failed to delete note", "user_id", user.ID, "note_id", noteID)
		return
	}

	h.metrics.NotesDeleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}
