package model

import (
	"strings"
	"time"
)

// VoiceNote is one recorded memo. AudioURL holds either an absolute URL or a
// storage path scoped to the owner ("<user_id>/<millis>.<ext>").
type VoiceNote struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	AudioURL  string    `db:"audio_url" json:"audio_url"`
	Duration  int       `db:"duration" json:"duration"` // seconds, as measured while recording
	FileSize  int64     `db:"file_size" json:"-"`
	Completed bool      `db:"completed" json:"completed"`
	PlayCount int       `db:"play_count" json:"play_count"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasAbsoluteURL reports whether the audio reference can be played without a
// signed-URL exchange.
func (n *VoiceNote) HasAbsoluteURL() bool {
	return IsAbsoluteAudioURL(n.AudioURL)
}

// NotesText returns the free-text notes or "" when unset.
func (n *VoiceNote) NotesText() string {
	if n.Notes == nil {
		return ""
	}
	return *n.Notes
}

func IsAbsoluteAudioURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// NewVoiceNote carries the fields supplied when a note is created after an upload.
type NewVoiceNote struct {
	Title    string `json:"title"`
	AudioURL string `json:"audio_url"`
	Duration int    `json:"duration"`
	FileSize int64  `json:"file_size"`
}

// VoiceNoteUpdate is a field-scoped partial update. Nil fields are untouched.
type VoiceNoteUpdate struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	PlayCount *int    `json:"play_count,omitempty"`
}

func (u VoiceNoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Completed == nil && u.Notes == nil && u.PlayCount == nil
}

// Apply copies the set fields onto note.
func (u VoiceNoteUpdate) Apply(note *VoiceNote) {
	if u.Title != nil {
		note.Title = *u.Title
	}
	if u.Completed != nil {
		note.Completed = *u.Completed
	}
	if u.Notes != nil {
		notes := *u.Notes
		note.Notes = &notes
	}
	if u.PlayCount != nil {
		note.PlayCount = *u.PlayCount
	}
}
