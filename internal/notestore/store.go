package notestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/templui/cortex/internal/model"
)

var (
	ErrStore         = errors.New("note store request failed")
	ErrAuth          = errors.New("not signed in or session expired")
	ErrTranscription = errors.New("transcription failed")
)

// Store is the remote row and object store holding voice notes.
type Store interface {
	// List returns notes newest first.
	List(ctx context.Context) ([]*model.VoiceNote, error)
	Create(ctx context.Context, note model.NewVoiceNote) (*model.VoiceNote, error)
	Update(ctx context.Context, id string, update model.VoiceNoteUpdate) (*model.VoiceNote, error)
	Delete(ctx context.Context, id string) error
	UploadBlob(ctx context.Context, path string, data []byte, contentType string) (string, error)
	DeleteBlob(ctx context.Context, path string) error
	SignURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Transcriber turns a stored audio path into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// StoreError is returned by every failed remote call. It matches ErrStore,
// or ErrTranscription for transcription calls, and additionally ErrAuth when
// the server rejected the credential.
type StoreError struct {
	Op      string
	Status  int // 0 when no response was received
	Message string
	Err     error
	Kind    error // ErrStore when nil
}

func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	kind := e.Kind
	if kind == nil {
		kind = ErrStore
	}
	if target == kind {
		return true
	}
	return target == ErrAuth && e.Status == http.StatusUnauthorized
}
