package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/repository"
	"github.com/templui/cortex/internal/storage"
	v "github.com/templui/cortex/internal/validation"
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrInvalidTTL   = errors.New("expiry must be positive")
	ErrInvalidNote  = errors.New("invalid voice note")
)

type VoiceNoteOptions struct {
	MaxUploadSize int64
	DefaultExpiry time.Duration
	MaxExpiry     time.Duration
}

// VoiceNoteService owns voice note rows and their audio blobs. Every call is
// scoped to userID; rows and blobs are never coupled here.
type VoiceNoteService struct {
	repo    repository.VoiceNoteRepository
	storage storage.Storage
	opts    VoiceNoteOptions
}

func NewVoiceNoteService(repo repository.VoiceNoteRepository, storage storage.Storage, opts VoiceNoteOptions) *VoiceNoteService {
	return &VoiceNoteService{
		repo:    repo,
		storage: storage,
		opts:    opts,
	}
}

// Notes returns the user's notes, newest first.
func (s *VoiceNoteService) Notes(ctx context.Context, userID string) ([]*model.VoiceNote, error) {
	notes, err := s.repo.Notes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *VoiceNoteService) Create(ctx context.Context, userID string, input model.NewVoiceNote) (*model.VoiceNote, error) {
	input.Title = strings.TrimSpace(input.Title)

	err := validation.ValidateStruct(&input,
		validation.Field(&input.Title, validation.By(validateTitle)),
		validation.Field(&input.AudioURL, validation.Required),
		validation.Field(&input.Duration, validation.Min(0)),
		validation.Field(&input.FileSize, validation.Min(int64(0))),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNote, err)
	}

	if !model.IsAbsoluteAudioURL(input.AudioURL) {
		err = v.ValidateStoragePath(userID, input.AudioURL)
		if err != nil {
			return nil, err
		}
	}

	note := &model.VoiceNote{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     input.Title,
		AudioURL:  input.AudioURL,
		Duration:  input.Duration,
		FileSize:  input.FileSize,
		CreatedAt: time.Now().UTC(),
	}

	err = s.repo.Create(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	slog.Info("voice note created", "note_id", note.ID, "user_id", userID, "duration", note.Duration)
	return note, nil
}

// Update applies a partial update and returns the stored note.
func (s *VoiceNoteService) Update(ctx context.Context, userID, id string, update model.VoiceNoteUpdate) (*model.VoiceNote, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidNote)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		err := v.ValidateTitle(title)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidNote, err)
		}
		update.Title = &title
	}

	if update.PlayCount != nil && *update.PlayCount < 0 {
		return nil, fmt.Errorf("%w: play_count must not be negative", ErrInvalidNote)
	}

	err := s.repo.Update(ctx, userID, id, update)
	if err != nil {
		return nil, err
	}

	return s.repo.ByID(ctx, userID, id)
}

func (s *VoiceNoteService) Delete(ctx context.Context, userID, id string) error {
	err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}

	slog.Info("voice note deleted", "note_id", id, "user_id", userID)
	return nil
}

// UploadAudio stores an audio blob under the caller's scope. size is the
// declared length, or -1 when unknown.
func (s *VoiceNoteService) UploadAudio(ctx context.Context, userID, path string, body io.Reader, contentType string, size int64) error {
	err := v.ValidateStoragePath(userID, path)
	if err != nil {
		return err
	}

	err = v.ValidateAudioType(contentType)
	if err != nil {
		return err
	}

	if size > s.opts.MaxUploadSize {
		return ErrFileTooLarge
	}

	// Bound unknown lengths; reading one byte past the limit detects overflow.
	limited := &limitedReader{r: io.LimitReader(body, s.opts.MaxUploadSize+1), max: s.opts.MaxUploadSize}
	err = s.storage.Save(ctx, path, limited, contentType)
	if err != nil {
		if limited.exceeded {
			_ = s.storage.Delete(ctx, path)
			return ErrFileTooLarge
		}
		return fmt.Errorf("failed to store audio: %w", err)
	}
	if limited.exceeded {
		delErr := s.storage.Delete(ctx, path)
		if delErr != nil {
			slog.Error("failed to remove oversized upload", "error", delErr, "path", path)
		}
		return ErrFileTooLarge
	}

	slog.Info("audio uploaded", "path", path, "content_type", contentType, "size", limited.n)
	return nil
}

func (s *VoiceNoteService) DeleteAudio(ctx context.Context, userID, path string) error {
	err := v.ValidateStoragePath(userID, path)
	if err != nil {
		return err
	}

	return s.storage.Delete(ctx, path)
}

// SignedURL issues a time-limited playback URL. A zero ttl uses the default
// expiry; longer requests are capped.
func (s *VoiceNoteService) SignedURL(ctx context.Context, userID, path string, ttl time.Duration) (string, error) {
	err := v.ValidateStoragePath(userID, path)
	if err != nil {
		return "", err
	}

	switch {
	case ttl < 0:
		return "", ErrInvalidTTL
	case ttl == 0:
		ttl = s.opts.DefaultExpiry
	case ttl > s.opts.MaxExpiry:
		ttl = s.opts.MaxExpiry
	}

	return s.storage.PresignedURL(ctx, path, ttl)
}

// OpenAudio reads an audio blob under the caller's scope.
func (s *VoiceNoteService) OpenAudio(ctx context.Context, userID, path string) (io.ReadCloser, error) {
	err := v.ValidateStoragePath(userID, path)
	if err != nil {
		return nil, err
	}

	return s.storage.Open(ctx, path)
}

func validateTitle(value any) error {
	title, _ := value.(string)
	return v.ValidateTitle(title)
}

type limitedReader struct {
	r        io.Reader
	max      int64
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}
