package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/repository"
	"github.com/templui/cortex/internal/storage"
	"github.com/templui/cortex/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCurrentPassword = errors.New("current password is incorrect")

type UserService struct {
	userRepository      repository.UserRepository
	voiceNoteRepository repository.VoiceNoteRepository
	storage             storage.Storage
	mailer              Mailer
}

func NewUserService(
	userRepository repository.UserRepository,
	voiceNoteRepository repository.VoiceNoteRepository,
	storage storage.Storage,
	mailer Mailer,
) *UserService {
	return &UserService{
		userRepository:      userRepository,
		voiceNoteRepository: voiceNoteRepository,
		storage:             storage,
		mailer:              mailer,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

// UpdatePassword sets a new password. Passwordless accounts may set one
// without a current password.
func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.HasPassword() {
		err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword))
		if err != nil {
			return ErrInvalidCurrentPassword
		}
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hashedPassword)
	user.PasswordHash = &hashStr

	err = s.userRepository.Update(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// DeleteAccount removes the user's blobs (best effort), then the user row.
// Notes and tokens go with it through ON DELETE CASCADE.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	notes, err := s.voiceNoteRepository.Notes(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	for _, note := range notes {
		if note.HasAbsoluteURL() {
			continue
		}
		err = s.storage.Delete(ctx, note.AudioURL)
		if err != nil {
			// Orphaned blobs are better than a failed deletion
			slog.Warn("failed to delete audio from storage", "path", note.AudioURL, "error", err)
		}
	}

	err = s.userRepository.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	err = s.mailer.SendAccountDeleted(ctx, user.Email)
	if err != nil {
		slog.Warn("failed to send account deleted email", "user_id", userID, "error", err)
	}

	slog.Info("account deleted", "user_id", userID, "notes", len(notes))
	return nil
}
