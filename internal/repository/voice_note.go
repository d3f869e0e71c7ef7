package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/templui/cortex/internal/model"
)

var (
	ErrVoiceNoteNotFound = errors.New("voice note not found")
	ErrEmptyUpdate       = errors.New("update has no fields")
)

type VoiceNoteRepository interface {
	Create(ctx context.Context, note *model.VoiceNote) error
	ByID(ctx context.Context, userID, id string) (*model.VoiceNote, error)
	Notes(ctx context.Context, userID string) ([]*model.VoiceNote, error)
	Update(ctx context.Context, userID, id string, update model.VoiceNoteUpdate) error
	Delete(ctx context.Context, userID, id string) error
}

type voiceNoteRepository struct {
	db *sqlx.DB
}

func NewVoiceNoteRepository(db *sqlx.DB) VoiceNoteRepository {
	return &voiceNoteRepository{db: db}
}

func (r *voiceNoteRepository) Create(ctx context.Context, note *model.VoiceNote) error {
	query := `INSERT INTO voice_notes (id, user_id, title, audio_url, duration, file_size, completed, play_count, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		note.ID,
		note.UserID,
		note.Title,
		note.AudioURL,
		note.Duration,
		note.FileSize,
		note.Completed,
		note.PlayCount,
		note.Notes,
		note.CreatedAt,
	)

	return err
}

func (r *voiceNoteRepository) ByID(ctx context.Context, userID, id string) (*model.VoiceNote, error) {
	note := &model.VoiceNote{}
	query := `SELECT * FROM voice_notes WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, note, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoiceNoteNotFound
	}
	if err != nil {
		return nil, err
	}

	return note, nil
}

// Notes returns the user's notes, newest first.
func (r *voiceNoteRepository) Notes(ctx context.Context, userID string) ([]*model.VoiceNote, error) {
	notes := []*model.VoiceNote{}
	query := `SELECT * FROM voice_notes WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	err := r.db.SelectContext(ctx, &notes, query, userID)
	if err != nil {
		return nil, err
	}

	return notes, nil
}

// Update writes only the fields set in update.
func (r *voiceNoteRepository) Update(ctx context.Context, userID, id string, update model.VoiceNoteUpdate) error {
	var sets []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Completed != nil {
		add("completed", *update.Completed)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	if update.PlayCount != nil {
		add("play_count", *update.PlayCount)
	}

	if len(sets) == 0 {
		return ErrEmptyUpdate
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(`UPDATE voice_notes SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return expectRows(result, ErrVoiceNoteNotFound)
}

func (r *voiceNoteRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM voice_notes WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrVoiceNoteNotFound)
}
