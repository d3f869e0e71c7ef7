package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/cortex/internal/model"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository stores one-time verification tokens. Only a SHA-256
// digest of each token is persisted; the plaintext lives in the emailed link.
type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	ConsumeToken(ctx context.Context, token, tokenType string) (*model.Token, error)
	DeleteByUserAndType(ctx context.Context, userID, tokenType string) error
	CleanupExpired(ctx context.Context, before time.Time) (int64, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create persists token. token.Token keeps the plaintext for the caller.
func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, type, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Type, digest(token.Token), token.ExpiresAt, token.CreatedAt,
	)
	return err
}

// ConsumeToken marks a live token of tokenType as used in a single UPDATE, so
// concurrent verifications of the same link cannot both succeed.
func (r *tokenRepository) ConsumeToken(ctx context.Context, token, tokenType string) (*model.Token, error) {
	now := time.Now()

	var t model.Token
	err := r.db.GetContext(ctx, &t, `
		UPDATE tokens
		SET used_at = $1
		WHERE token = $2 AND type = $3 AND used_at IS NULL AND expires_at > $1
		RETURNING id, user_id, type, token, expires_at, used_at, created_at`,
		now, digest(token), tokenType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// DeleteByUserAndType revokes a user's outstanding links of one type before a
// new one is issued.
func (r *tokenRepository) DeleteByUserAndType(ctx context.Context, userID, tokenType string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE user_id = $1 AND type = $2 AND used_at IS NULL`,
		userID, tokenType,
	)
	return err
}

// CleanupExpired removes tokens that expired or were used before the cutoff.
func (r *tokenRepository) CleanupExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
