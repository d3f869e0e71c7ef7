package model

import (
	"time"
)

type Token struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Type      string     `db:"type"`
	Token     string     `db:"token"` // the token_hash carried by verification links
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// Verification types accepted by the auth callback.
const (
	TokenTypeSignup      = "signup"
	TokenTypeMagicLink   = "magiclink"
	TokenTypeRecovery    = "recovery"
	TokenTypeEmailChange = "email_change"
	TokenTypeInvite      = "invite"
)

// IsTokenType reports whether t names a known verification type.
func IsTokenType(t string) bool {
	switch t {
	case TokenTypeSignup, TokenTypeMagicLink, TokenTypeRecovery, TokenTypeEmailChange, TokenTypeInvite:
		return true
	}
	return false
}

func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

func (t *Token) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
