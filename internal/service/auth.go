package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/repository"
	"github.com/templui/cortex/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const AuthCookieName = "auth_token"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordless       = errors.New("this account uses passwordless login")
	ErrSignupDisabled     = errors.New("signups are disabled")
	ErrInvalidLink        = errors.New("invalid or expired link")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakPassword       = errors.New("weak password")
)

type AuthOptions struct {
	JWTSecret       string
	JWTExpiry       time.Duration
	SignupExpiry    time.Duration
	MagicLinkExpiry time.Duration
	RecoveryExpiry  time.Duration
	AppURL          string
	IsProduction    bool
	SignupEnabled   bool
}

type AuthService struct {
	userRepository  repository.UserRepository
	tokenRepository repository.TokenRepository
	mailer          Mailer
	opts            AuthOptions
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	mailer Mailer,
	opts AuthOptions,
) *AuthService {
	return &AuthService{
		userRepository:  userRepository,
		tokenRepository: tokenRepository,
		mailer:          mailer,
		opts:            opts,
	}
}

// Signup creates a password account and emails a confirmation link. The
// account cannot sign in with its password until the link is used.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	if !s.opts.SignupEnabled {
		return nil, ErrSignupDisabled
	}

	email = normalizeEmail(email)
	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hash,
		CreatedAt:    time.Now(),
	}
	err = s.userRepository.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = s.sendLink(ctx, user, model.TokenTypeSignup, s.opts.SignupExpiry)
	if err != nil {
		return nil, err
	}

	slog.Info("user signed up", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepository.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordless
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified() {
		return nil, ErrEmailNotVerified
	}

	return user, nil
}

// SendMagicLink handles the combined login/signup flow
// If user exists → sends magic link for login
// If user is new → creates a passwordless account first
func (s *AuthService) SendMagicLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		if !s.opts.SignupEnabled {
			return ErrSignupDisabled
		}

		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: time.Now(),
		}
		err = s.userRepository.Create(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new passwordless user created", "user_id", user.ID)
	} else if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	return s.sendLink(ctx, user, model.TokenTypeMagicLink, s.opts.MagicLinkExpiry)
}

// SendRecoveryLink sends a sign-in link that removes the password once used.
// Unknown and passwordless addresses succeed silently to prevent enumeration.
func (s *AuthService) SendRecoveryLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		slog.Info("recovery requested for unknown email")
		return nil
	}

	if !user.HasPassword() {
		return nil
	}

	return s.sendLink(ctx, user, model.TokenTypeRecovery, s.opts.RecoveryExpiry)
}

// VerifyOTP consumes a one-time token of the given type and returns the
// authenticated user.
func (s *AuthService) VerifyOTP(ctx context.Context, tokenHash, tokenType string) (*model.User, error) {
	if tokenHash == "" || !model.IsTokenType(tokenType) {
		return nil, ErrInvalidLink
	}

	// ConsumeToken atomically marks token as used (prevents race conditions)
	token, err := s.tokenRepository.ConsumeToken(ctx, tokenHash, tokenType)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.userRepository.ByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	changed := false
	if !user.IsVerified() {
		now := time.Now()
		user.EmailVerifiedAt = &now
		changed = true
	}
	if tokenType == model.TokenTypeRecovery && user.HasPassword() {
		user.PasswordHash = nil
		changed = true
	}

	if changed {
		err = s.userRepository.Update(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	slog.Info("user verified", "user_id", user.ID, "type", tokenType)
	return user, nil
}

func (s *AuthService) sendLink(ctx context.Context, user *model.User, tokenType string, expiry time.Duration) error {
	err := s.tokenRepository.DeleteByUserAndType(ctx, user.ID, tokenType)
	if err != nil {
		slog.Warn("failed to delete old tokens", "error", err, "user_id", user.ID, "type", tokenType)
	}

	value, err := s.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	err = s.tokenRepository.Create(ctx, &model.Token{
		UserID:    user.ID,
		Type:      tokenType,
		Token:     value,
		ExpiresAt: time.Now().Add(expiry),
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	err = s.mailer.SendAuthLink(ctx, user.Email, tokenType, s.CallbackURL(value, tokenType, "/"))
	if err != nil {
		slog.Error("failed to send auth email", "error", err, "user_id", user.ID, "type", tokenType)
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// CallbackURL builds the link carried by verification emails.
func (s *AuthService) CallbackURL(tokenHash, tokenType, next string) string {
	q := url.Values{}
	q.Set("token_hash", tokenHash)
	q.Set("type", tokenType)
	q.Set("next", next)
	return s.opts.AppURL + "/auth/callback?" + q.Encode()
}

// ResolveNext returns the absolute redirect target for next. Only local
// paths are honoured; anything else falls back to the app root.
func (s *AuthService) ResolveNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		next = "/"
	}
	return s.opts.AppURL + next
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateJWT returns a signed session token and its expiry.
func (s *AuthService) GenerateJWT(user *model.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.opts.JWTExpiry)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.opts.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// UserID verifies tokenString and returns the user_id claim.
func (s *AuthService) UserID(tokenString string) (string, error) {
	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return "", err
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
