package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/templui/cortex/internal/ctxkeys"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/service"
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	UserID(token string) (string, error)
	ClearJWTCookie(w http.ResponseWriter)
}

type UserLookup interface {
	ByID(ctx context.Context, id string) (*model.User, error)
}

// AuthMiddleware resolves the caller from an Authorization bearer token or
// the auth cookie and adds the user to the context when valid. Requests
// without valid credentials continue anonymously.
func AuthMiddleware(auth Authenticator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, source := credential(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := auth.UserID(token)
			if err != nil {
				if source == ctxkeys.AuthSourceCookie {
					auth.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.ByID(r.Context(), userID)
			if err != nil {
				if source == ctxkeys.AuthSourceCookie {
					auth.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			// Security: Remove password hash from context
			user.PasswordHash = nil

			ctx := ctxkeys.WithUser(r.Context(), user)
			ctx = ctxkeys.WithAccessToken(ctx, token, source)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// credential returns the bearer token if present, otherwise the auth cookie.
func credential(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), ctxkeys.AuthSourceBearer
	}

	cookie, err := r.Cookie(service.AuthCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, ctxkeys.AuthSourceCookie
	}

	return "", ""
}

// RequireAuth rejects anonymous requests with a JSON 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authorization required")
			return
		}
		next.ServeHTTP(w, r)
	}
}
