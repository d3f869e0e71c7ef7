package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/cortex/internal/ctxkeys"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenLen   = 32
)

// CSRFProtection validates double-submit tokens on state-changing requests
// authenticated by the auth cookie. Bearer-authenticated and anonymous
// requests carry no ambient credential and pass through. Must run after
// AuthMiddleware.
func CSRFProtection(isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := getOrGenerateCSRFToken(w, r, isProduction)
			ctx := ctxkeys.WithCSRFToken(r.Context(), token)

			// Browser clients read the token from this header on safe requests
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				w.Header().Set(csrfHeader, token)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if ctxkeys.AuthSource(r.Context()) != ctxkeys.AuthSourceCookie {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if !validCSRFToken(token, r.Header.Get(csrfHeader)) {
				slog.Warn("csrf validation failed",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", getClientIP(r),
				)
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getOrGenerateCSRFToken(w http.ResponseWriter, r *http.Request, isProduction bool) string {
	if c, err := r.Cookie(csrfCookieName); err == nil && wellFormedCSRFToken(c.Value) {
		return c.Value
	}

	raw := make([]byte, csrfTokenLen)
	if _, err := rand.Read(raw); err != nil {
		panic("csrf: reading random bytes: " + err.Error())
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
	})
	return token
}

func wellFormedCSRFToken(v string) bool {
	return len(v) == base64.RawURLEncoding.EncodedLen(csrfTokenLen)
}

func validCSRFToken(expected, actual string) bool {
	if !wellFormedCSRFToken(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
