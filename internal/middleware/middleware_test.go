package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/cortex/internal/ctxkeys"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/service"
)

type fakeAuth struct {
	cleared bool
}

func (a *fakeAuth) UserID(token string) (string, error) {
	if token == "good" {
		return "u1", nil
	}
	return "", service.ErrInvalidToken
}

func (a *fakeAuth) ClearJWTCookie(w http.ResponseWriter) {
	a.cleared = true
}

type fakeUsers struct{}

func (fakeUsers) ByID(_ context.Context, id string) (*model.User, error) {
	if id != "u1" {
		return nil, errors.New("not found")
	}
	hash := "secret"
	return &model.User{ID: id, Email: "ada@example.com", PasswordHash: &hash}, nil
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	if user.PasswordHash != nil {
		_, _ = w.Write([]byte("leaked"))
		return
	}
	_, _ = w.Write([]byte(user.ID + ":" + ctxkeys.AuthSource(r.Context())))
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		cleared bool
	}{
		{"anonymous", "", "", "anonymous", false},
		{"bearer", "Bearer good", "", "u1:bearer", false},
		{"cookie", "", "good", "u1:cookie", false},
		{"bearer wins", "Bearer good", "bad", "u1:bearer", false},
		{"bad cookie cleared", "", "bad", "anonymous", true},
		{"bad bearer kept", "Bearer bad", "", "anonymous", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			h := AuthMiddleware(auth, fakeUsers{})(http.HandlerFunc(echoUser))

			req := httptest.NewRequest("GET", "/api/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Body.String())
			assert.Equal(t, tt.cleared, auth.cleared)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(echoUser)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/notes", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authorization required"}`, rec.Body.String())
}

func TestCSRFProtection(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := CSRFProtection(false)(ok)

	// Safe request issues a token
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	token := rec.Header().Get(csrfHeader)
	require.NotEmpty(t, token)

	cookieReq := func(header string) *http.Request {
		req := httptest.NewRequest("PATCH", "/api/notes/n1", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		if header != "" {
			req.Header.Set(csrfHeader, header)
		}
		ctx := ctxkeys.WithAccessToken(req.Context(), "jwt", ctxkeys.AuthSourceCookie)
		return req.WithContext(ctx)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, cookieReq(""))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, cookieReq(token))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Bearer requests carry no ambient credential
	req := httptest.NewRequest("DELETE", "/api/notes/n1", nil)
	req = req.WithContext(ctxkeys.WithAccessToken(req.Context(), "jwt", ctxkeys.AuthSourceBearer))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	// one token back every 30s
	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRateLimitResponds429(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	h := RateLimit(rl)(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/auth/signin", nil)
	req.RemoteAddr = "[::1]:4312"
	h(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "::1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}

type recordedRequest struct {
	method, route, status string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(method, route, statusCode string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedRequest{method, route, statusCode})
}

func TestRequestLoggingRecordsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := &fakeRecorder{}
	h := Chain(mux, RequestID, RequestLogging(rec))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest("GET", "/api/notes/abc", nil))

	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))
	require.Len(t, rec.seen, 1)
	assert.Equal(t, recordedRequest{"GET", "GET /api/notes/{id}", "418"}, rec.seen[0])
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	const id = "3f1c1f0e-8d5b-4a53-9a43-8f3f6f1b2c3d"
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.RequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(requestIDHeader, id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, id, seen)
}
