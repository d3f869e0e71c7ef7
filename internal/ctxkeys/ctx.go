package ctxkeys

import (
	"context"

	"github.com/templui/cortex/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey        contextKey = "user"
	AccessTokenKey contextKey = "access_token"
	AuthSourceKey  contextKey = "auth_source"
	RequestIDKey   contextKey = "request_id"
	CSRFTokenKey   contextKey = "csrf_token"
)

// Where the session credential came from.
const (
	AuthSourceCookie = "cookie"
	AuthSourceBearer = "bearer"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// AccessToken is the raw JWT that authenticated the request. The
// transcription relay forwards it unchanged.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(AccessTokenKey).(string)
	return token
}

func WithAccessToken(ctx context.Context, token, source string) context.Context {
	ctx = context.WithValue(ctx, AccessTokenKey, token)
	return context.WithValue(ctx, AuthSourceKey, source)
}

func AuthSource(ctx context.Context) string {
	source, _ := ctx.Value(AuthSourceKey).(string)
	return source
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}
