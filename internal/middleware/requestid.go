package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/templui/cortex/internal/ctxkeys"
)

const requestIDHeader = "X-Request-ID"

// RequestID adds a request id to the context and response headers. A
// well-formed incoming X-Request-ID is reused.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, id)
		ctx := ctxkeys.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
