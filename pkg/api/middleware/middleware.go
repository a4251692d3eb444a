// Package middleware provides composable http.HandlerFunc wrappers for the
// search API: request-ID tagging and CORS.
package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Middleware wraps an http.HandlerFunc with additional behavior.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Use applies every middleware to handler, in the order given, so the first
// middleware is the outermost wrapper.
func Use(handler http.HandlerFunc, mws ...Middleware) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}

	return handler
}

type contextKey string

const reqIDKey contextKey = "req_id"

// NewReqID returns a middleware that assigns a unique request ID to every
// request, stored in its context and echoed back in the X-Request-ID header.
func NewReqID() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			reqID := uuid.NewString()

			w.Header().Set("X-Request-ID", reqID)

			ctx := context.WithValue(r.Context(), reqIDKey, reqID)
			next(w, r.WithContext(ctx))
		}
	}
}

// ReqID returns the request ID stored in ctx by NewReqID, or "" if absent.
func ReqID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}

// NewCORS returns a middleware allowing GET requests from allowedOrigins.
// Entries that do not parse as an absolute origin (scheme and host) are
// ignored; if allowedOrigins is empty or none of its entries parse, any
// origin is permitted.
func NewCORS(allowedOrigins []string) Middleware {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Scheme != "" && u.Host != "" {
			allowed[origin] = true
		}
	}

	allowAll := len(allowed) == 0

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			w.Header().Set("Access-Control-Allow-Methods", http.MethodGet)
			w.Header().Set("Access-Control-Allow-Headers", "*")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}
}
