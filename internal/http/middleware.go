package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type contextKey string

const (
	userContextKey      contextKey = "user"
	requestIDContextKey contextKey = "request_id"
)

// withIdentity resolves the caller from the identity headers set by the
// authenticating proxy and attaches the user to the request context. Users
// are created on first sight.
func (s *Server) withIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get("X-User-Email")
		if email == "" {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		name := r.Header.Get("X-User-Name")
		if name == "" {
			name = email
		}

		u, err := s.users.EnsureUser(r.Context(), email, name)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to resolve user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		next(w, r.WithContext(ctx))
	}
}

func userFrom(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userContextKey).(core.User)
	return u, ok
}

// withRateLimit rejects requests over the per-user per-minute budget with a
// retry-after signal. Runs after withIdentity.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		allowed, retryAfter := s.limiter.allow(u.ID)
		if !allowed {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"user_id", u.ID,
				"retry_after_seconds", retryAfter)
			writeRateLimited(w, retryAfter)
			return
		}
		next(w, r)
	}
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldComponent, applog.ComponentHTTP)
	})
}
