package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"interopd/internal/errors"
	"interopd/internal/infrastructure"
)

// maxLoggedBodyBytes caps how much of a request body the request logger
// captures.
const maxLoggedBodyBytes = 64 * 1024

// RequestID generates a unique request ID for each request unless the client
// supplied one in X-Request-ID. The ID is echoed in the response header and
// stored in the context as the trace ID. This should be the first middleware
// in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := infrastructure.WithTraceID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs every request at debug severity with its final status,
// method, handler identifier, path and body. Headers are excluded. It wraps
// the rest of the chain, so it observes the outcome of both success and
// error paths.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body []byte
			if r.Body != nil && r.ContentLength > 0 {
				body, _ = io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes))
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// The route pattern is only known once routing has happened.
			handler := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				handler = rctx.RoutePattern()
			}

			logger.DebugContext(r.Context(), "request",
				slog.Int("status", ww.Status()),
				slog.String("method", r.Method),
				slog.String("handler", handler),
				slog.String("path", r.URL.Path),
				slog.String("body", string(body)))
		})
	}
}

// RateLimiter provides process-wide request rate limiting.
type RateLimiter struct {
	limiter   *rate.Limiter
	formatter *errors.Formatter
	logger    *slog.Logger
}

// NewRateLimiter creates a rate limiter. Rejections are routed through the
// error formatter so they carry the standard error body.
func NewRateLimiter(rps float64, burst int, formatter *errors.Formatter, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		formatter: formatter,
		logger:    logger,
	}
}

// Handler implements the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))
			rl.formatter.Respond(w, r, errors.ErrRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RealIP extracts the real client IP using chi's implementation.
func RealIP(next http.Handler) http.Handler {
	return chimiddleware.RealIP(next)
}
