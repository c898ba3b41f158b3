package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Response is the wire format of every error response.
type Response struct {
	Title  string `json:"title"`
	Code   int    `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Formatter translates errors raised during request handling into JSON
// responses. It is the terminal error boundary: no error propagates past it.
// A single instance is shared by all in-flight requests; its fields are set
// at construction and never mutated.
type Formatter struct {
	debug  bool
	logger *slog.Logger
}

// NewFormatter creates a Formatter. When debug is true, responses carry a
// detail field with the error's string form.
func NewFormatter(debug bool, logger *slog.Logger) *Formatter {
	return &Formatter{
		debug:  debug,
		logger: logger.With(slog.String("component", "error_formatter")),
	}
}

// Respond classifies err and writes the JSON error response.
//
// HTTPError keeps its status and title verbatim. ValidationError is fixed at
// 400 with its own title. Anything else becomes a 500 "Internal Server Error"
// and is logged at error severity with full detail regardless of debug mode.
func (f *Formatter) Respond(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		title  string
	)

	var httpErr *HTTPError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Status
		title = httpErr.Title
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		title = validationErr.Title
	default:
		status = http.StatusInternalServerError
		title = "Internal Server Error"
		f.logger.ErrorContext(r.Context(), "unhandled error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("stack", string(debug.Stack())))
	}

	resp := Response{Title: title, Code: status}
	if f.debug {
		resp.Detail = err.Error()
	}

	body, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		// Terminal boundary: fall back to a fixed body rather than fail.
		status = http.StatusInternalServerError
		body = []byte(`{"title":"Internal Server Error","code":500}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Wrap adapts a handler that returns an error into an http.HandlerFunc,
// routing any returned error through Respond.
func (f *Formatter) Wrap(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			f.Respond(w, r, err)
		}
	}
}

// Boundary is the middleware form of the error boundary. It recovers panics
// raised below it and converts them into 500 responses.
func (f *Formatter) Boundary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				f.Respond(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
