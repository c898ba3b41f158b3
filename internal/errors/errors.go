package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// HTTPError is an error that already carries its intended HTTP status code
// and title. The error boundary passes both through verbatim.
type HTTPError struct {
	Status int
	Title  string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return e.Title
}

// NewHTTPError creates an HTTPError. An empty title defaults to the standard
// status text.
func NewHTTPError(status int, title string) *HTTPError {
	if title == "" {
		title = http.StatusText(status)
	}
	return &HTTPError{Status: status, Title: title}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound         = NewHTTPError(http.StatusNotFound, "Not Found")
	ErrMethodNotAllowed = NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed")
	ErrRateLimited      = NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
	ErrBadGateway       = NewHTTPError(http.StatusBadGateway, "Bad Gateway")
)

// ValidationError is a domain input-validation failure. The error boundary
// always maps it to 400.
type ValidationError struct {
	Title string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Title
}

// NewValidationError creates a ValidationError with the given title.
func NewValidationError(title string) *ValidationError {
	return &ValidationError{Title: title}
}

// FromValidation converts a go-playground validator error into a
// ValidationError, flattening field errors into a single title. Errors of
// other kinds are returned unchanged.
func FromValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Title: "Validation failed: " + strings.Join(parts, "; ")}
}
