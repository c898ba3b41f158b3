package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"interopd/internal/errors"
	"interopd/internal/services"
)

// ResultHandler handles test-result link requests.
type ResultHandler struct {
	service   *services.CapabilityService
	formatter *errors.Formatter
	logger    *slog.Logger
}

// NewResultHandler creates a new result handler.
func NewResultHandler(service *services.CapabilityService, formatter *errors.Formatter, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		service:   service,
		formatter: formatter,
		logger:    logger.With(slog.String("handler", "result")),
	}
}

// Routes returns the result route tree.
func (h *ResultHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{test_id}", h.formatter.Wrap(h.Get))
	return r
}

// Get handles GET /v1/results/{test_id}, returning the external link for the
// test's detailed output.
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) error {
	testID := chi.URLParam(r, "test_id")

	url, err := h.service.ResultURL(testID)
	if err != nil {
		return err
	}

	render.JSON(w, r, map[string]string{
		"test_id": testID,
		"url":     url,
	})
	return nil
}
