package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"interopd/internal/errors"
	"interopd/internal/services"
)

// CapabilityHandler handles capability-related HTTP requests.
type CapabilityHandler struct {
	service   *services.CapabilityService
	formatter *errors.Formatter
	logger    *slog.Logger
}

// NewCapabilityHandler creates a new capability handler.
func NewCapabilityHandler(service *services.CapabilityService, formatter *errors.Formatter, logger *slog.Logger) *CapabilityHandler {
	return &CapabilityHandler{
		service:   service,
		formatter: formatter,
		logger:    logger.With(slog.String("handler", "capability")),
	}
}

// Routes returns the capability route tree.
func (h *CapabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.formatter.Wrap(h.List))
	r.Get("/{name}", h.formatter.Wrap(h.Get))
	return r
}

// List handles GET /v1/capabilities.
func (h *CapabilityHandler) List(w http.ResponseWriter, r *http.Request) error {
	names, err := h.service.List(r.Context())
	if err != nil {
		return err
	}

	render.JSON(w, r, map[string]interface{}{
		"capabilities": names,
	})
	return nil
}

// Get handles GET /v1/capabilities/{name}. The capability document is passed
// through as-is.
func (h *CapabilityHandler) Get(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	data, err := h.service.Fetch(r.Context(), name)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	return nil
}
