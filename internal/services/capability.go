package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"interopd/internal/config"
	apierrors "interopd/internal/errors"
)

// maxCapabilityBytes bounds how much of a capability document is read from
// upstream.
const maxCapabilityBytes = 4 * 1024 * 1024

// CapabilityService retrieves capability files from the configured external
// capability source and builds test result links.
type CapabilityService struct {
	client   *http.Client
	cfg      config.APIConfig
	validate *validator.Validate
	logger   *slog.Logger
}

// capabilityEntry is the subset of the GitHub contents API entry we consume.
type capabilityEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// fetchRequest carries the validated input of Fetch.
type fetchRequest struct {
	Name string `validate:"required,max=255,endswith=.json,excludesall=/"`
}

// resultRequest carries the validated input of ResultURL.
type resultRequest struct {
	TestID string `validate:"required,max=64,alphanumunicode|uuid"`
}

// NewCapabilityService creates a capability service with the given API
// configuration and logger.
func NewCapabilityService(cfg config.APIConfig, logger *slog.Logger) *CapabilityService {
	return &CapabilityService{
		client:   &http.Client{Timeout: 30 * time.Second},
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "capability_service")),
	}
}

// List returns the names of all capability files available at the capability
// source.
func (s *CapabilityService) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.GithubAPICapabilitiesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building capability listing request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching capability listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WarnContext(ctx, "capability source returned non-OK status",
			slog.Int("status", resp.StatusCode),
			slog.String("url", s.cfg.GithubAPICapabilitiesURL))
		return nil, apierrors.ErrBadGateway
	}

	var entries []capabilityEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding capability listing: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(e.Name, ".json") {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// Fetch returns the raw contents of a single capability file.
func (s *CapabilityService) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := s.validate.Struct(fetchRequest{Name: name}); err != nil {
		return nil, apierrors.FromValidation(err)
	}

	url := s.cfg.GithubRawBaseURL + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building capability fetch request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching capability file %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apierrors.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		s.logger.WarnContext(ctx, "capability source returned non-OK status",
			slog.Int("status", resp.StatusCode),
			slog.String("url", url))
		return nil, apierrors.ErrBadGateway
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCapabilityBytes))
	if err != nil {
		return nil, fmt.Errorf("reading capability file %s: %w", name, err)
	}
	return data, nil
}

// ResultURL builds the external result link for a test ID from the
// configured URL template.
func (s *CapabilityService) ResultURL(testID string) (string, error) {
	if err := s.validate.Struct(resultRequest{TestID: testID}); err != nil {
		return "", apierrors.FromValidation(err)
	}
	return fmt.Sprintf(s.cfg.TestResultsURL, testID), nil
}
