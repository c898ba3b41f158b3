package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interopd/internal/config"
	apierrors "interopd/internal/errors"
	"interopd/internal/shared/testutil"
)

func newTestService(t *testing.T, upstream http.HandlerFunc) (*CapabilityService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	logger, _ := testutil.NewTestLogger(t)
	return NewCapabilityService(config.APIConfig{
		GithubAPICapabilitiesURL: server.URL + "/contents",
		GithubRawBaseURL:         server.URL + "/raw/",
		TestResultsURL:           "https://results.example/output.html?test_id=%s",
	}, logger), server
}

func TestCapabilityServiceList(t *testing.T) {
	t.Run("returns json capability files only", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/contents", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"name": "2024.01.json", "type": "file"},
				{"name": "2024.02.json", "type": "file"},
				{"name": "README.rst", "type": "file"},
				{"name": "guidelines", "type": "dir"}
			]`))
		})

		names, err := svc.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"2024.01.json", "2024.02.json"}, names)
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := svc.List(context.Background())
		assert.ErrorIs(t, err, apierrors.ErrBadGateway)
	})

	t.Run("malformed listing is an unclassified error", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		})

		_, err := svc.List(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, apierrors.ErrBadGateway)
	})
}

func TestCapabilityServiceFetch(t *testing.T) {
	t.Run("fetches a capability file", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/raw/2024.01.json", r.URL.Path)
			w.Write([]byte(`{"id": "2024.01"}`))
		})

		data, err := svc.Fetch(context.Background(), "2024.01.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": "2024.01"}`, string(data))
	})

	t.Run("missing file maps to not found", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := svc.Fetch(context.Background(), "2099.01.json")
		assert.ErrorIs(t, err, apierrors.ErrNotFound)
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := svc.Fetch(context.Background(), "2024.01.json")
		assert.ErrorIs(t, err, apierrors.ErrBadGateway)
	})

	invalidNames := []struct {
		name  string
		input string
	}{
		{"empty name", ""},
		{"wrong extension", "2024.01.yaml"},
		{"path traversal", "../2024.01.json"},
	}

	for _, tt := range invalidNames {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("upstream must not be called for invalid input")
			})

			_, err := svc.Fetch(context.Background(), tt.input)
			var validationErr *apierrors.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCapabilityServiceResultURL(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})

	t.Run("substitutes the test id", func(t *testing.T) {
		url, err := svc.ResultURL("7c35e107")
		require.NoError(t, err)
		assert.Equal(t, "https://results.example/output.html?test_id=7c35e107", url)
	})

	t.Run("rejects an empty test id", func(t *testing.T) {
		_, err := svc.ResultURL("")
		var validationErr *apierrors.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}
