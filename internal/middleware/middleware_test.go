package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interopd/internal/errors"
	"interopd/internal/infrastructure"
	"interopd/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none supplied", func(t *testing.T) {
		var traceID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID = infrastructure.GetTraceID(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, traceID)
		assert.Equal(t, traceID, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps a client-supplied id", func(t *testing.T) {
		var traceID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID = infrastructure.GetTraceID(r.Context())
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "client-id-1")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "client-id-1", traceID)
		assert.Equal(t, "client-id-1", w.Header().Get("X-Request-ID"))
	})
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		handler     http.HandlerFunc
		wantStatus  int
		wantPattern string
	}{
		{
			name:   "success path",
			method: http.MethodGet,
			path:   "/v1/things",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantStatus:  http.StatusOK,
			wantPattern: "/v1/things",
		},
		{
			name:   "error path with body",
			method: http.MethodPost,
			path:   "/v1/things",
			body:   `{"name":"x"}`,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			wantStatus:  http.StatusBadRequest,
			wantPattern: "/v1/things",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)

			router := chi.NewRouter()
			router.Use(RequestLogger(logger))
			router.MethodFunc(tt.method, tt.path, tt.handler)

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, body))

			debugLogs := logs.RecordsAtLevel(slog.LevelDebug)
			require.Len(t, debugLogs, 1)

			record := debugLogs[0]
			assert.Equal(t, "request", record.Message)
			assert.Equal(t, int64(tt.wantStatus), record.Attrs["status"])
			assert.Equal(t, tt.method, record.Attrs["method"])
			assert.Equal(t, tt.wantPattern, record.Attrs["handler"])
			assert.Equal(t, tt.path, record.Attrs["path"])
			assert.Equal(t, tt.body, record.Attrs["body"])
		})
	}
}

func TestRequestLoggerPreservesBody(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := make([]byte, 64)
		n, _ := r.Body.Read(data)
		seen = string(data[:n])
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"k":"v"}`)))

	assert.Equal(t, `{"k":"v"}`, seen)
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	formatter := errors.NewFormatter(false, logger)

	limiter := NewRateLimiter(1, 1, formatter, logger)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First request consumes the burst, second is rejected.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Too Many Requests", body["title"])
	assert.Equal(t, float64(http.StatusTooManyRequests), body["code"])
}
