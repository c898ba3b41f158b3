// Package testutil provides helpers for asserting on log output in tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is a captured log record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// RecordingHandler captures log records for inspection in tests.
type RecordingHandler struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewTestLogger creates a logger backed by a recording handler.
func NewTestLogger(t *testing.T) (*slog.Logger, *RecordingHandler) {
	t.Helper()
	handler := &RecordingHandler{}
	return slog.New(handler), handler
}

// Handle implements slog.Handler.
func (h *RecordingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, LogRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler; all levels are captured.
func (h *RecordingHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler. Attributes added via With are dropped;
// tests assert on per-record attributes only.
func (h *RecordingHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler.
func (h *RecordingHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Records returns a copy of all captured records.
func (h *RecordingHandler) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	records := make([]LogRecord, len(h.records))
	copy(records, h.records)
	return records
}

// RecordsAtLevel returns captured records at the given level.
func (h *RecordingHandler) RecordsAtLevel(level slog.Level) []LogRecord {
	var filtered []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage reports whether any captured record contains msg.
func (h *RecordingHandler) ContainsMessage(msg string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, msg) {
			return true
		}
	}
	return false
}
