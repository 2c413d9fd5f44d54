package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// TestLogHandler records every log call for later assertions. Handlers derived
// through With or WithGroup write into the same record list, so attributes
// such as the controller's "component" are visible on the records.
type TestLogHandler struct {
	sink   *logSink
	attrs  []slog.Attr
	prefix string
}

type logSink struct {
	mu      sync.Mutex
	records []TestLogRecord
}

type TestLogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

func NewTestLogHandler() *TestLogHandler {
	return &TestLogHandler{sink: &logSink{}}
}

func (h *TestLogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *TestLogHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[h.prefix+attr.Key] = attr.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.records = append(h.sink.records, TestLogRecord{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})

	return nil
}

func (h *TestLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := &TestLogHandler{
		sink:   h.sink,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		prefix: h.prefix,
	}
	for _, attr := range attrs {
		derived.attrs = append(derived.attrs, slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value})
	}
	return derived
}

func (h *TestLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TestLogHandler{
		sink:   h.sink,
		attrs:  h.attrs,
		prefix: h.prefix + name + ".",
	}
}

func (h *TestLogHandler) GetRecords() []TestLogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]TestLogRecord(nil), h.sink.records...)
}

func (h *TestLogHandler) GetRecordsByLevel(level slog.Level) []TestLogRecord {
	var filtered []TestLogRecord
	for _, record := range h.GetRecords() {
		if record.Level == level {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// FindRecord returns the first record at level with the given message.
func (h *TestLogHandler) FindRecord(level slog.Level, message string) (TestLogRecord, bool) {
	for _, record := range h.GetRecordsByLevel(level) {
		if record.Message == message {
			return record, true
		}
	}
	return TestLogRecord{}, false
}

func (h *TestLogHandler) ContainsMessage(level slog.Level, message string) bool {
	_, ok := h.FindRecord(level, message)
	return ok
}

// CountMessage counts records at level with the given message, e.g. to check
// that a login was launched only once.
func (h *TestLogHandler) CountMessage(level slog.Level, message string) int {
	count := 0
	for _, record := range h.GetRecordsByLevel(level) {
		if record.Message == message {
			count++
		}
	}
	return count
}

func (h *TestLogHandler) CountByLevel(level slog.Level) int {
	return len(h.GetRecordsByLevel(level))
}
