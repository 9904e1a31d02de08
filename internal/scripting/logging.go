package scripting

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultMaxLogEntries bounds the in-memory log when no size is given.
const DefaultMaxLogEntries = 1000

// LogEntry is one retained log record.
type LogEntry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// ScriptLogger keeps the most recent log records in memory so scripts and
// tests can inspect them, optionally forwarding each record to another
// handler (usually a text handler on stderr).
type ScriptLogger struct {
	logger *slog.Logger
	store  *logStore
	level  *slog.LevelVar
}

// NewScriptLogger returns a logger retaining up to maxEntries records.
// next may be nil.
func NewScriptLogger(maxEntries int, next slog.Handler) *ScriptLogger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxLogEntries
	}
	level := new(slog.LevelVar)
	store := &logStore{maxSize: maxEntries}
	return &ScriptLogger{
		logger: slog.New(&logHandler{store: store, level: level, next: next}),
		store:  store,
		level:  level,
	}
}

// Logger returns the underlying slog.Logger.
func (l *ScriptLogger) Logger() *slog.Logger { return l.logger }

// SetLevel sets the minimum retained level.
func (l *ScriptLogger) SetLevel(level slog.Level) { l.level.Set(level) }

func (l *ScriptLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *ScriptLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *ScriptLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *ScriptLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// GetLogs returns a copy of every retained entry, oldest first.
func (l *ScriptLogger) GetLogs() []LogEntry {
	return l.GetRecentLogs(0)
}

// GetRecentLogs returns the most recent count entries; count <= 0 means all.
func (l *ScriptLogger) GetRecentLogs(count int) []LogEntry {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	if count <= 0 || count > len(l.store.entries) {
		count = len(l.store.entries)
	}
	logs := make([]LogEntry, count)
	copy(logs, l.store.entries[len(l.store.entries)-count:])
	return logs
}

// SearchLogs returns entries whose message, attribute keys or attribute
// values contain query, case-insensitively.
func (l *ScriptLogger) SearchLogs(query string) []LogEntry {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []LogEntry
	for _, entry := range l.store.entries {
		if entry.matches(query) {
			matches = append(matches, entry)
		}
	}
	return matches
}

// ClearLogs drops every retained entry.
func (l *ScriptLogger) ClearLogs() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = l.store.entries[:0]
}

func (e LogEntry) matches(query string) bool {
	if strings.Contains(strings.ToLower(e.Message), query) {
		return true
	}
	for k, v := range e.Attrs {
		if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

type logStore struct {
	mu      sync.RWMutex
	entries []LogEntry
	maxSize int
}

func (s *logStore) add(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.maxSize; over > 0 {
		s.entries = append(s.entries[:0], s.entries[over:]...)
	}
}

// logHandler implements slog.Handler over a shared logStore. Handlers
// derived through WithAttrs/WithGroup share the store and level.
type logHandler struct {
	store  *logStore
	level  *slog.LevelVar
	next   slog.Handler
	attrs  []slog.Attr
	prefix string
}

func (h *logHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level.Level() {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *logHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= h.level.Level() {
		attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
		for _, a := range h.attrs {
			attrs[a.Key] = a.Value.String()
		}
		record.Attrs(func(a slog.Attr) bool {
			attrs[h.prefix+a.Key] = a.Value.String()
			return true
		})
		h.store.add(LogEntry{
			Time:    record.Time,
			Level:   record.Level,
			Message: record.Message,
			Attrs:   attrs,
		})
	}
	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}
