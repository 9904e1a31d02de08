package scripting

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptLogger_Bounded(t *testing.T) {
	l := NewScriptLogger(3, nil)
	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		l.Info(msg)
	}

	var got []string
	for _, entry := range l.GetLogs() {
		got = append(got, entry.Message)
	}
	assert.Equal(t, []string{"three", "four", "five"}, got)

	recent := l.GetRecentLogs(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "four", recent[0].Message)
	assert.Len(t, l.GetRecentLogs(10), 3)

	l.ClearLogs()
	assert.Empty(t, l.GetLogs())
}

func TestScriptLogger_Level(t *testing.T) {
	l := NewScriptLogger(0, nil)
	l.Debug("hidden")
	l.Info("shown")
	l.SetLevel(slog.LevelDebug)
	l.Debug("now shown")

	logs := l.GetLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "shown", logs[0].Message)
	assert.Equal(t, slog.LevelDebug, logs[1].Level)
}

func TestScriptLogger_AttrsAndSearch(t *testing.T) {
	l := NewScriptLogger(10, nil)
	logger := l.Logger().With("session", "abc").WithGroup("bridge")
	logger.Info("entity key set", "key", "origin")
	l.Warn("unrelated", "note", "Origin of the universe")
	l.Info("7 nodes")

	logs := l.GetLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, map[string]string{"session": "abc", "bridge.key": "origin"}, logs[0].Attrs)
	assert.Equal(t, "7 nodes", logs[2].Message)

	assert.Len(t, l.SearchLogs("ORIGIN"), 2)
	assert.Len(t, l.SearchLogs("session"), 1)
	assert.Empty(t, l.SearchLogs("missing"))
}

func TestScriptLogger_Forwards(t *testing.T) {
	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	l := NewScriptLogger(10, next)

	l.Info("kept only in memory")
	l.Logger().With("op", "setKeyValue").Warn("forwarded")

	assert.Len(t, l.GetLogs(), 2)
	assert.NotContains(t, buf.String(), "kept only in memory")
	assert.Contains(t, buf.String(), "msg=forwarded")
	assert.Contains(t, buf.String(), "op=setKeyValue")
}

func TestScriptLogger_Concurrent(t *testing.T) {
	l := NewScriptLogger(50, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Info("tick", "j", j)
				_ = l.GetRecentLogs(5)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, l.GetLogs(), 50)
}
