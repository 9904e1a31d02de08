package scripting

import (
	"fmt"
	"sort"
	"time"
)

func (e *Engine) jsLogDebug(msg string, attrs ...map[string]interface{}) {
	e.log.Debug(msg, attrArgs(attrs)...)
}

func (e *Engine) jsLogInfo(msg string, attrs ...map[string]interface{}) {
	e.log.Info(msg, attrArgs(attrs)...)
}

func (e *Engine) jsLogWarn(msg string, attrs ...map[string]interface{}) {
	e.log.Warn(msg, attrArgs(attrs)...)
}

func (e *Engine) jsLogError(msg string, attrs ...map[string]interface{}) {
	e.log.Error(msg, attrArgs(attrs)...)
}

func (e *Engine) jsLogPrintf(format string, args ...interface{}) {
	e.log.Info(fmt.Sprintf(format, args...))
}

// jsGetLogs returns the retained entries, or the last count of them.
func (e *Engine) jsGetLogs(count ...int) []map[string]interface{} {
	n := 0
	if len(count) > 0 {
		n = count[0]
	}
	return exportEntries(e.logger.GetRecentLogs(n))
}

func (e *Engine) jsLogClear() {
	e.logger.ClearLogs()
}

func (e *Engine) jsLogSearch(query string) []map[string]interface{} {
	return exportEntries(e.logger.SearchLogs(query))
}

// attrArgs flattens JS attribute objects into slog key/value pairs, in key
// order.
func attrArgs(attrs []map[string]interface{}) []any {
	var args []any
	for _, m := range attrs {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, k, m[k])
		}
	}
	return args
}

func exportEntries(entries []LogEntry) []map[string]interface{} {
	out := make([]map[string]interface{}, len(entries))
	for i, entry := range entries {
		attrs := make(map[string]interface{}, len(entry.Attrs))
		for k, v := range entry.Attrs {
			attrs[k] = v
		}
		out[i] = map[string]interface{}{
			"time":    entry.Time.Format(time.RFC3339Nano),
			"level":   entry.Level.String(),
			"message": entry.Message,
			"attrs":   attrs,
		}
	}
	return out
}
