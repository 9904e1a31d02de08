package scripting

import (
	"os"

	"github.com/dop251/goja"
)

// setupGlobals installs the engine's own script globals. The host
// singletons are installed separately by the bridge.
func (e *Engine) setupGlobals(vm *goja.Runtime) error {
	globals := map[string]interface{}{
		"print": e.jsPrint,
		"env":   os.Getenv,
		"log": map[string]interface{}{
			"debug":      e.jsLogDebug,
			"info":       e.jsLogInfo,
			"warn":       e.jsLogWarn,
			"error":      e.jsLogError,
			"printf":     e.jsLogPrintf,
			"getLogs":    e.jsGetLogs,
			"clearLogs":  e.jsLogClear,
			"searchLogs": e.jsLogSearch,
		},
		"output": map[string]interface{}{
			"print":  e.jsPrint,
			"printf": e.jsPrintf,
		},
		"sessionId": e.sessionID,
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
