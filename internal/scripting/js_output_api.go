package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// jsPrint writes its arguments, space separated, as one line on stdout.
func (e *Engine) jsPrint(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	_, _ = fmt.Fprintln(e.stdout, strings.Join(parts, " "))
	return goja.Undefined()
}

// jsPrintf writes formatted text to stdout without a trailing newline.
func (e *Engine) jsPrintf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.stdout, format, args...)
}
