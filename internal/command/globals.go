package command

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/radscript/internal/bridge"
	"github.com/joeycumines/radscript/internal/builtin"
)

var globalDescriptions = map[string]string{
	"GlobalRegistry":           "hierarchical key/value settings",
	"Radiant":                  "application control, entity lookup by classname",
	"GlobalEntityClassManager": "entity classes, attributes and model definitions",
	"GlobalSceneGraph":         "scene graph root and traversal",
	"GlobalUndoSystem":         "undo/redo of entity key/value edits",
}

// GlobalsCommand lists the host objects visible to scripts.
type GlobalsCommand struct {
	*BaseCommand
	modules bool
}

// NewGlobalsCommand creates a new globals command.
func NewGlobalsCommand() *GlobalsCommand {
	return &GlobalsCommand{
		BaseCommand: NewBaseCommand(
			"globals",
			"List the globals and modules available to scripts",
			"globals [options]",
		),
	}
}

// SetupFlags configures the flags for the globals command.
func (c *GlobalsCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.modules, "modules", false, "Also list the require() module names")
}

// Execute prints the globals.
func (c *GlobalsCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, name := range bridge.GlobalNames() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, globalDescriptions[name])
	}
	if c.modules {
		_, _ = fmt.Fprintln(w, "")
		for _, name := range builtin.ModuleNames() {
			_, _ = fmt.Fprintf(w, "require(%q)\t\n", name)
		}
	}
	return w.Flush()
}
