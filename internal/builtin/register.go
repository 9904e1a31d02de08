// Package builtin registers the native CommonJS modules available to
// scripts through require().
package builtin

import (
	"sort"

	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/radscript/internal/bridge"
)

// Prefix is the namespace of every native module.
const Prefix = "radiant:"

// modules maps module names (without Prefix) to the global each exports.
var modules = map[string]string{
	"registry": "GlobalRegistry",
	"app":      "Radiant",
	"eclass":   "GlobalEntityClassManager",
	"scene":    "GlobalSceneGraph",
	"undo":     "GlobalUndoSystem",
}

// ModuleNames returns the full names of the registered modules, sorted.
func ModuleNames() []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, Prefix+name)
	}
	sort.Strings(names)
	return names
}

// Register adds every native module to registry. Each module exports the same
// object as the corresponding global installed by b.
func Register(registry *require.Registry, b *bridge.Bridge) {
	for name, global := range modules {
		registry.RegisterNativeModule(Prefix+name, b.Require(global))
	}
}
