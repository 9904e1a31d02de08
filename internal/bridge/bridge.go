// Package bridge exposes the host's singletons to a goja runtime.
//
// The set of globals is fixed when the package is compiled:
//
//	GlobalRegistry            hierarchical key/value store
//	Radiant                   application-control object
//	GlobalEntityClassManager  entity classes and model definitions
//	GlobalSceneGraph          scene graph root accessor
//	GlobalUndoSystem          undo/redo of entity key/value edits
//
// Host objects cross the boundary as JS objects whose methods close over the
// Go value. The same host object always maps to the same JS object within one
// Bridge, so scripts may compare handles with ===.
//
// Lookups that find nothing return null. Structurally invalid requests throw a
// GoError whose name is one of UnknownGlobal, KeyNotFound, AttributeNotFound
// or MutationRejected, carrying "op" and "identifier" properties.
//
// A Bridge is bound to one goja.Runtime and, like the runtime, must only be
// used from one goroutine at a time. Visitor callbacks run synchronously on
// the goroutine that called traverse/forEach. Removing a node while a
// traversal is in progress throws MutationRejected.
//
// Registry observers added by scripts run synchronously on the writer's
// goroutine. A throwing observer fails the script write that triggered it;
// failures during writes made from Go are only logged. Close detaches them.
package bridge

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dop251/goja"
	"github.com/joeycumines/radscript/internal/eclass"
	"github.com/joeycumines/radscript/internal/host"
	"github.com/joeycumines/radscript/internal/scene"
)

// GlobalKind enumerates the exposed singletons.
type GlobalKind int

const (
	GlobalRegistryKind GlobalKind = iota + 1
	GlobalRadiantKind
	GlobalEClassKind
	GlobalSceneKind
	GlobalUndoKind
)

// globalTable is the fixed name → kind mapping.
var globalTable = map[string]GlobalKind{
	"GlobalRegistry":           GlobalRegistryKind,
	"Radiant":                  GlobalRadiantKind,
	"GlobalEntityClassManager": GlobalEClassKind,
	"GlobalSceneGraph":         GlobalSceneKind,
	"GlobalUndoSystem":         GlobalUndoKind,
}

// GlobalNames returns the exposed global names in lexical order.
func GlobalNames() []string {
	names := make([]string, 0, len(globalTable))
	for n := range globalTable {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Global is a resolved singleton handle.
type Global struct {
	Name string
	Kind GlobalKind
	// Value is the backing host object: *registry.Registry, *host.Application,
	// *eclass.Manager, *scene.Graph or *scene.UndoSystem.
	Value any
}

// Bridge binds a Host to a goja runtime.
type Bridge struct {
	host   *host.Host
	vm     *goja.Runtime
	logger *slog.Logger

	globals  map[GlobalKind]*goja.Object
	nodes    map[*scene.Node]*goja.Object
	entities map[*scene.Entity]*goja.Object
	classes  map[*eclass.EntityClass]*goja.Object
	models   map[*eclass.ModelDef]*goja.Object

	// walking counts the traversals in progress.
	walking int
	// writes counts the script registry writes in progress; observerErr is
	// the first observer failure of the innermost one.
	writes      int
	observerErr error

	mu        sync.Mutex
	observers []func()
}

// New returns a Bridge for h on vm. A nil logger discards log output.
func New(vm *goja.Runtime, h *host.Host, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		host:     h,
		vm:       vm,
		logger:   logger,
		globals:  make(map[GlobalKind]*goja.Object),
		nodes:    make(map[*scene.Node]*goja.Object),
		entities: make(map[*scene.Entity]*goja.Object),
		classes:  make(map[*eclass.EntityClass]*goja.Object),
		models:   make(map[*eclass.ModelDef]*goja.Object),
	}
}

// Close removes every registry observer added by scripts. It is safe to call
// from any goroutine.
func (b *Bridge) Close() {
	b.mu.Lock()
	removers := b.observers
	b.observers = nil
	b.mu.Unlock()
	for _, remove := range removers {
		remove()
	}
}

// Host returns the bound host.
func (b *Bridge) Host() *host.Host { return b.host }

// ResolveGlobal returns the named singleton or an UnknownGlobal error.
func (b *Bridge) ResolveGlobal(name string) (Global, error) {
	kind, ok := globalTable[name]
	if !ok {
		return Global{}, wrapError("resolveGlobal", name, fmt.Errorf("%w: %s", ErrUnknownGlobal, name))
	}
	g := Global{Name: name, Kind: kind}
	switch kind {
	case GlobalRegistryKind:
		g.Value = b.host.Registry
	case GlobalRadiantKind:
		g.Value = b.host.App
	case GlobalEClassKind:
		g.Value = b.host.Classes
	case GlobalSceneKind:
		g.Value = b.host.Scene
	case GlobalUndoKind:
		g.Value = b.host.Scene.UndoSystem()
	}
	return g, nil
}

// Object returns the JS object for a resolved global.
func (b *Bridge) Object(g Global) *goja.Object {
	if o, ok := b.globals[g.Kind]; ok {
		return o
	}
	var o *goja.Object
	switch g.Kind {
	case GlobalRegistryKind:
		o = b.registryObject()
	case GlobalRadiantKind:
		o = b.radiantObject()
	case GlobalEClassKind:
		o = b.eclassObject()
	case GlobalSceneKind:
		o = b.sceneObject()
	case GlobalUndoKind:
		o = b.undoObject()
	default:
		panic(fmt.Sprintf("bridge: unhandled global kind %d", g.Kind))
	}
	b.globals[g.Kind] = o
	return o
}

// Require returns a CommonJS module loader exporting the named global.
func (b *Bridge) Require(name string) func(runtime *goja.Runtime, module *goja.Object) {
	return func(runtime *goja.Runtime, module *goja.Object) {
		g, err := b.ResolveGlobal(name)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		_ = module.Set("exports", b.Object(g))
	}
}

// visitorPrelude defines the base classes scripts extend to build visitors.
const visitorPrelude = `(function (g) {
	class SceneNodeVisitor {
		pre(node) { return true; }
		post(node) {}
	}
	class EntityClassVisitor {
		visit(eclass) {}
	}
	g.SceneNodeVisitor = SceneNodeVisitor;
	g.EntityClassVisitor = EntityClassVisitor;
})(this);`

// Install defines every global, resolveGlobal(name), and the visitor base
// classes on the runtime's global object.
func (b *Bridge) Install() error {
	for _, name := range GlobalNames() {
		g, err := b.ResolveGlobal(name)
		if err != nil {
			return err
		}
		if err := b.vm.Set(name, b.Object(g)); err != nil {
			return fmt.Errorf("bridge: install %s: %w", name, err)
		}
	}
	err := b.vm.Set("resolveGlobal", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		g, err := b.ResolveGlobal(name)
		b.throwOn("resolveGlobal", name, err)
		return b.Object(g)
	})
	if err != nil {
		return fmt.Errorf("bridge: install resolveGlobal: %w", err)
	}
	if _, err := b.vm.RunString(visitorPrelude); err != nil {
		return fmt.Errorf("bridge: install visitor classes: %w", err)
	}
	return nil
}
