package bridge

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/radscript/internal/eclass"
	"github.com/joeycumines/radscript/internal/registry"
)

// registryObject exposes GlobalRegistry.
//
//	get(path: string): string          // throws KeyNotFound
//	has(path: string): boolean
//	getOr(path: string, fallback: string): string
//	set(path: string, value: string): void   // throws MutationRejected
//	delete(path: string): boolean
//	keys(prefix?: string): string[]
//	addObserver(path: string, fn: (path, value, deleted) => void): () => void
func (b *Bridge) registryObject() *goja.Object {
	reg := b.host.Registry
	o := b.vm.NewObject()

	_ = o.Set("get", func(call goja.FunctionCall) goja.Value {
		path := call.Argument(0).String()
		value, err := reg.Get(path)
		b.throwOn("get", path, err)
		return b.vm.ToValue(value)
	})

	_ = o.Set("has", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(reg.Has(call.Argument(0).String()))
	})

	_ = o.Set("getOr", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(reg.GetOr(call.Argument(0).String(), optString(call.Argument(1))))
	})

	_ = o.Set("set", func(call goja.FunctionCall) goja.Value {
		path := call.Argument(0).String()
		value := call.Argument(1).String()
		b.observed("set", path, func() error { return reg.Set(path, value) })
		b.logger.Debug("registry set", "path", path, "value", value)
		return goja.Undefined()
	})

	_ = o.Set("delete", func(call goja.FunctionCall) goja.Value {
		path := call.Argument(0).String()
		var deleted bool
		b.observed("delete", path, func() error {
			deleted = reg.Delete(path)
			return nil
		})
		return b.vm.ToValue(deleted)
	})

	_ = o.Set("addObserver", func(call goja.FunctionCall) goja.Value {
		path := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(b.vm.NewTypeError("addObserver: observer must be a function"))
		}
		remove := reg.AddObserver(path, b.registryObserver(fn))
		b.mu.Lock()
		b.observers = append(b.observers, remove)
		b.mu.Unlock()
		return b.vm.ToValue(func(goja.FunctionCall) goja.Value {
			remove()
			return goja.Undefined()
		})
	})

	_ = o.Set("keys", func(call goja.FunctionCall) goja.Value {
		prefix := ""
		if arg := call.Argument(0); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			prefix = arg.String()
		}
		return b.stringArray(reg.Keys(prefix))
	})

	return o
}

// registryObserver adapts a script callback to registry.Observer. Once one
// observer of a script write fails, the rest are skipped.
func (b *Bridge) registryObserver(fn goja.Callable) registry.Observer {
	return func(path, value string, deleted bool) {
		if b.observerErr != nil {
			return
		}
		_, err := fn(goja.Undefined(), b.vm.ToValue(path), b.vm.ToValue(value), b.vm.ToValue(deleted))
		if err == nil {
			return
		}
		b.logger.Warn("registry observer failed", "path", path, "error", err)
		if b.writes > 0 {
			b.observerErr = err
		}
	}
}

// observed runs a script registry write, throwing its error or else the
// first error raised by an observer it triggered.
func (b *Bridge) observed(op, path string, write func() error) {
	outer := b.observerErr
	b.observerErr = nil
	b.writes++
	err := write()
	b.writes--
	failed := b.observerErr
	b.observerErr = outer

	b.throwOn(op, path, err)
	if failed != nil {
		b.throw(failed)
	}
}

// radiantObject exposes Radiant.
//
//	findEntityByClassname(name: string): Entity | null
//	findEntities(name: string): Entity[]
func (b *Bridge) radiantObject() *goja.Object {
	app := b.host.App
	o := b.vm.NewObject()

	_ = o.Set("findEntityByClassname", func(call goja.FunctionCall) goja.Value {
		return b.wrapEntity(app.FindEntityByClassname(call.Argument(0).String()))
	})

	_ = o.Set("findEntities", func(call goja.FunctionCall) goja.Value {
		found := app.FindEntities(call.Argument(0).String())
		out := make([]interface{}, len(found))
		for i, e := range found {
			out[i] = b.wrapEntity(e)
		}
		return b.vm.NewArray(out...)
	})

	return o
}

// eclassObject exposes GlobalEntityClassManager.
//
//	findClass(name: string): EntityClass | null
//	findModel(name: string): ModelDef | null
//	forEach(visitor: EntityClassVisitor | (eclass) => void): void
//	getClassNames(): string[]
func (b *Bridge) eclassObject() *goja.Object {
	classes := b.host.Classes
	o := b.vm.NewObject()

	_ = o.Set("findClass", func(call goja.FunctionCall) goja.Value {
		return b.wrapClass(classes.FindClass(call.Argument(0).String()))
	})

	_ = o.Set("findModel", func(call goja.FunctionCall) goja.Value {
		return b.wrapModel(classes.FindModel(call.Argument(0).String()))
	})

	_ = o.Set("getClassNames", func(call goja.FunctionCall) goja.Value {
		return b.stringArray(classes.ClassNames())
	})

	_ = o.Set("forEach", func(call goja.FunctionCall) goja.Value {
		this, visit := b.callback(call.Argument(0), "visit", "forEach")
		var failed error
		classes.ForEachClass(eclass.VisitorFunc(func(c *eclass.EntityClass) {
			if failed != nil {
				return
			}
			_, failed = visit(this, b.wrapClass(c))
		}))
		if failed != nil {
			b.throw(failed)
		}
		return goja.Undefined()
	})

	return o
}

// sceneObject exposes GlobalSceneGraph.
//
//	root(): SceneNode
func (b *Bridge) sceneObject() *goja.Object {
	o := b.vm.NewObject()
	_ = o.Set("root", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(b.host.Scene.Root())
	})
	return o
}

// undoObject exposes GlobalUndoSystem.
//
//	undo(): boolean
//	redo(): boolean
//	size(): number
//	redoSize(): number
//	clear(): void
func (b *Bridge) undoObject() *goja.Object {
	u := b.host.Scene.UndoSystem()
	o := b.vm.NewObject()
	_ = o.Set("undo", func(call goja.FunctionCall) goja.Value {
		ok := u.Undo()
		b.logger.Debug("undo", "applied", ok)
		return b.vm.ToValue(ok)
	})
	_ = o.Set("redo", func(call goja.FunctionCall) goja.Value {
		ok := u.Redo()
		b.logger.Debug("redo", "applied", ok)
		return b.vm.ToValue(ok)
	})
	_ = o.Set("size", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(u.Size())
	})
	_ = o.Set("redoSize", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(u.RedoSize())
	})
	_ = o.Set("clear", func(call goja.FunctionCall) goja.Value {
		u.Clear()
		b.logger.Debug("undo history cleared")
		return goja.Undefined()
	})
	return o
}
