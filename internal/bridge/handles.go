package bridge

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/joeycumines/radscript/internal/eclass"
	"github.com/joeycumines/radscript/internal/scene"
)

// wrapNode returns the cached JS handle for n, or null.
//
//	id: number
//	getNodeType(): string
//	isRoot(): boolean
//	getParent(): SceneNode | null
//	getChildren(): SceneNode[]
//	getEntity(): Entity | null
//	traverse(visitor: SceneNodeVisitor | (node) => boolean): void
//	find(expression: string): SceneNode[]
//	remove(): void      // throws MutationRejected for the root or mid-traversal
func (b *Bridge) wrapNode(n *scene.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if o, ok := b.nodes[n]; ok {
		return o
	}
	o := b.vm.NewObject()
	b.constant(o, "id", n.ID())

	_ = o.Set("getNodeType", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(string(n.Type()))
	})
	_ = o.Set("isRoot", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(n.IsRoot())
	})
	_ = o.Set("getParent", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(n.Parent())
	})
	_ = o.Set("getChildren", func(call goja.FunctionCall) goja.Value {
		return b.nodeArray(n.Children())
	})
	_ = o.Set("getEntity", func(call goja.FunctionCall) goja.Value {
		return b.wrapEntity(n.Entity())
	})
	_ = o.Set("traverse", func(call goja.FunctionCall) goja.Value {
		v := b.sceneVisitor(call.Argument(0))
		b.walking++
		err := n.TraverseErr(v)
		b.walking--
		if err != nil {
			b.throw(err)
		}
		return goja.Undefined()
	})
	_ = o.Set("remove", func(call goja.FunctionCall) goja.Value {
		if b.walking > 0 {
			b.throwOn("remove", n.String(), fmt.Errorf("%w: scene is being traversed", scene.ErrMutationRejected))
		}
		b.throwOn("remove", n.String(), b.host.Scene.Remove(n))
		b.logger.Debug("node removed", "node", n.String())
		return goja.Undefined()
	})
	_ = o.Set("find", func(call goja.FunctionCall) goja.Value {
		source := call.Argument(0).String()
		q, err := scene.CompileQuery(source)
		if err != nil {
			b.throw(err)
		}
		found, err := n.Find(q)
		if err != nil {
			b.throw(err)
		}
		return b.nodeArray(found)
	})
	_ = o.Set("toString", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(n.String())
	})

	b.nodes[n] = o
	return o
}

// wrapEntity returns the cached JS handle for e, or null.
//
//	getKeyValue(key: string): string      // "" when unset
//	hasKey(key: string): boolean
//	setKeyValue(key: string, value: string): void  // throws MutationRejected
//	getKeyValues(): {key: string, value: string}[]
//	getClassname(): string
//	isReadOnly(): boolean
//	getNode(): SceneNode
//	getEntityClass(): EntityClass | null
func (b *Bridge) wrapEntity(e *scene.Entity) goja.Value {
	if e == nil {
		return goja.Null()
	}
	if o, ok := b.entities[e]; ok {
		return o
	}
	o := b.vm.NewObject()

	_ = o.Set("getKeyValue", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(e.KeyValue(call.Argument(0).String()))
	})
	_ = o.Set("hasKey", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(e.HasKey(call.Argument(0).String()))
	})
	_ = o.Set("setKeyValue", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		value := optString(call.Argument(1))
		if err := e.SetKeyValue(key, value); err != nil {
			b.logger.Warn("entity mutation rejected", "entity", e.Node().String(), "key", key)
			b.throwOn("setKeyValue", key, err)
		}
		b.logger.Debug("entity key set", "entity", e.Node().String(), "key", key, "value", value)
		return goja.Undefined()
	})
	_ = o.Set("getKeyValues", func(call goja.FunctionCall) goja.Value {
		kvs := e.KeyValues()
		out := make([]interface{}, len(kvs))
		for i, kv := range kvs {
			out[i] = map[string]interface{}{"key": kv.Key, "value": kv.Value}
		}
		return b.vm.NewArray(out...)
	})
	_ = o.Set("getClassname", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(e.Classname())
	})
	_ = o.Set("isReadOnly", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(e.ReadOnly())
	})
	_ = o.Set("getNode", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(e.Node())
	})
	_ = o.Set("getEntityClass", func(call goja.FunctionCall) goja.Value {
		return b.wrapClass(b.host.App.EntityClassOf(e))
	})

	b.entities[e] = o
	return o
}

// wrapClass returns the cached JS handle for c, or null.
//
//	name: string
//	parent: string
//	getAttribute(name: string): {name, value, description, inherited}  // throws AttributeNotFound
//	getAttributeNames(): string[]
func (b *Bridge) wrapClass(c *eclass.EntityClass) goja.Value {
	if c == nil {
		return goja.Null()
	}
	if o, ok := b.classes[c]; ok {
		return o
	}
	o := b.vm.NewObject()
	b.constant(o, "name", c.Name)
	b.constant(o, "parent", c.Parent)

	_ = o.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		a, err := c.Attribute(name)
		b.throwOn("getAttribute", name, err)
		attr := b.vm.NewObject()
		b.constant(attr, "name", a.Name)
		b.constant(attr, "value", a.Value)
		b.constant(attr, "description", a.Description)
		b.constant(attr, "inherited", a.Inherited)
		return attr
	})
	_ = o.Set("getAttributeNames", func(call goja.FunctionCall) goja.Value {
		return b.stringArray(c.AttributeNames())
	})

	b.classes[c] = o
	return o
}

// wrapModel returns the cached JS handle for d, or null. All properties are
// read-only; anims maps animation name to {name, file}.
func (b *Bridge) wrapModel(d *eclass.ModelDef) goja.Value {
	if d == nil {
		return goja.Null()
	}
	if o, ok := b.models[d]; ok {
		return o
	}
	o := b.vm.NewObject()
	b.constant(o, "name", d.Name)
	b.constant(o, "parent", d.Parent)
	b.constant(o, "mesh", d.Mesh)
	b.constant(o, "skin", d.Skin)

	anims := b.vm.NewObject()
	for _, name := range d.AnimNames() {
		spec := d.Anims[name]
		a := b.vm.NewObject()
		b.constant(a, "name", spec.Name)
		b.constant(a, "file", spec.File)
		b.constant(anims, name, a)
	}
	b.constant(o, "anims", anims)

	b.models[d] = o
	return o
}

// constant defines a non-writable, non-configurable, enumerable property.
func (b *Bridge) constant(o *goja.Object, name string, value interface{}) {
	_ = o.DefineDataProperty(name, b.vm.ToValue(value), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (b *Bridge) nodeArray(nodes []*scene.Node) goja.Value {
	out := make([]interface{}, len(nodes))
	for i, n := range nodes {
		out[i] = b.wrapNode(n)
	}
	return b.vm.NewArray(out...)
}

func (b *Bridge) stringArray(ss []string) goja.Value {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return b.vm.NewArray(out...)
}

// optString returns "" for undefined and null, else v's string form.
func optString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
