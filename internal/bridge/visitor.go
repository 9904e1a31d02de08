package bridge

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/radscript/internal/scene"
)

// jsSceneVisitor adapts a script visitor to scene.ErrVisitor. It is only
// referenced for the duration of one traverse call.
type jsSceneVisitor struct {
	b    *Bridge
	this goja.Value
	pre  goja.Callable
	post goja.Callable
}

// sceneVisitor unwraps a traverse argument: either a function, used as pre,
// or an object with a pre method and an optional post method. Anything else
// throws a TypeError.
func (b *Bridge) sceneVisitor(v goja.Value) *jsSceneVisitor {
	this, pre := b.callback(v, "pre", "traverse")
	sv := &jsSceneVisitor{b: b, this: this, pre: pre}
	if obj, ok := this.(*goja.Object); ok {
		if post, ok := goja.AssertFunction(obj.Get("post")); ok {
			sv.post = post
		}
	}
	return sv
}

// Pre calls visitor.pre(node); a truthy result descends into the children.
func (v *jsSceneVisitor) Pre(n *scene.Node) (bool, error) {
	res, err := v.pre(v.this, v.b.wrapNode(n))
	if err != nil {
		return false, err
	}
	return res.ToBoolean(), nil
}

// Post calls visitor.post(node) when the visitor defines one.
func (v *jsSceneVisitor) Post(n *scene.Node) error {
	if v.post == nil {
		return nil
	}
	_, err := v.post(v.this, v.b.wrapNode(n))
	return err
}

// callback resolves a callable from a function or from a method of an
// object, returning the receiver to call it with.
func (b *Bridge) callback(v goja.Value, method, op string) (goja.Value, goja.Callable) {
	if fn, ok := goja.AssertFunction(v); ok {
		return goja.Undefined(), fn
	}
	if obj, ok := v.(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(obj.Get(method)); ok {
			return obj, fn
		}
	}
	panic(b.vm.NewTypeError("%s: visitor must be a function or an object with a %s method", op, method))
}
