package bridge

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/joeycumines/radscript/internal/eclass"
	"github.com/joeycumines/radscript/internal/registry"
	"github.com/joeycumines/radscript/internal/scene"
)

// ErrUnknownGlobal is returned when a global name is not in the fixed set.
var ErrUnknownGlobal = errors.New("unknown global")

// Kind classifies a bridge error. Its string form is the JS error name.
type Kind string

const (
	KindUnknownGlobal     Kind = "UnknownGlobal"
	KindKeyNotFound       Kind = "KeyNotFound"
	KindAttributeNotFound Kind = "AttributeNotFound"
	KindMutationRejected  Kind = "MutationRejected"
)

// Error is a structurally invalid request or a refused mutation, tagged with
// the operation and the offending identifier.
type Error struct {
	Kind       Kind
	Op         string
	Identifier string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(%q): %s: %v", e.Op, e.Identifier, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapError tags err with op and identifier when it carries one of the host
// sentinels; other errors are returned unchanged.
func wrapError(op, identifier string, err error) error {
	var kind Kind
	var be *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &be):
		return err
	case errors.Is(err, ErrUnknownGlobal):
		kind = KindUnknownGlobal
	case errors.Is(err, registry.ErrKeyNotFound):
		kind = KindKeyNotFound
	case errors.Is(err, eclass.ErrAttributeNotFound):
		kind = KindAttributeNotFound
	case errors.Is(err, scene.ErrMutationRejected), errors.Is(err, scene.ErrInvalidStructure),
		errors.Is(err, registry.ErrInvalidPath):
		kind = KindMutationRejected
	default:
		return err
	}
	return &Error{Kind: kind, Op: op, Identifier: identifier, Err: err}
}

// throw raises err in the script. A *Error becomes a GoError whose name is
// the error kind, with op and identifier properties; a *goja.Exception raised
// by a script callback is rethrown unchanged. Interrupts and stack overflows
// stay uncatchable.
func (b *Bridge) throw(err error) {
	var (
		ie *goja.InterruptedError
		so *goja.StackOverflowError
		ex *goja.Exception
	)
	switch {
	case errors.As(err, &ie):
		panic(ie)
	case errors.As(err, &so):
		panic(so)
	case errors.As(err, &ex):
		panic(ex)
	}
	obj := b.vm.NewGoError(err)
	var be *Error
	if errors.As(err, &be) {
		_ = obj.Set("name", string(be.Kind))
		_ = obj.Set("op", be.Op)
		_ = obj.Set("identifier", be.Identifier)
	}
	panic(obj)
}

// throwOn wraps err with op/identifier and throws it, if non-nil.
func (b *Bridge) throwOn(op, identifier string, err error) {
	if err = wrapError(op, identifier, err); err != nil {
		b.logger.Debug("bridge call failed", "op", op, "identifier", identifier, "error", err)
		b.throw(err)
	}
}
