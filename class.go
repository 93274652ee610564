package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
	"unsafe"

	"go.uber.org/zap"
)

// FunctionCallback runs when an object is called as a function. function is
// the callee and this is the receiver; either may be nil. Returning a zero
// Value yields undefined.
type FunctionCallback func(ctx *Context, function, this *Object, args []Value) (Value, error)

// ConstructorCallback runs when an object is used with `new`.
type ConstructorCallback func(ctx *Context, constructor *Object, args []Value) (*Object, error)

// PropertyGetter intercepts property reads. Returning a zero Value leaves the
// read to the normal lookup.
type PropertyGetter func(ctx *Context, object *Object, name *String) (Value, error)

// PropertySetter intercepts property writes. Returning false leaves the write
// to the normal assignment.
type PropertySetter func(ctx *Context, object *Object, name *String, value Value) (bool, error)

// PropertyDeleter intercepts delete. Returning false leaves the deletion to
// the normal path.
type PropertyDeleter func(ctx *Context, object *Object, name *String) (bool, error)

// Finalizer runs when an object's storage is collected. It receives the
// object's host data and must not call into the engine.
type Finalizer func(data any)

// ClassFinalizer can be implemented by host data to be told when its object
// is collected. It runs after the class Finalizer.
type ClassFinalizer interface {
	Finalize()
}

type methodEntry struct {
	name string
	fn   FunctionCallback
}

// classHooks is the dispatch table the trampolines consult. A derived class
// holds a merged copy: its own hooks plus whatever it inherits.
type classHooks struct {
	name           string
	constructor    ConstructorCallback
	call           FunctionCallback
	getProperty    PropertyGetter
	setProperty    PropertySetter
	deleteProperty PropertyDeleter
	finalizer      Finalizer
	methods        []methodEntry

	// hook bits registered with the engine by this class or an ancestor
	registered C.uint
}

func (h *classHooks) inherit(parent *classHooks) {
	if h.constructor == nil {
		h.constructor = parent.constructor
	}
	if h.call == nil {
		h.call = parent.call
	}
	if h.getProperty == nil {
		h.getProperty = parent.getProperty
	}
	if h.setProperty == nil {
		h.setProperty = parent.setProperty
	}
	if h.deleteProperty == nil {
		h.deleteProperty = parent.deleteProperty
	}
	if h.finalizer == nil {
		h.finalizer = parent.finalizer
	}

	methods := make([]methodEntry, 0, len(parent.methods)+len(h.methods))
	for _, m := range parent.methods {
		if !h.hasMethod(m.name) {
			methods = append(methods, m)
		}
	}
	h.methods = append(methods, h.methods...)
}

func (h *classHooks) hasMethod(name string) bool {
	for _, m := range h.methods {
		if m.name == name {
			return true
		}
	}
	return false
}

// needed returns the hook bits the table dispatches.
func (h *classHooks) needed() C.uint {
	var bits C.uint
	if h.constructor != nil {
		bits |= C.JSC_HOOK_CONSTRUCT
	}
	if h.call != nil {
		bits |= C.JSC_HOOK_CALL
	}
	if h.getProperty != nil {
		bits |= C.JSC_HOOK_GET_PROPERTY
	}
	if h.setProperty != nil {
		bits |= C.JSC_HOOK_SET_PROPERTY
	}
	if h.deleteProperty != nil {
		bits |= C.JSC_HOOK_DELETE_PROPERTY
	}
	return bits
}

// ClassBuilder accumulates the hooks of a class before a single Build call.
type ClassBuilder struct {
	name   string
	parent *Class
	hooks  classHooks
}

// NewClassBuilder starts a class definition. The name must be valid UTF-8
// without NUL bytes; Build panics otherwise.
func NewClassBuilder(name string) *ClassBuilder {
	return &ClassBuilder{name: name}
}

// Parent makes the class inherit parent's hooks and methods.
func (cb *ClassBuilder) Parent(parent *Class) *ClassBuilder {
	cb.parent = parent
	return cb
}

// Constructor sets the hook run by `new`.
func (cb *ClassBuilder) Constructor(fn ConstructorCallback) *ClassBuilder {
	cb.hooks.constructor = fn
	return cb
}

// CallAsFunction makes instances callable.
func (cb *ClassBuilder) CallAsFunction(fn FunctionCallback) *ClassBuilder {
	cb.hooks.call = fn
	return cb
}

// GetProperty sets the property read interceptor.
func (cb *ClassBuilder) GetProperty(fn PropertyGetter) *ClassBuilder {
	cb.hooks.getProperty = fn
	return cb
}

// SetProperty sets the property write interceptor.
func (cb *ClassBuilder) SetProperty(fn PropertySetter) *ClassBuilder {
	cb.hooks.setProperty = fn
	return cb
}

// DeleteProperty sets the delete interceptor.
func (cb *ClassBuilder) DeleteProperty(fn PropertyDeleter) *ClassBuilder {
	cb.hooks.deleteProperty = fn
	return cb
}

// Method adds a non-enumerable function property installed on every
// instance. A later Method with the same name replaces the earlier one.
func (cb *ClassBuilder) Method(name string, fn FunctionCallback) *ClassBuilder {
	for i, m := range cb.hooks.methods {
		if m.name == name {
			cb.hooks.methods[i].fn = fn
			return cb
		}
	}
	cb.hooks.methods = append(cb.hooks.methods, methodEntry{name: name, fn: fn})
	return cb
}

// Finalizer sets the hook run when an instance is collected.
func (cb *ClassBuilder) Finalizer(fn Finalizer) *ClassBuilder {
	cb.hooks.finalizer = fn
	return cb
}

// Build creates the class. Each engine hook is registered once per class
// chain: a derived class leaves hooks its ancestors registered to them, and
// dispatch always goes through the instance's own merged table. ctx is only
// used to report failures and may be nil, as for a global object class built
// before any context exists.
func (cb *ClassBuilder) Build(ctx *Context) (*Class, error) {
	mustBeName(cb.name)
	for _, m := range cb.hooks.methods {
		mustBeName(m.name)
	}

	hooks := cb.hooks
	hooks.name = cb.name
	hooks.methods = append([]methodEntry(nil), cb.hooks.methods...)

	var parentRef C.JSClassRef
	var inherited C.uint
	if cb.parent != nil {
		parentRef = cb.parent.raw()
		inherited = cb.parent.hooks.registered
		hooks.inherit(cb.parent.hooks)
	}

	mask := hooks.needed() &^ inherited
	if cb.parent == nil {
		mask |= C.JSC_HOOK_INITIALIZE | C.JSC_HOOK_FINALIZE
	}
	hooks.registered = inherited | mask

	name := C.CString(cb.name)
	defer C.free(unsafe.Pointer(name))

	ref := C.jscCreateClass(name, parentRef, C.kJSClassAttributeNone, mask)
	if ref == nil {
		Logger().Error("jsc: class creation failed", zap.String("class", cb.name))
		if ctx == nil {
			return nil, &Exception{cause: ErrClassCreate}
		}
		return nil, ctx.newException(ErrClassCreate)
	}
	return &Class{ref: ref, hooks: &hooks}, nil
}

// Class is a host class definition. It owns one reference and must be
// released exactly once; live instances keep the engine's class alive.
type Class struct {
	ref   C.JSClassRef
	hooks *classHooks
}

func (c *Class) raw() C.JSClassRef {
	if c.ref == nil {
		panic("jsc: use of released Class")
	}
	return c.ref
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.hooks.name
}

// Release drops the reference. Later calls do nothing.
func (c *Class) Release() {
	if c.ref == nil {
		return
	}
	C.JSClassRelease(c.ref)
	c.ref = nil
}

// NewObject creates an instance carrying data as its host data.
func (c *Class) NewObject(ctx *Context, data any) (*Object, error) {
	id := slots.Store(&hostSlot{hooks: c.hooks, data: data})
	ref := C.JSObjectMake(ctx.raw(), c.raw(), idToPrivate(id))
	if ref == nil {
		slots.Delete(id)
		return nil, ctx.newException(fmt.Errorf("%w: %s instance", ErrNotObject, c.hooks.name))
	}
	return newObject(ctx, ref), nil
}

var (
	fnClassOnce sync.Once
	fnClass     C.JSClassRef
)

// functionClass is the callable class behind NewFunction. It lives for the
// whole process.
func functionClass() C.JSClassRef {
	fnClassOnce.Do(func() {
		name := C.CString("HostFunction")
		defer C.free(unsafe.Pointer(name))
		fnClass = C.jscCreateClass(name, nil, C.kJSClassAttributeNoAutomaticPrototype,
			C.JSC_HOOK_CALL|C.JSC_HOOK_FINALIZE)
		if fnClass == nil {
			panic("jsc: host function class could not be created")
		}
	})
	return fnClass
}

// mustBeName panics on names the engine cannot receive as C strings.
func mustBeName(name string) {
	if strings.IndexByte(name, 0) >= 0 {
		panic("jsc: name contains a NUL byte: " + strings.ReplaceAll(name, "\x00", `\x00`))
	}
	if !utf8.ValidString(name) {
		panic("jsc: name is not valid UTF-8")
	}
}

// installMethods defines the slot's methods on obj. The object's own property
// hooks are bypassed meanwhile, so a setter cannot swallow a method. Failures
// are logged; the object stays usable without the method.
func installMethods(ctx *Context, obj *Object, slot *hostSlot) {
	hooks := slot.hooks
	if len(hooks.methods) == 0 {
		return
	}
	slot.installing.Store(true)
	defer slot.installing.Store(false)

	for _, m := range hooks.methods {
		fn, err := ctx.NewFunction(m.name, m.fn)
		if err == nil {
			err = obj.SetWithAttributes(m.name, fn.Value, PropertyDontEnum)
		}
		if err != nil {
			Logger().Warn("jsc: method installation failed",
				zap.String("class", hooks.name),
				zap.String("method", m.name),
				zap.Error(err))
			discard(err)
		}
	}
}
