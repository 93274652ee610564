package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"
)

// The exported functions below are the Go side of the shims in bridge.c. The
// engine never hands them a Go pointer: host state is found through the
// object's private id.

func mustContext(ctx C.JSContextRef) *Context {
	if ctx == nil {
		panic("jsc: engine invoked a callback without a context")
	}
	return borrowContext(ctx)
}

func wrapObject(ctx *Context, ref C.JSObjectRef) *Object {
	if ref == nil {
		return nil
	}
	return newObject(ctx, ref)
}

func (ctx *Context) argValues(argc C.size_t, argv *C.JSValueRef) []Value {
	if argc == 0 || argv == nil {
		return []Value{}
	}
	refs := unsafe.Slice(argv, int(argc))
	args := make([]Value, len(refs))
	for i, ref := range refs {
		args[i] = Value{ctx: ctx, ref: ref}
	}
	return args
}

func objectSlot(object C.JSObjectRef) (*hostSlot, bool) {
	if object == nil {
		return nil, false
	}
	return lookupSlot(C.JSObjectGetPrivate(object))
}

// guard runs a host callback and turns its error into an *Exception, or a
// panic into one. Inspecting the error runs host code too, so it happens
// inside the recovered region.
func guard[T any](ctx *Context, name, hook string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = ctx.panicked(name, hook, r)
		}
	}()
	result, err = fn()
	if err != nil {
		err = ctx.raise(err)
	}
	return result, err
}

// panicked converts a recovered panic. Formatting the panic value may panic
// again, in which case the exception names only the callback.
func (ctx *Context) panicked(name, hook string, r any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ctx.newException(fmt.Errorf("%w: %s %s", ErrCallbackPanic, name, hook))
		}
	}()
	Logger().Error("jsc: host callback panicked",
		zap.String("name", name),
		zap.String("hook", hook),
		zap.Any("panic", r),
		zap.Stack("stack"))
	return ctx.newException(fmt.Errorf("%w: %s %s: %v", ErrCallbackPanic, name, hook, r))
}

//export goCallAsFunction
func goCallAsFunction(ctx C.JSContextRef, function C.JSObjectRef, thisObject C.JSObjectRef,
	argc C.size_t, argv *C.JSValueRef, exception *C.JSValueRef) C.JSValueRef {
	c := mustContext(ctx)

	slot, ok := objectSlot(function)
	if !ok || slot.hooks.call == nil {
		return c.deliverValue(Value{}, c.newException(ErrCallbackNotRegistered), exception)
	}

	fn := wrapObject(c, function)
	this := wrapObject(c, thisObject)
	args := c.argValues(argc, argv)

	v, err := guard(c, slot.hooks.name, "call", func() (Value, error) {
		return slot.hooks.call(c, fn, this, args)
	})
	if err == nil && v.ref == nil {
		v = c.Undefined()
	}
	return c.deliverValue(v, err, exception)
}

//export goCallAsConstructor
func goCallAsConstructor(ctx C.JSContextRef, constructor C.JSObjectRef,
	argc C.size_t, argv *C.JSValueRef, exception *C.JSValueRef) C.JSObjectRef {
	c := mustContext(ctx)

	slot, ok := objectSlot(constructor)
	if !ok || slot.hooks.constructor == nil {
		return c.deliverObject(nil, c.newException(ErrCallbackNotRegistered), exception)
	}

	ctor := wrapObject(c, constructor)
	args := c.argValues(argc, argv)

	obj, err := guard(c, slot.hooks.name, "construct", func() (*Object, error) {
		return slot.hooks.constructor(c, ctor, args)
	})
	return c.deliverObject(obj, err, exception)
}

//export goGetProperty
func goGetProperty(ctx C.JSContextRef, object C.JSObjectRef, name C.JSStringRef, exception *C.JSValueRef) C.JSValueRef {
	c := mustContext(ctx)

	slot, ok := objectSlot(object)
	if !ok || slot.hooks.getProperty == nil || slot.installing.Load() {
		return nil
	}

	obj := wrapObject(c, object)
	v, err := guard(c, slot.hooks.name, "getProperty", func() (Value, error) {
		return slot.hooks.getProperty(c, obj, borrowString(name))
	})
	return c.deliverValue(v, err, exception)
}

//export goSetProperty
func goSetProperty(ctx C.JSContextRef, object C.JSObjectRef, name C.JSStringRef,
	value C.JSValueRef, exception *C.JSValueRef) C.bool {
	c := mustContext(ctx)

	slot, ok := objectSlot(object)
	if !ok || slot.hooks.setProperty == nil || slot.installing.Load() {
		return C.bool(false)
	}

	obj := wrapObject(c, object)
	handled, err := guard(c, slot.hooks.name, "setProperty", func() (bool, error) {
		return slot.hooks.setProperty(c, obj, borrowString(name), Value{ctx: c, ref: value})
	})
	return c.deliverBool(handled, err, exception)
}

//export goDeleteProperty
func goDeleteProperty(ctx C.JSContextRef, object C.JSObjectRef, name C.JSStringRef, exception *C.JSValueRef) C.bool {
	c := mustContext(ctx)

	slot, ok := objectSlot(object)
	if !ok || slot.hooks.deleteProperty == nil || slot.installing.Load() {
		return C.bool(false)
	}

	obj := wrapObject(c, object)
	handled, err := guard(c, slot.hooks.name, "deleteProperty", func() (bool, error) {
		return slot.hooks.deleteProperty(c, obj, borrowString(name))
	})
	return c.deliverBool(handled, err, exception)
}

//export goInitialize
func goInitialize(ctx C.JSContextRef, object C.JSObjectRef) {
	c := mustContext(ctx)

	// global objects receive their slot after creation, see adoptGlobalObject
	slot, ok := objectSlot(object)
	if !ok {
		return
	}
	installMethods(c, newObject(c, object), slot)
}

//export goFinalize
func goFinalize(object C.JSObjectRef) {
	p := C.JSObjectGetPrivate(object)
	if p == nil {
		return
	}
	id := privateToID(p)
	slot, ok := slots.Load(id)
	if !ok {
		Logger().Warn("jsc: finalized object has no host slot", zap.Int32("id", id))
		return
	}
	slots.Delete(id)

	defer func() {
		if r := recover(); r != nil {
			Logger().Error("jsc: finalizer panicked",
				zap.String("name", slot.hooks.name),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	data := slot.load()
	if slot.hooks.finalizer != nil {
		slot.hooks.finalizer(data)
	}
	if f, ok := data.(ClassFinalizer); ok {
		f.Finalize()
	}
}
