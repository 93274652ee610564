package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"errors"
	"fmt"
	"math"
)

// Causes of exceptions synthesized by this package when the engine reports a
// failure through a NULL result without setting its exception slot.
var (
	ErrNotFunction           = errors.New("cannot call this object as a function: it is not a valid function")
	ErrNotConstructor        = errors.New("cannot call this object as a constructor: it is not a valid constructor")
	ErrClassCreate           = errors.New("class could not be created")
	ErrContextCreate         = errors.New("context could not be created")
	ErrInvalidJSON           = errors.New("string is not valid JSON")
	ErrNotSerializable       = errors.New("value has no JSON representation")
	ErrNotANumber            = errors.New("value could not be converted to a number")
	ErrNotObject             = errors.New("value could not be converted to an object")
	ErrNoGlobalObject        = errors.New("context has no global object")
	ErrNotTypedArray         = errors.New("object is not a typed array")
	ErrNotArrayBuffer        = errors.New("object is not an array buffer")
	ErrEvaluate              = errors.New("script evaluation produced no value")
	ErrCallbackNotRegistered = errors.New("host callback is not registered")
	ErrCallbackPanic         = errors.New("host callback panicked")
	ErrNotDate               = errors.New("value is not a date")
	ErrUnsupportedType       = errors.New("unsupported type")
	ErrInvalidTarget         = errors.New("unmarshal target must be a non-nil pointer")
	ErrIndexOutOfRange       = errors.New("index out of range")
)

// Exception is a thrown JavaScript value. Every engine failure is reported as
// an *Exception.
//
// The thrown value is protected from garbage collection while the Exception
// holds it. Release drops it early; otherwise it is dropped when the owning
// Context closes, or when the exception is returned from a host callback and
// so handed back to the engine. A dropped exception keeps its text and cause:
// Error and errors.Is still work, Value returns a zero Value.
type Exception struct {
	value Value
	cause error
	pins  *pinSet
}

// Value returns the thrown value, or a zero Value once it was dropped.
func (e *Exception) Value() Value {
	return e.value
}

// Unwrap returns the Go cause of a synthesized exception, or nil when the
// engine threw the value itself.
func (e *Exception) Unwrap() error {
	return e.cause
}

// Release drops the thrown value. Later calls do nothing.
func (e *Exception) Release() {
	e.unpin(true)
}

func (e *Exception) unpin(keepText bool) {
	set := e.pins
	if set == nil {
		return
	}
	e.pins = nil
	if !set.take(e) {
		return
	}
	ref, ctx := e.value.ref, e.value.ctx
	if keepText {
		e.snapshot()
	} else {
		e.value = Value{}
	}
	C.JSValueUnprotect(ctx.raw(), ref)
}

// snapshot replaces the value by its text.
func (e *Exception) snapshot() {
	if e.value.ref == nil {
		return
	}
	msg := e.Error()
	e.cause = &detachedError{msg: msg, cause: e.cause}
	e.value = Value{}
}

// Name returns the exception's `name` property converted to a string.
func (e *Exception) Name() (*String, error) {
	return e.property("name")
}

// Message returns the exception's `message` property converted to a string.
func (e *Exception) Message() (*String, error) {
	return e.property("message")
}

// ToString returns the string form of the thrown value.
func (e *Exception) ToString() (*String, error) {
	if e.value.ref == nil {
		return NewString(e.Error()), nil
	}
	return e.value.ToString()
}

func (e *Exception) property(name string) (*String, error) {
	if e.value.ref == nil {
		return nil, e
	}
	obj, err := e.value.ToObject()
	if err != nil {
		return nil, err
	}
	v, err := obj.Get(name)
	if err != nil {
		return nil, err
	}
	return v.ToString()
}

// text converts a property of the thrown value, or the value itself when name
// is empty, without raising exceptions of its own.
func (e *Exception) text(name string) (string, bool) {
	ctx := e.value.ctx.raw()
	v := e.value.ref
	if name != "" {
		obj := C.JSValueToObject(ctx, v, nil)
		if obj == nil {
			return "", false
		}
		key := NewString(name)
		defer key.Release()
		var exc C.JSValueRef
		v = C.JSObjectGetProperty(ctx, obj, key.raw(), &exc)
		if exc != nil || v == nil {
			return "", false
		}
	}
	var exc C.JSValueRef
	ref := C.JSValueToStringCopy(ctx, v, &exc)
	if ref == nil {
		return "", false
	}
	s := adoptString(ref)
	defer s.Release()
	if exc != nil {
		return "", false
	}
	return s.String(), true
}

// Error implements the error interface. Error objects render as
// "Name: message"; any other thrown value renders as its string form.
func (e *Exception) Error() string {
	if e.value.ref == nil || e.value.ctx == nil || e.value.ctx.ref == nil {
		if e.cause != nil {
			return e.cause.Error()
		}
		return "jsc: exception"
	}

	if e.value.IsObject() {
		name, nok := e.text("name")
		msg, mok := e.text("message")
		if nok && mok && msg != "" {
			return fmt.Sprintf("%s: %s", name, msg)
		}
	}

	if s, ok := e.text(""); ok {
		return s
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return "jsc: exception"
}

type detachedError struct {
	msg   string
	cause error
}

func (e *detachedError) Error() string { return e.msg }
func (e *detachedError) Unwrap() error { return e.cause }

// detach drops the value of an exception that must outlive its context.
func detach(err error) error {
	if exc, ok := err.(*Exception); ok {
		exc.Release()
	}
	return err
}

// exception wraps a raw exception slot. It returns nil when the slot is empty.
func (ctx *Context) exception(raw C.JSValueRef) error {
	if raw == nil {
		return nil
	}
	return ctx.pin(&Exception{value: Value{ctx: ctx, ref: raw}})
}

// newException synthesizes an exception wrapping a JS string built from cause.
func (ctx *Context) newException(cause error) *Exception {
	return ctx.pin(&Exception{value: ctx.String(cause.Error()), cause: cause})
}

// asException passes exceptions through and wraps any other error. An
// exception nested in a wrapped error is dropped, keeping its text.
func (ctx *Context) asException(err error) error {
	if err == nil {
		return nil
	}
	if exc, ok := err.(*Exception); ok {
		return exc
	}
	var inner *Exception
	if errors.As(err, &inner) {
		inner.Release()
	}
	return ctx.newException(err)
}

// check is the inbound half of the exception channel: a set slot wins over
// whatever the call returned.
func (ctx *Context) check(exc C.JSValueRef) error {
	return ctx.exception(exc)
}

// checkObject converts an object-returning call. NULL with an empty slot is
// reported as cause.
func (ctx *Context) checkObject(obj C.JSObjectRef, exc C.JSValueRef, cause error) (*Object, error) {
	if err := ctx.check(exc); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ctx.newException(cause)
	}
	return newObject(ctx, obj), nil
}

// checkValue converts a value-returning call. NULL with an empty slot is
// reported as cause.
func (ctx *Context) checkValue(v C.JSValueRef, exc C.JSValueRef, cause error) (Value, error) {
	if err := ctx.check(exc); err != nil {
		return Value{}, err
	}
	if v == nil {
		return Value{}, ctx.newException(cause)
	}
	return Value{ctx: ctx, ref: v}, nil
}

// checkNumber converts a numeric coercion. NaN is a failure unless the
// source value is itself a number.
func (ctx *Context) checkNumber(f C.double, exc C.JSValueRef, src Value) (float64, error) {
	if err := ctx.check(exc); err != nil {
		return math.NaN(), err
	}
	n := float64(f)
	if math.IsNaN(n) && !src.IsNumber() {
		return n, ctx.newException(ErrNotANumber)
	}
	return n, nil
}

// raise is the outbound half: it finds the exception to throw for a host
// error. Errors carrying no thrown value become Error objects.
func (ctx *Context) raise(err error) *Exception {
	var exc *Exception
	if errors.As(err, &exc) && exc.value.ref != nil {
		return exc
	}

	msg := ctx.String(err.Error())
	args := []C.JSValueRef{msg.ref}
	var inner C.JSValueRef
	obj := C.JSObjectMakeError(ctx.raw(), 1, &args[0], &inner)
	if obj == nil || inner != nil {
		return &Exception{value: msg, cause: err}
	}
	return &Exception{value: Value{ctx: ctx, ref: C.JSValueRef(obj)}, cause: err}
}

// thrown returns the raw value for the engine's exception slot. The engine
// owns the value from here on, so the exception drops it.
func (ctx *Context) thrown(err error) C.JSValueRef {
	exc := ctx.raise(err)
	ref := exc.value.ref
	exc.Release()
	return ref
}

// deliverValue writes a host result into the two engine channels. Exactly one
// of the return value and *out is non-NULL.
func (ctx *Context) deliverValue(v Value, err error, out *C.JSValueRef) C.JSValueRef {
	if err != nil {
		ref := ctx.thrown(err)
		if out != nil {
			*out = ref
		}
		return nil
	}
	if out != nil {
		*out = nil
	}
	return v.ref
}

// deliverObject is deliverValue for the constructor callback shape.
func (ctx *Context) deliverObject(obj *Object, err error, out *C.JSValueRef) C.JSObjectRef {
	if err == nil && obj == nil {
		err = ctx.newException(ErrNotObject)
	}
	if err != nil {
		ref := ctx.thrown(err)
		if out != nil {
			*out = ref
		}
		return nil
	}
	if out != nil {
		*out = nil
	}
	return obj.raw()
}

// deliverBool is deliverValue for the setter and deleter shapes.
func (ctx *Context) deliverBool(handled bool, err error, out *C.JSValueRef) C.bool {
	if err != nil {
		ref := ctx.thrown(err)
		if out != nil {
			*out = ref
		}
		return C.bool(false)
	}
	if out != nil {
		*out = nil
	}
	return C.bool(handled)
}
