package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"math"
	"time"
)

// Type is the discriminant of a JavaScript value.
type Type int

const (
	TypeUndefined Type = C.kJSTypeUndefined
	TypeNull      Type = C.kJSTypeNull
	TypeBoolean   Type = C.kJSTypeBoolean
	TypeNumber    Type = C.kJSTypeNumber
	TypeString    Type = C.kJSTypeString
	TypeObject    Type = C.kJSTypeObject
	TypeSymbol    Type = C.kJSTypeSymbol
)

func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeSymbol:
		return "symbol"
	}
	return "unknown"
}

// Value is a JavaScript value scoped to one context. Values are not owned,
// and the engine's collector cannot see Go stacks or the Go heap: a Value
// stays alive only while script or another live object references it, or
// while it is being passed into an engine call. A value created from Go and
// kept across further engine calls before being attached to something must
// be protected with Protect.
type Value struct {
	ctx *Context
	ref C.JSValueRef
}

// Context returns the context the value belongs to.
func (v Value) Context() *Context {
	return v.ctx
}

// IsZero reports whether v holds no handle at all.
func (v Value) IsZero() bool {
	return v.ref == nil
}

// Type queries the engine for the type of v.
func (v Value) Type() Type {
	return Type(C.JSValueGetType(v.ctx.raw(), v.ref))
}

func (v Value) IsUndefined() bool { return bool(C.JSValueIsUndefined(v.ctx.raw(), v.ref)) }
func (v Value) IsNull() bool      { return bool(C.JSValueIsNull(v.ctx.raw(), v.ref)) }
func (v Value) IsBoolean() bool   { return bool(C.JSValueIsBoolean(v.ctx.raw(), v.ref)) }
func (v Value) IsNumber() bool    { return bool(C.JSValueIsNumber(v.ctx.raw(), v.ref)) }
func (v Value) IsString() bool    { return bool(C.JSValueIsString(v.ctx.raw(), v.ref)) }
func (v Value) IsSymbol() bool    { return bool(C.JSValueIsSymbol(v.ctx.raw(), v.ref)) }
func (v Value) IsObject() bool    { return bool(C.JSValueIsObject(v.ctx.raw(), v.ref)) }
func (v Value) IsArray() bool     { return bool(C.JSValueIsArray(v.ctx.raw(), v.ref)) }
func (v Value) IsDate() bool      { return bool(C.JSValueIsDate(v.ctx.raw(), v.ref)) }

// IsObjectOfClass reports whether v is an object created from class or from
// a class derived from it.
func (v Value) IsObjectOfClass(class *Class) bool {
	return bool(C.JSValueIsObjectOfClass(v.ctx.raw(), v.ref, class.raw()))
}

// IsInstanceOf evaluates `v instanceof constructor`.
func (v Value) IsInstanceOf(constructor *Object) (bool, error) {
	var exc C.JSValueRef
	ok := C.JSValueIsInstanceOfConstructor(v.ctx.raw(), v.ref, constructor.raw(), &exc)
	if err := v.ctx.check(exc); err != nil {
		return false, err
	}
	return bool(ok), nil
}

// StrictEquals evaluates `v === other`.
func (v Value) StrictEquals(other Value) bool {
	return bool(C.JSValueIsStrictEqual(v.ctx.raw(), v.ref, other.ref))
}

// Equals evaluates `v == other`, which may run script through valueOf.
func (v Value) Equals(other Value) (bool, error) {
	var exc C.JSValueRef
	ok := C.JSValueIsEqual(v.ctx.raw(), v.ref, other.ref, &exc)
	if err := v.ctx.check(exc); err != nil {
		return false, err
	}
	return bool(ok), nil
}

// ToBool converts v following JavaScript truthiness. It cannot fail.
func (v Value) ToBool() bool {
	return bool(C.JSValueToBoolean(v.ctx.raw(), v.ref))
}

// ToNumber converts v to a number. Conversions yielding NaN from a value that
// is not a number fail with ErrNotANumber.
func (v Value) ToNumber() (float64, error) {
	var exc C.JSValueRef
	f := C.JSValueToNumber(v.ctx.raw(), v.ref, &exc)
	return v.ctx.checkNumber(f, exc, v)
}

// ToString converts v to a string. The caller owns the result.
func (v Value) ToString() (*String, error) {
	var exc C.JSValueRef
	ref := C.JSValueToStringCopy(v.ctx.raw(), v.ref, &exc)
	if err := v.ctx.check(exc); err != nil {
		if ref != nil {
			C.JSStringRelease(ref)
		}
		return nil, err
	}
	if ref == nil {
		return nil, v.ctx.newException(ErrNotSerializable)
	}
	return adoptString(ref), nil
}

// String returns the string form of v, or "" when the conversion throws.
// It implements fmt.Stringer.
func (v Value) String() string {
	s, err := v.ToString()
	if err != nil {
		discard(err)
		return ""
	}
	defer s.Release()
	return s.String()
}

// ToObject converts v to an object. The result shares v's handle when v is
// already an object.
func (v Value) ToObject() (*Object, error) {
	var exc C.JSValueRef
	obj := C.JSValueToObject(v.ctx.raw(), v.ref, &exc)
	return v.ctx.checkObject(obj, exc, ErrNotObject)
}

// ToJSON serializes v. indent is the number of spaces per level, capped at 10
// by the engine. Values without a JSON form, such as undefined, fail with
// ErrNotSerializable.
func (v Value) ToJSON(indent uint) (*String, error) {
	var exc C.JSValueRef
	ref := C.JSValueCreateJSONString(v.ctx.raw(), v.ref, C.uint(indent), &exc)
	if err := v.ctx.check(exc); err != nil {
		if ref != nil {
			C.JSStringRelease(ref)
		}
		return nil, err
	}
	if ref == nil {
		return nil, v.ctx.newException(ErrNotSerializable)
	}
	return adoptString(ref), nil
}

// Protect pins v against garbage collection until a matching Unprotect.
// Calls nest.
func (v Value) Protect() {
	C.JSValueProtect(v.ctx.raw(), v.ref)
}

// Unprotect undoes one Protect.
func (v Value) Unprotect() {
	C.JSValueUnprotect(v.ctx.raw(), v.ref)
}

// ToTime converts a Date to a time.Time. An invalid date converts to the zero
// time.
func (v Value) ToTime() (time.Time, error) {
	if !v.IsDate() {
		return time.Time{}, v.ctx.newException(ErrNotDate)
	}
	obj, err := v.ToObject()
	if err != nil {
		return time.Time{}, err
	}
	obj.Protect()
	defer obj.Unprotect()

	getTime, err := obj.Get("getTime")
	if err != nil {
		return time.Time{}, err
	}
	fn, err := getTime.ToObject()
	if err != nil {
		return time.Time{}, err
	}
	fn.Protect()
	defer fn.Unprotect()

	ms, err := fn.Call(obj)
	if err != nil {
		return time.Time{}, err
	}
	var exc C.JSValueRef
	f := C.JSValueToNumber(v.ctx.raw(), ms.ref, &exc)
	if err := v.ctx.check(exc); err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(float64(f)) {
		return time.Time{}, nil
	}
	return time.UnixMilli(int64(f)), nil
}
