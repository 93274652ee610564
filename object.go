package jsc

/*
#include "bridge.h"
*/
import "C"

// PropertyAttribute controls how a property set through SetWithAttributes
// behaves.
type PropertyAttribute uint

const (
	PropertyNone       PropertyAttribute = C.kJSPropertyAttributeNone
	PropertyReadOnly   PropertyAttribute = C.kJSPropertyAttributeReadOnly
	PropertyDontEnum   PropertyAttribute = C.kJSPropertyAttributeDontEnum
	PropertyDontDelete PropertyAttribute = C.kJSPropertyAttributeDontDelete
)

// Object is a Value known to be an object.
type Object struct {
	Value
}

func newObject(ctx *Context, ref C.JSObjectRef) *Object {
	return &Object{Value: Value{ctx: ctx, ref: C.JSValueRef(ref)}}
}

func (o *Object) raw() C.JSObjectRef {
	return C.JSObjectRef(o.ref)
}

// Get returns the named property. A missing property is undefined.
func (o *Object) Get(name string) (Value, error) {
	s := NewString(name)
	defer s.Release()
	return o.GetString(s)
}

// GetString is Get with an engine string as the name.
func (o *Object) GetString(name *String) (Value, error) {
	var exc C.JSValueRef
	v := C.JSObjectGetProperty(o.ctx.raw(), o.raw(), name.raw(), &exc)
	return o.ctx.checkValue(v, exc, ErrNotObject)
}

// GetIndex returns the property at index. It observes the same property as
// Get with the decimal form of index.
func (o *Object) GetIndex(index uint32) (Value, error) {
	var exc C.JSValueRef
	v := C.JSObjectGetPropertyAtIndex(o.ctx.raw(), o.raw(), C.uint(index), &exc)
	return o.ctx.checkValue(v, exc, ErrNotObject)
}

// GetKey returns the property for an arbitrary key value, such as a symbol.
func (o *Object) GetKey(key Value) (Value, error) {
	var exc C.JSValueRef
	v := C.JSObjectGetPropertyForKey(o.ctx.raw(), o.raw(), key.ref, &exc)
	return o.ctx.checkValue(v, exc, ErrNotObject)
}

// Set assigns the named property.
func (o *Object) Set(name string, value Value) error {
	return o.SetWithAttributes(name, value, PropertyNone)
}

// SetWithAttributes assigns the named property with attrs.
func (o *Object) SetWithAttributes(name string, value Value, attrs PropertyAttribute) error {
	s := NewString(name)
	defer s.Release()

	var exc C.JSValueRef
	C.JSObjectSetProperty(o.ctx.raw(), o.raw(), s.raw(), value.ref, C.JSPropertyAttributes(attrs), &exc)
	return o.ctx.check(exc)
}

// SetIndex assigns the property at index.
func (o *Object) SetIndex(index uint32, value Value) error {
	var exc C.JSValueRef
	C.JSObjectSetPropertyAtIndex(o.ctx.raw(), o.raw(), C.uint(index), value.ref, &exc)
	return o.ctx.check(exc)
}

// SetKey assigns the property for an arbitrary key value.
func (o *Object) SetKey(key Value, value Value) error {
	var exc C.JSValueRef
	C.JSObjectSetPropertyForKey(o.ctx.raw(), o.raw(), key.ref, value.ref, C.JSPropertyAttributes(PropertyNone), &exc)
	return o.ctx.check(exc)
}

// Has reports whether the object or its prototype chain has the property.
func (o *Object) Has(name string) bool {
	s := NewString(name)
	defer s.Release()
	return bool(C.JSObjectHasProperty(o.ctx.raw(), o.raw(), s.raw()))
}

// Delete removes the named property. It reports false when the property is
// not configurable.
func (o *Object) Delete(name string) (bool, error) {
	s := NewString(name)
	defer s.Release()

	var exc C.JSValueRef
	ok := C.JSObjectDeleteProperty(o.ctx.raw(), o.raw(), s.raw(), &exc)
	if err := o.ctx.check(exc); err != nil {
		return false, err
	}
	return bool(ok), nil
}

// PropertyNames returns the enumerable property names. The caller must
// release the result.
func (o *Object) PropertyNames() *PropertyNames {
	return adoptPropertyNames(C.JSObjectCopyPropertyNames(o.ctx.raw(), o.raw()))
}

// IsFunction reports whether the object can be called.
func (o *Object) IsFunction() bool {
	return bool(C.JSObjectIsFunction(o.ctx.raw(), o.raw()))
}

// IsConstructor reports whether the object can be used with `new`.
func (o *Object) IsConstructor() bool {
	return bool(C.JSObjectIsConstructor(o.ctx.raw(), o.raw()))
}

// Call calls the object as a function. A nil this uses the global object.
func (o *Object) Call(this *Object, args ...Value) (Value, error) {
	var thisRef C.JSObjectRef
	if this != nil {
		thisRef = this.raw()
	}
	refs := rawValues(args)
	argc, argv := callArgs(refs)

	var exc C.JSValueRef
	v := C.JSObjectCallAsFunction(o.ctx.raw(), o.raw(), thisRef, argc, argv, &exc)
	return o.ctx.checkValue(v, exc, ErrNotFunction)
}

// Construct calls the object as a constructor.
func (o *Object) Construct(args ...Value) (*Object, error) {
	refs := rawValues(args)
	argc, argv := callArgs(refs)

	var exc C.JSValueRef
	obj := C.JSObjectCallAsConstructor(o.ctx.raw(), o.raw(), argc, argv, &exc)
	return o.ctx.checkObject(obj, exc, ErrNotConstructor)
}

// Prototype returns the object's prototype.
func (o *Object) Prototype() Value {
	return Value{ctx: o.ctx, ref: C.JSObjectGetPrototype(o.ctx.raw(), o.raw())}
}

// SetPrototype sets the object's prototype. Values other than objects and
// null are ignored by the engine.
func (o *Object) SetPrototype(proto Value) {
	C.JSObjectSetPrototype(o.ctx.raw(), o.raw(), proto.ref)
}

// PrivateData returns the host data of an object created from a host class
// or NewFunction.
func (o *Object) PrivateData() (any, bool) {
	slot, ok := lookupSlot(C.JSObjectGetPrivate(o.raw()))
	if !ok {
		return nil, false
	}
	return slot.load(), true
}

// SetPrivateData replaces the host data. It reports false for objects that do
// not carry host data.
func (o *Object) SetPrivateData(data any) bool {
	slot, ok := lookupSlot(C.JSObjectGetPrivate(o.raw()))
	if !ok {
		return false
	}
	slot.store(data)
	return true
}
