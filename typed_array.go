package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// TypedArrayType identifies the element type of a typed array.
type TypedArrayType int

const (
	TypedArrayInt8         TypedArrayType = C.kJSTypedArrayTypeInt8Array
	TypedArrayInt16        TypedArrayType = C.kJSTypedArrayTypeInt16Array
	TypedArrayInt32        TypedArrayType = C.kJSTypedArrayTypeInt32Array
	TypedArrayUint8        TypedArrayType = C.kJSTypedArrayTypeUint8Array
	TypedArrayUint8Clamped TypedArrayType = C.kJSTypedArrayTypeUint8ClampedArray
	TypedArrayUint16       TypedArrayType = C.kJSTypedArrayTypeUint16Array
	TypedArrayUint32       TypedArrayType = C.kJSTypedArrayTypeUint32Array
	TypedArrayFloat32      TypedArrayType = C.kJSTypedArrayTypeFloat32Array
	TypedArrayFloat64      TypedArrayType = C.kJSTypedArrayTypeFloat64Array
	TypedArrayArrayBuffer  TypedArrayType = C.kJSTypedArrayTypeArrayBuffer
	TypedArrayNone         TypedArrayType = C.kJSTypedArrayTypeNone
)

// ElementSize returns the size in bytes of one element, or 0 for
// TypedArrayNone and TypedArrayArrayBuffer.
func (k TypedArrayType) ElementSize() int {
	switch k {
	case TypedArrayInt8, TypedArrayUint8, TypedArrayUint8Clamped:
		return 1
	case TypedArrayInt16, TypedArrayUint16:
		return 2
	case TypedArrayInt32, TypedArrayUint32, TypedArrayFloat32:
		return 4
	case TypedArrayFloat64:
		return 8
	}
	return 0
}

// TypedArray is a view of an object known to be a typed array. Pointer,
// offset and length are queried again on every access: script may detach or
// replace the underlying buffer at any time.
type TypedArray struct {
	*Object
	kind TypedArrayType
}

// ArrayBuffer is a view of an ArrayBuffer object.
type ArrayBuffer struct {
	*Object
}

func (v Value) typedArrayType() (TypedArrayType, error) {
	var exc C.JSValueRef
	kind := C.JSValueGetTypedArrayType(v.ctx.raw(), v.ref, &exc)
	if err := v.ctx.check(exc); err != nil {
		return TypedArrayNone, err
	}
	return TypedArrayType(kind), nil
}

// IsTypedArray reports whether v is a typed array. ArrayBuffers are not.
func (v Value) IsTypedArray() bool {
	kind, err := v.typedArrayType()
	if err != nil {
		discard(err)
		return false
	}
	return kind != TypedArrayNone && kind != TypedArrayArrayBuffer
}

// ToTypedArray returns a typed array view of v.
func (v Value) ToTypedArray() (*TypedArray, error) {
	kind, err := v.typedArrayType()
	if err != nil {
		return nil, err
	}
	if kind == TypedArrayNone || kind == TypedArrayArrayBuffer {
		return nil, v.ctx.newException(ErrNotTypedArray)
	}
	return &TypedArray{Object: newObject(v.ctx, C.JSObjectRef(v.ref)), kind: kind}, nil
}

// ToArrayBuffer returns an ArrayBuffer view of v.
func (v Value) ToArrayBuffer() (*ArrayBuffer, error) {
	kind, err := v.typedArrayType()
	if err != nil {
		return nil, err
	}
	if kind != TypedArrayArrayBuffer {
		return nil, v.ctx.newException(ErrNotArrayBuffer)
	}
	return &ArrayBuffer{Object: newObject(v.ctx, C.JSObjectRef(v.ref))}, nil
}

// Type returns the element type.
func (t *TypedArray) Type() TypedArrayType {
	return t.kind
}

// Len returns the number of elements.
func (t *TypedArray) Len() (int, error) {
	var exc C.JSValueRef
	n := C.JSObjectGetTypedArrayLength(t.ctx.raw(), t.raw(), &exc)
	if err := t.ctx.check(exc); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ByteOffset returns the view's offset into its buffer.
func (t *TypedArray) ByteOffset() (int, error) {
	var exc C.JSValueRef
	n := C.JSObjectGetTypedArrayByteOffset(t.ctx.raw(), t.raw(), &exc)
	if err := t.ctx.check(exc); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ByteLength returns the size of the view in bytes.
func (t *TypedArray) ByteLength() (int, error) {
	var exc C.JSValueRef
	n := C.JSObjectGetTypedArrayByteLength(t.ctx.raw(), t.raw(), &exc)
	if err := t.ctx.check(exc); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Bytes returns the view's bytes, aliasing engine memory. The slice is valid
// only until script runs again and must not be retained; callers serialise
// access with script themselves.
func (t *TypedArray) Bytes() ([]byte, error) {
	var exc C.JSValueRef
	base := C.JSObjectGetTypedArrayBytesPtr(t.ctx.raw(), t.raw(), &exc)
	if err := t.ctx.check(exc); err != nil {
		return nil, err
	}
	offset, err := t.ByteOffset()
	if err != nil {
		return nil, err
	}
	length, err := t.ByteLength()
	if err != nil {
		return nil, err
	}
	if base == nil || length == 0 {
		return []byte{}, nil
	}
	// the engine reports the buffer's base address, not the view's
	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), length), nil
}

// CopyBytes returns an owned snapshot of the view's bytes.
func (t *TypedArray) CopyBytes() ([]byte, error) {
	b, err := t.Bytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Buffer returns the ArrayBuffer backing the view.
func (t *TypedArray) Buffer() (*ArrayBuffer, error) {
	var exc C.JSValueRef
	obj := C.JSObjectGetTypedArrayBuffer(t.ctx.raw(), t.raw(), &exc)
	o, err := t.ctx.checkObject(obj, exc, ErrNotArrayBuffer)
	if err != nil {
		return nil, err
	}
	return &ArrayBuffer{Object: o}, nil
}

// ByteLength returns the size of the buffer in bytes.
func (b *ArrayBuffer) ByteLength() (int, error) {
	var exc C.JSValueRef
	n := C.JSObjectGetArrayBufferByteLength(b.ctx.raw(), b.raw(), &exc)
	if err := b.ctx.check(exc); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Bytes returns the buffer's bytes, aliasing engine memory under the same
// contract as TypedArray.Bytes.
func (b *ArrayBuffer) Bytes() ([]byte, error) {
	var exc C.JSValueRef
	base := C.JSObjectGetArrayBufferBytesPtr(b.ctx.raw(), b.raw(), &exc)
	if err := b.ctx.check(exc); err != nil {
		return nil, err
	}
	length, err := b.ByteLength()
	if err != nil {
		return nil, err
	}
	if base == nil || length == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(base), length), nil
}

// HostBuffer is memory allocated outside the Go heap that can be handed to
// the engine without copying. Once handed over, the engine owns it and frees
// it when the array is collected.
type HostBuffer struct {
	ptr  unsafe.Pointer
	size int
}

// NewHostBuffer allocates size zeroed bytes.
func NewHostBuffer(size int) *HostBuffer {
	if size < 0 {
		panic("jsc: negative host buffer size")
	}
	n := size
	if n == 0 {
		n = 1
	}
	return &HostBuffer{ptr: C.calloc(C.size_t(n), 1), size: size}
}

// Len returns the size in bytes.
func (h *HostBuffer) Len() int {
	return h.size
}

// Bytes aliases the buffer. It panics after the buffer was handed to the
// engine or freed.
func (h *HostBuffer) Bytes() []byte {
	if h.ptr == nil {
		panic("jsc: use of transferred or freed HostBuffer")
	}
	return unsafe.Slice((*byte)(h.ptr), h.size)
}

// Free releases a buffer the engine never took. Later calls, and calls after
// a transfer, do nothing.
func (h *HostBuffer) Free() {
	if h.ptr == nil {
		return
	}
	C.free(h.ptr)
	h.ptr = nil
}

// Owned reports whether the caller still owns the memory.
func (h *HostBuffer) Owned() bool {
	return h.ptr != nil
}

func (h *HostBuffer) transfer() unsafe.Pointer {
	if h.ptr == nil {
		panic("jsc: use of transferred or freed HostBuffer")
	}
	return h.ptr
}

// NewTypedArray creates a zero-filled typed array of length elements.
func (ctx *Context) NewTypedArray(kind TypedArrayType, length int) (*TypedArray, error) {
	var exc C.JSValueRef
	obj := C.JSObjectMakeTypedArray(ctx.raw(), C.JSTypedArrayType(kind), C.size_t(length), &exc)
	o, err := ctx.checkObject(obj, exc, ErrNotTypedArray)
	if err != nil {
		return nil, err
	}
	return &TypedArray{Object: o, kind: kind}, nil
}

// NewTypedArrayFromBytes creates a typed array holding a copy of data. The
// length of data must be a multiple of the element size.
func (ctx *Context) NewTypedArrayFromBytes(kind TypedArrayType, data []byte) (*TypedArray, error) {
	buf := NewHostBuffer(len(data))
	copy(buf.Bytes(), data)
	t, err := ctx.NewTypedArrayWithBuffer(kind, buf)
	if err != nil {
		// Free is a no-op once the engine was called.
		buf.Free()
		return nil, err
	}
	return t, nil
}

// NewTypedArrayWithBuffer creates a typed array over buf without copying.
// A buffer rejected before reaching the engine (unknown kind, size not a
// whole number of elements) stays owned by the caller. Once the engine is
// called it owns buf whatever the outcome: the engine wraps the bytes with
// its deallocator first, and frees them itself if the array cannot be made.
func (ctx *Context) NewTypedArrayWithBuffer(kind TypedArrayType, buf *HostBuffer) (*TypedArray, error) {
	size := kind.ElementSize()
	if size == 0 || buf.size%size != 0 {
		return nil, ctx.newException(fmt.Errorf("%w: %d bytes do not hold whole %d-byte elements",
			ErrNotTypedArray, buf.size, size))
	}

	var exc C.JSValueRef
	obj := C.jscMakeTypedArrayNoCopy(ctx.raw(), C.JSTypedArrayType(kind), buf.transfer(), C.size_t(buf.size), &exc)
	buf.ptr = nil
	o, err := ctx.checkObject(obj, exc, ErrNotTypedArray)
	if err != nil {
		return nil, err
	}
	return &TypedArray{Object: o, kind: kind}, nil
}

// NewArrayBufferWithBuffer creates an ArrayBuffer over buf without copying.
// The engine owns buf from the call on, whatever the outcome.
func (ctx *Context) NewArrayBufferWithBuffer(buf *HostBuffer) (*ArrayBuffer, error) {
	var exc C.JSValueRef
	obj := C.jscMakeArrayBufferNoCopy(ctx.raw(), buf.transfer(), C.size_t(buf.size), &exc)
	buf.ptr = nil
	o, err := ctx.checkObject(obj, exc, ErrNotArrayBuffer)
	if err != nil {
		return nil, err
	}
	return &ArrayBuffer{Object: o}, nil
}

// NewTypedArrayView creates a typed array of length elements over buffer,
// starting at byteOffset. The view shares the buffer's memory.
func (ctx *Context) NewTypedArrayView(kind TypedArrayType, buffer *ArrayBuffer, byteOffset, length int) (*TypedArray, error) {
	var exc C.JSValueRef
	obj := C.JSObjectMakeTypedArrayWithArrayBufferAndOffset(ctx.raw(), C.JSTypedArrayType(kind),
		buffer.raw(), C.size_t(byteOffset), C.size_t(length), &exc)
	o, err := ctx.checkObject(obj, exc, ErrNotTypedArray)
	if err != nil {
		return nil, err
	}
	return &TypedArray{Object: o, kind: kind}, nil
}
