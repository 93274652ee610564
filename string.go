package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"strings"
	"unicode/utf16"
	"unsafe"
)

// String is a JavaScript string: an immutable UTF-16 buffer owned by the
// engine. An owned String holds one reference and must be released exactly
// once. Borrowed Strings, such as the property names passed to accessor
// hooks, are never released.
type String struct {
	ref      C.JSStringRef
	borrowed bool
}

// NewString creates a JavaScript string from s.
func NewString(s string) *String {
	u := utf16.Encode([]rune(s))
	if len(u) == 0 {
		return adoptString(C.JSStringCreateWithCharacters(nil, 0))
	}
	return adoptString(C.JSStringCreateWithCharacters((*C.JSChar)(unsafe.Pointer(&u[0])), C.size_t(len(u))))
}

// adoptString takes over a reference returned by a Create or Copy call.
func adoptString(ref C.JSStringRef) *String {
	return &String{ref: ref}
}

func borrowString(ref C.JSStringRef) *String {
	return &String{ref: ref, borrowed: true}
}

func (s *String) raw() C.JSStringRef {
	if s.ref == nil {
		panic("jsc: use of released String")
	}
	return s.ref
}

// Retain returns a new owned reference to the same string. It is the way to
// keep a borrowed String past the callback that received it.
func (s *String) Retain() *String {
	return adoptString(C.JSStringRetain(s.raw()))
}

// Release drops the reference. Borrowed strings and released strings are left
// untouched.
func (s *String) Release() {
	if s.borrowed || s.ref == nil {
		return
	}
	C.JSStringRelease(s.ref)
	s.ref = nil
}

// Len returns the number of UTF-16 code units.
func (s *String) Len() int {
	return int(C.JSStringGetLength(s.raw()))
}

// IsEmpty reports whether the string has no characters.
func (s *String) IsEmpty() bool {
	return s.Len() == 0
}

// String converts the string to UTF-8.
func (s *String) String() string {
	n := C.JSStringGetLength(s.raw())
	if n == 0 {
		return ""
	}
	ptr := C.JSStringGetCharactersPtr(s.raw())
	units := unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), int(n))
	return string(utf16.Decode(units))
}

// Equal reports whether both strings hold the same characters.
func (s *String) Equal(other *String) bool {
	return bool(C.JSStringIsEqual(s.raw(), other.raw()))
}

// EqualString compares s with Go text without creating an engine string.
func (s *String) EqualString(text string) bool {
	if strings.IndexByte(text, 0) >= 0 {
		return s.String() == text
	}
	cs := C.CString(text)
	defer C.free(unsafe.Pointer(cs))
	return bool(C.JSStringIsEqualToUTF8CString(s.raw(), cs))
}
