package jsc

/*
#include "bridge.h"
*/
import "C"
import "fmt"

// PropertyNames is a snapshot of an object's enumerable property names. It
// owns one reference and must be released exactly once.
type PropertyNames struct {
	ref  C.JSPropertyNameArrayRef
	next int
}

func adoptPropertyNames(ref C.JSPropertyNameArrayRef) *PropertyNames {
	return &PropertyNames{ref: ref}
}

func (p *PropertyNames) raw() C.JSPropertyNameArrayRef {
	if p.ref == nil {
		panic("jsc: use of released PropertyNames")
	}
	return p.ref
}

// Len returns the number of names.
func (p *PropertyNames) Len() int {
	return int(C.JSPropertyNameArrayGetCount(p.raw()))
}

// At returns the name at index i as an owned String. It panics if i is out
// of range.
func (p *PropertyNames) At(i int) *String {
	if n := p.Len(); i < 0 || i >= n {
		panic(fmt.Sprintf("jsc: property name index %d out of range [0:%d]", i, n))
	}
	ref := C.JSPropertyNameArrayGetNameAtIndex(p.raw(), C.size_t(i))
	return adoptString(C.JSStringRetain(ref))
}

// Next returns the following name, or false once every name was returned.
// The caller owns each returned String.
func (p *PropertyNames) Next() (*String, bool) {
	if p.next >= p.Len() {
		return nil, false
	}
	s := p.At(p.next)
	p.next++
	return s, true
}

// Strings converts every name to Go text.
func (p *PropertyNames) Strings() []string {
	n := p.Len()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s := p.At(i)
		out = append(out, s.String())
		s.Release()
	}
	return out
}

// Release drops the reference. Later calls do nothing.
func (p *PropertyNames) Release() {
	if p.ref == nil {
		return
	}
	C.JSPropertyNameArrayRelease(p.ref)
	p.ref = nil
}
