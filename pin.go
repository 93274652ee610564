package jsc

/*
#include "bridge.h"
*/
import "C"
import "sync"

// pinSet holds the exceptions protected on behalf of one global context.
// Whatever is left is unpinned when the owning Context closes.
type pinSet struct {
	mu   sync.Mutex
	excs map[*Exception]struct{}
}

// pins maps a JSGlobalContextRef to its *pinSet. Borrowed views of a context
// share the set of the owning Context.
var pins sync.Map

func pinKey(ctx *Context) C.JSGlobalContextRef {
	return C.JSContextGetGlobalContext(ctx.raw())
}

func pinsOf(ctx *Context) *pinSet {
	key := pinKey(ctx)
	if p, ok := pins.Load(key); ok {
		return p.(*pinSet)
	}
	p, _ := pins.LoadOrStore(key, &pinSet{excs: make(map[*Exception]struct{})})
	return p.(*pinSet)
}

// pin protects the exception's value until it is released or its context
// closes.
func (ctx *Context) pin(e *Exception) *Exception {
	if e.value.ref == nil {
		return e
	}
	set := pinsOf(ctx)
	C.JSValueProtect(ctx.raw(), e.value.ref)

	set.mu.Lock()
	set.excs[e] = struct{}{}
	set.mu.Unlock()
	e.pins = set
	return e
}

// take removes e from the set. It reports false when the owning context
// already unpinned it.
func (s *pinSet) take(e *Exception) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.excs[e]; !ok {
		return false
	}
	delete(s.excs, e)
	return true
}

func (s *pinSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.excs)
}

// unpinAll runs right before ctx releases its reference. Every exception
// still pinned keeps its text and loses its value.
func (ctx *Context) unpinAll() {
	p, ok := pins.LoadAndDelete(pinKey(ctx))
	if !ok {
		return
	}
	set := p.(*pinSet)
	set.mu.Lock()
	excs := set.excs
	set.excs = nil
	set.mu.Unlock()

	for e := range excs {
		ref := e.value.ref
		e.snapshot()
		e.pins = nil
		C.JSValueUnprotect(ctx.ref, ref)
	}
}

// discard releases an exception the package handles itself.
func discard(err error) {
	if exc, ok := err.(*Exception); ok {
		exc.unpin(false)
	}
}
