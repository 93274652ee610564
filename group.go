package jsc

/*
#include "bridge.h"
*/
import "C"

// ContextGroup associates contexts with one another so that values can be
// exchanged between them. Values must never cross groups. A ContextGroup owns
// one reference and must be released exactly once.
type ContextGroup struct {
	ref C.JSContextGroupRef
}

// NewContextGroup creates a new context group.
func NewContextGroup() *ContextGroup {
	return &ContextGroup{ref: C.JSContextGroupCreate()}
}

func (g *ContextGroup) raw() C.JSContextGroupRef {
	if g.ref == nil {
		panic("jsc: use of released ContextGroup")
	}
	return g.ref
}

// Retain returns a new owning reference to the same group.
func (g *ContextGroup) Retain() *ContextGroup {
	return &ContextGroup{ref: C.JSContextGroupRetain(g.raw())}
}

// Release drops the reference. Later calls do nothing.
func (g *ContextGroup) Release() {
	if g.ref == nil {
		return
	}
	C.JSContextGroupRelease(g.ref)
	g.ref = nil
}

// NewContext creates a context inside the group.
func (g *ContextGroup) NewContext(opts ...ContextOption) (*Context, error) {
	all := make([]ContextOption, 0, len(opts)+1)
	all = append(all, opts...)
	return NewContext(append(all, WithGroup(g))...)
}

// Same reports whether g and other refer to the same engine group.
func (g *ContextGroup) Same(other *ContextGroup) bool {
	return g.raw() == other.raw()
}
