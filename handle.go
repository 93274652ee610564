package jsc

import (
	"math"
	"sync"
	"sync/atomic"
	"unsafe"
)

// hostSlot is what a host-backed object's private pointer resolves to: the
// hook table dispatched by the trampolines and the host's own data.
type hostSlot struct {
	hooks *classHooks
	mu    sync.RWMutex
	data  any

	// set while methods are installed; property hooks stand aside
	installing atomic.Bool
}

func (s *hostSlot) load() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *hostSlot) store(v any) {
	s.mu.Lock()
	s.data = v
	s.mu.Unlock()
}

// handleStore maps int32 ids to host slots. The id is what the engine keeps
// in the object's private pointer, so no Go pointer ever lives in C memory.
type handleStore struct {
	slots  sync.Map // map[int32]*hostSlot
	nextID atomic.Int32
}

// slots is shared by every context: finalizers run without a context and the
// engine may hand a callback any context of the object's group.
var slots = newHandleStore()

func newHandleStore() *handleStore {
	return newHandleStoreWithStartID(0) // 0 is reserved as invalid
}

func newHandleStoreWithStartID(start int32) *handleStore {
	hs := &handleStore{}
	hs.nextID.Store(start)
	return hs
}

// Store saves a slot and returns its id.
func (hs *handleStore) Store(slot *hostSlot) int32 {
	id := hs.nextID.Add(1)

	// the id travels through a void*; keep it positive and non-zero
	if id <= 0 || id == math.MaxInt32 {
		panic("jsc: handle store id overflow, too many host objects alive")
	}

	hs.slots.Store(id, slot)
	return id
}

// Load returns the slot registered under id.
func (hs *handleStore) Load(id int32) (*hostSlot, bool) {
	if v, ok := hs.slots.Load(id); ok {
		return v.(*hostSlot), true
	}
	return nil, false
}

// Delete removes id and reports whether it was present.
func (hs *handleStore) Delete(id int32) bool {
	_, ok := hs.slots.LoadAndDelete(id)
	return ok
}

// Count returns the number of live slots.
func (hs *handleStore) Count() int {
	count := 0
	hs.slots.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func idToPrivate(id int32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(id))
}

func privateToID(p unsafe.Pointer) int32 {
	return int32(uintptr(p))
}

// lookupSlot resolves an object's private pointer. Objects not created by
// this package carry NULL.
func lookupSlot(p unsafe.Pointer) (*hostSlot, bool) {
	if p == nil {
		return nil, false
	}
	return slots.Load(privateToID(p))
}
