// Package events is a small typed publish/subscribe registry used by the
// expirer, history and engine to announce state changes.
package events

import (
	"sync"
	"sync/atomic"
)

// Emitter delivers events of type E to handlers registered per name.
// Handlers run synchronously on the emitting goroutine, in registration order.
type Emitter[N comparable, E any] struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[N][]entry[E]
}

type entry[E any] struct {
	id uint64
	fn func(E)
}

// On registers fn for name and returns a func that removes it.
func (em *Emitter[N, E]) On(name N, fn func(E)) (off func()) {
	id := em.add(name, func(uint64) func(E) { return fn })
	return func() { em.off(name, id) }
}

// Once registers fn to run for the next event called name only.
func (em *Emitter[N, E]) Once(name N, fn func(E)) (off func()) {
	var fired atomic.Bool
	id := em.add(name, func(id uint64) func(E) {
		return func(e E) {
			if fired.CompareAndSwap(false, true) {
				em.off(name, id)
				fn(e)
			}
		}
	})
	return func() { em.off(name, id) }
}

func (em *Emitter[N, E]) add(name N, build func(id uint64) func(E)) uint64 {
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.handlers == nil {
		em.handlers = map[N][]entry[E]{}
	}
	em.next++
	id := em.next
	em.handlers[name] = append(em.handlers[name], entry[E]{id: id, fn: build(id)})
	return id
}

func (em *Emitter[N, E]) off(name N, id uint64) {
	em.mu.Lock()
	defer em.mu.Unlock()
	hs := em.handlers[name]
	for i, h := range hs {
		if h.id == id {
			em.handlers[name] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// Emit calls every handler registered for name.
func (em *Emitter[N, E]) Emit(name N, event E) {
	em.mu.RLock()
	hs := append([]entry[E](nil), em.handlers[name]...)
	em.mu.RUnlock()
	for _, h := range hs {
		h.fn(event)
	}
}

// Count returns the number of handlers registered for name.
func (em *Emitter[N, E]) Count(name N) int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.handlers[name])
}
