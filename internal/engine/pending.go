package engine

import (
	"context"
	"encoding/json"
	"sync"

	"signclient/internal/domain"
)

// Pending is the eventual outcome of a negotiation step that completes when
// the peer answers.
type Pending[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

func (p *Pending[T]) resolve(value T, err error) {
	p.once.Do(func() {
		p.value, p.err = value, err
		close(p.done)
	})
}

// Done is closed once the outcome is known.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the outcome is known or ctx is done.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// outcome is what a response or settlement delivers to a waiter.
type outcome struct {
	result  json.RawMessage
	session domain.Session
	err     error
}

type waitKey struct {
	method string
	id     int64
}

// waiters holds one-shot callbacks keyed by (method, id).
type waiters struct {
	mu sync.Mutex
	m  map[waitKey]func(outcome)
}

func newWaiters() *waiters {
	return &waiters{m: map[waitKey]func(outcome){}}
}

func (w *waiters) expect(method string, id int64, fn func(outcome)) {
	w.mu.Lock()
	w.m[waitKey{method, id}] = fn
	w.mu.Unlock()
}

func (w *waiters) cancel(method string, id int64) {
	w.mu.Lock()
	delete(w.m, waitKey{method, id})
	w.mu.Unlock()
}

// deliver runs and removes the waiter. It reports false when none was registered.
func (w *waiters) deliver(method string, id int64, o outcome) bool {
	w.mu.Lock()
	fn, ok := w.m[waitKey{method, id}]
	delete(w.m, waitKey{method, id})
	w.mu.Unlock()
	if ok {
		fn(o)
	}
	return ok
}
