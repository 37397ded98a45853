// Package heartbeat emits periodic pulses that drive expiry sweeps.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"signclient/internal/domain"
)

// DefaultInterval matches the sweep granularity of the expirer.
const DefaultInterval = 5 * time.Second

// Compile-time assertion that Heartbeat implements domain.Heartbeat.
var _ domain.Heartbeat = (*Heartbeat)(nil)

// Heartbeat calls its handlers on every tick once started.
type Heartbeat struct {
	interval time.Duration

	mu       sync.RWMutex
	handlers []func()
}

// New returns a stopped heartbeat. A non-positive interval uses DefaultInterval.
func New(interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Heartbeat{interval: interval}
}

// OnPulse registers handler.
func (h *Heartbeat) OnPulse(handler func()) {
	h.mu.Lock()
	h.handlers = append(h.handlers, handler)
	h.mu.Unlock()
}

// Start ticks until ctx is done.
func (h *Heartbeat) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.Pulse()
			}
		}
	}()
}

// Pulse runs every handler synchronously.
func (h *Heartbeat) Pulse() {
	h.mu.RLock()
	handlers := append([]func(){}, h.handlers...)
	h.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}
