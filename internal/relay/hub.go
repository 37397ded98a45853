package relay

import (
	"sync"
	"time"
)

// Backlog defaults.
const (
	DefaultBacklogTTL = 6 * time.Hour
	DefaultBacklogMax = 256
)

// Sink receives a message for a subscribed topic. It must not block.
type Sink func(topic string, message []byte)

type retained struct {
	from    string
	message []byte
	at      time.Time
}

// Hub routes published messages to topic subscribers, excluding the
// publisher, and retains messages nobody else received.
type Hub struct {
	ttl time.Duration
	max int
	now func() time.Time

	mu      sync.Mutex
	subs    map[string]map[string]Sink // topic -> client id -> sink
	backlog map[string][]retained
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBacklog bounds retained messages per topic by age and count.
func WithBacklog(ttl time.Duration, max int) HubOption {
	return func(h *Hub) {
		h.ttl = ttl
		h.max = max
	}
}

// WithHubClock replaces time.Now.
func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

// NewHub returns an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		ttl:     DefaultBacklogTTL,
		max:     DefaultBacklogMax,
		now:     time.Now,
		subs:    map[string]map[string]Sink{},
		backlog: map[string][]retained{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers sink for client on topic and flushes retained messages
// published by other clients.
func (h *Hub) Subscribe(client, topic string, sink Sink) {
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = map[string]Sink{}
	}
	h.subs[topic][client] = sink

	var flush [][]byte
	var keep []retained
	cutoff := h.now().Add(-h.ttl)
	for _, r := range h.backlog[topic] {
		switch {
		case r.at.Before(cutoff):
		case r.from == client:
			keep = append(keep, r)
		default:
			flush = append(flush, r.message)
		}
	}
	if len(keep) == 0 {
		delete(h.backlog, topic)
	} else {
		h.backlog[topic] = keep
	}
	h.mu.Unlock()

	for _, m := range flush {
		sink(topic, m)
	}
}

// Unsubscribe removes client from topic.
func (h *Hub) Unsubscribe(client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[topic], client)
	if len(h.subs[topic]) == 0 {
		delete(h.subs, topic)
	}
}

// Disconnect removes client from every topic.
func (h *Hub) Disconnect(client string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, clients := range h.subs {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Publish delivers message to every subscriber of topic except client and
// returns how many received it. Undelivered messages are retained.
func (h *Hub) Publish(client, topic string, message []byte) int {
	h.mu.Lock()
	var sinks []Sink
	for id, sink := range h.subs[topic] {
		if id != client {
			sinks = append(sinks, sink)
		}
	}
	if len(sinks) == 0 {
		b := append(h.backlog[topic], retained{from: client, message: message, at: h.now()})
		if len(b) > h.max {
			b = b[len(b)-h.max:]
		}
		h.backlog[topic] = b
	}
	h.mu.Unlock()

	for _, sink := range sinks {
		sink(topic, message)
	}
	return len(sinks)
}

// Retained returns the number of messages waiting on topic.
func (h *Hub) Retained(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.backlog[topic])
}
