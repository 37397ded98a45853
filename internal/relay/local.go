package relay

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signclient/internal/domain"
)

// Compile-time assertion that Local implements domain.Relayer.
var _ domain.Relayer = (*Local)(nil)

// Local is a Relayer attached directly to an in-process Hub. Inbound
// messages are queued and handed to handlers on a single goroutine.
type Local struct {
	hub    *Hub
	id     string
	log    *zap.Logger
	inbox  *queue[domain.MessageEvent]
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	subs     map[string]string // topic -> subscription id
	handlers []func(domain.MessageEvent)
}

// NewLocal attaches a new client to hub and starts its delivery loop.
func NewLocal(hub *Hub, log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Local{
		hub:    hub,
		id:     uuid.NewString(),
		inbox:  newQueue[domain.MessageEvent](),
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   map[string]string{},
	}
	l.log = log.Named("relay").With(zap.String("client", l.id))
	go l.run(ctx)
	return l
}

// ID returns the client id this relayer uses on the hub.
func (l *Local) ID() string { return l.id }

// Subscribe joins topic. Subscribing twice returns the existing id.
func (l *Local) Subscribe(_ context.Context, topic string, _ domain.SubscribeOptions) (string, error) {
	l.mu.Lock()
	if id, ok := l.subs[topic]; ok {
		l.mu.Unlock()
		return id, nil
	}
	id := uuid.NewString()
	l.subs[topic] = id
	l.mu.Unlock()

	l.log.Debug("subscribe", zap.String("topic", topic))
	l.hub.Subscribe(l.id, topic, l.deliver)
	return id, nil
}

// Unsubscribe leaves topic.
func (l *Local) Unsubscribe(_ context.Context, topic string) error {
	l.mu.Lock()
	_, ok := l.subs[topic]
	delete(l.subs, topic)
	l.mu.Unlock()
	if ok {
		l.log.Debug("unsubscribe", zap.String("topic", topic))
		l.hub.Unsubscribe(l.id, topic)
	}
	return nil
}

// Publish sends message to the other subscribers of topic.
func (l *Local) Publish(_ context.Context, topic string, message []byte) error {
	n := l.hub.Publish(l.id, topic, append([]byte(nil), message...))
	l.log.Debug("publish", zap.String("topic", topic), zap.Int("delivered", n))
	return nil
}

// OnMessage registers handler.
func (l *Local) OnMessage(handler func(domain.MessageEvent)) {
	l.mu.Lock()
	l.handlers = append(l.handlers, handler)
	l.mu.Unlock()
}

// Subscribed reports whether topic is subscribed.
func (l *Local) Subscribed(topic string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.subs[topic]
	return ok
}

// Close detaches from the hub and stops delivery.
func (l *Local) Close() error {
	l.hub.Disconnect(l.id)
	l.inbox.close()
	l.cancel()
	<-l.done
	return nil
}

func (l *Local) deliver(topic string, message []byte) {
	l.inbox.push(domain.MessageEvent{Topic: topic, Message: message})
}

func (l *Local) run(ctx context.Context) {
	defer close(l.done)
	for {
		ev, ok := l.inbox.pop(ctx)
		if !ok {
			return
		}
		l.mu.Lock()
		handlers := append([]func(domain.MessageEvent){}, l.handlers...)
		l.mu.Unlock()
		for _, h := range handlers {
			h(ev)
		}
	}
}
