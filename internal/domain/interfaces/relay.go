package interfaces

import (
	"context"

	domaintypes "signclient/internal/domain/types"
)

// MessageEvent is one message received on a subscribed topic.
type MessageEvent struct {
	Topic   string
	Message []byte
}

// SubscribeOptions selects the relay protocol for a subscription.
type SubscribeOptions struct {
	Relay domaintypes.RelayProtocolOptions
}

// Relayer is the topic-based transport between peers. Handlers registered
// with OnMessage run on the relayer's delivery goroutine, one message at a time.
type Relayer interface {
	Subscribe(ctx context.Context, topic string, opts SubscribeOptions) (subscriptionID string, err error)
	// Unsubscribe is a no-op for topics that are not subscribed.
	Unsubscribe(ctx context.Context, topic string) error
	Publish(ctx context.Context, topic string, message []byte) error
	OnMessage(handler func(MessageEvent))
}
