package interfaces

import (
	"context"

	"signclient/internal/jsonrpc"
)

// Crypto owns key material and seals payloads per topic.
// Keys and topics are lowercase hex strings.
type Crypto interface {
	GenerateKeyPair(ctx context.Context) (publicKey string, err error)
	// GenerateSharedKey derives the symmetric key shared with peerPublicKey,
	// stores it and returns the topic it is registered under.
	GenerateSharedKey(ctx context.Context, selfPublicKey, peerPublicKey string) (topic string, err error)
	// SetSymKey stores symKey under topic, or under sha256(symKey) when topic is empty.
	SetSymKey(ctx context.Context, symKey, topic string) (string, error)
	DeleteKeyPair(ctx context.Context, publicKey string) error
	DeleteSymKey(ctx context.Context, topic string) error

	Encode(topic string, payload any) ([]byte, error)
	Decode(topic string, message []byte) (jsonrpc.Payload, error)
}
