package crypto

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/jsonrpc"
)

// Compile-time assertion that Provider implements domain.Crypto.
var _ domain.Crypto = (*Provider)(nil)

// Provider implements domain.Crypto on top of a Keychain.
type Provider struct {
	keychain *Keychain
	log      *zap.Logger
}

// New returns a Provider. A nil logger disables logging.
func New(keychain *Keychain, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{keychain: keychain, log: log.Named("crypto")}
}

// Init restores the keychain. Restore failures are logged and leave it empty.
func (p *Provider) Init(ctx context.Context) error {
	if err := p.keychain.Init(ctx); err != nil {
		p.log.Error("restore failed", zap.Error(err))
	}
	return nil
}

// GenerateKeyPair creates an X25519 key pair and stores the private half.
func (p *Provider) GenerateKeyPair(ctx context.Context) (string, error) {
	priv, pub, err := generateX25519()
	if err != nil {
		return "", fmt.Errorf("generate key pair: %w", err)
	}
	defer wipe(priv[:])
	publicKey := hex.EncodeToString(pub[:])
	if err := p.keychain.Set(ctx, publicKey, hex.EncodeToString(priv[:])); err != nil {
		return "", err
	}
	p.log.Debug("generated key pair", zap.String("public", Fingerprint(publicKey)))
	return publicKey, nil
}

// GenerateSharedKey derives and stores the symmetric key shared with peerPublicKey.
func (p *Provider) GenerateSharedKey(ctx context.Context, selfPublicKey, peerPublicKey string) (string, error) {
	privHex, err := p.keychain.Get(selfPublicKey)
	if err != nil {
		return "", err
	}
	priv, err := decodeKey(privHex)
	if err != nil {
		return "", err
	}
	defer wipe(priv)
	peer, err := decodeKey(peerPublicKey)
	if err != nil {
		return "", domain.MissingOrInvalid("peer public key")
	}
	shared, err := dh(priv, peer)
	if err != nil {
		return "", fmt.Errorf("x25519: %w", err)
	}
	defer wipe(shared)
	symKey, err := deriveSymKey(shared)
	if err != nil {
		return "", err
	}
	defer wipe(symKey)
	return p.SetSymKey(ctx, hex.EncodeToString(symKey), "")
}

// SetSymKey stores symKey under topic, deriving the topic when it is empty.
func (p *Provider) SetSymKey(ctx context.Context, symKey, topic string) (string, error) {
	raw, err := decodeKey(symKey)
	if err != nil {
		return "", domain.MissingOrInvalid("sym key")
	}
	if topic == "" {
		topic = hashKey(raw)
	}
	if err := p.keychain.Set(ctx, topic, symKey); err != nil {
		return "", err
	}
	p.log.Debug("set sym key", zap.String("topic", topic))
	return topic, nil
}

// DeleteKeyPair forgets the private key for publicKey.
func (p *Provider) DeleteKeyPair(ctx context.Context, publicKey string) error {
	if err := p.keychain.Delete(ctx, publicKey); err != nil {
		return err
	}
	p.log.Debug("deleted key pair", zap.String("public", Fingerprint(publicKey)))
	return nil
}

// DeleteSymKey forgets the symmetric key for topic.
func (p *Provider) DeleteSymKey(ctx context.Context, topic string) error {
	if err := p.keychain.Delete(ctx, topic); err != nil {
		return err
	}
	p.log.Debug("deleted sym key", zap.String("topic", topic))
	return nil
}

// Encode marshals payload to JSON and seals it with the topic's key.
func (p *Provider) Encode(topic string, payload any) ([]byte, error) {
	symKey, err := p.symKey(topic)
	if err != nil {
		return nil, err
	}
	defer wipe(symKey)
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return seal(symKey, plaintext)
}

// Decode opens message with the topic's key and parses the JSON-RPC payload.
func (p *Provider) Decode(topic string, message []byte) (jsonrpc.Payload, error) {
	symKey, err := p.symKey(topic)
	if err != nil {
		return jsonrpc.Payload{}, err
	}
	defer wipe(symKey)
	plaintext, err := open(symKey, message)
	if err != nil {
		return jsonrpc.Payload{}, fmt.Errorf("decode %s: %w", topic, err)
	}
	var payload jsonrpc.Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return jsonrpc.Payload{}, fmt.Errorf("decode %s: %w", topic, err)
	}
	return payload, nil
}

func (p *Provider) symKey(topic string) ([]byte, error) {
	hexKey, err := p.keychain.Get(topic)
	if err != nil {
		return nil, err
	}
	return decodeKey(hexKey)
}
