package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// envelopeType0 is the only envelope format: type(1) | nonce(12) | sealed.
const envelopeType0 byte = 0

var errEnvelope = errors.New("malformed envelope")

// seal encrypts plaintext under symKey.
func seal(symKey, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(symKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+chacha20poly1305.NonceSize, 1+chacha20poly1305.NonceSize+len(plaintext)+aead.Overhead())
	out[0] = envelopeType0
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, err
	}
	return aead.Seal(out, out[1:], plaintext, nil), nil
}

// open reverses seal.
func open(symKey, envelope []byte) ([]byte, error) {
	if len(envelope) < 1+chacha20poly1305.NonceSize || envelope[0] != envelopeType0 {
		return nil, errEnvelope
	}
	aead, err := chacha20poly1305.New(symKey)
	if err != nil {
		return nil, err
	}
	nonce := envelope[1 : 1+chacha20poly1305.NonceSize]
	pt, err := aead.Open(nil, nonce, envelope[1+chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errEnvelope, err)
	}
	return pt, nil
}
