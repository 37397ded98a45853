package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeyLength is the size of every private, public and symmetric key.
const KeyLength = 32

// generateX25519 returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func generateX25519() (priv, pub [KeyLength]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

// dh computes X25519 Diffie–Hellman.
func dh(priv, pub []byte) ([]byte, error) {
	return curve25519.X25519(priv, pub)
}

// deriveSymKey expands a DH shared secret into the symmetric key both peers use.
func deriveSymKey(shared []byte) ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, nil), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// hashKey returns the topic a symmetric key is addressed by.
func hashKey(symKey []byte) string {
	sum := sha256.Sum256(symKey)
	return hex.EncodeToString(sum[:])
}

// GenerateRandomBytes32 returns 32 random bytes as hex, used for fresh pairing keys.
func GenerateRandomBytes32() (string, error) {
	var b [KeyLength]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func decodeKey(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != KeyLength {
		return nil, fmt.Errorf("invalid key %q", s)
	}
	return b, nil
}

func clamp(k *[KeyLength]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// wipe zeroes b. Best-effort only.
//
//go:noinline
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
