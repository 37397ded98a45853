package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short hex fingerprint of a hex-encoded public key.
//
// It hashes the raw key with SHA-256 and truncates to 10 bytes (20 hex chars).
// Malformed input is fingerprinted as-is.
func Fingerprint(publicKey string) string {
	raw, err := hex.DecodeString(publicKey)
	if err != nil {
		raw = []byte(publicKey)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:10])
}
