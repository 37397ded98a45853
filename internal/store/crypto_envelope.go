package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// sealedFormatVersion is the current version of the sealed value format.
const sealedFormatVersion = 1

// errWrongPassphrase is returned when the passphrase is wrong or the file was modified.
var errWrongPassphrase = errors.New("wrong passphrase or corrupted value")

// sealedValue is the on-disk JSON wrapper of a passphrase-sealed value.
type sealedValue struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// sealWithPassphrase derives a key from passphrase and seals raw.
// The key is bound to a fresh salt, so a zero nonce is never reused.
func sealWithPassphrase(passphrase string, raw []byte) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	n, r, p := scryptParams()
	key, err := scrypt.Key([]byte(passphrase), salt[:], n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	return json.Marshal(sealedValue{
		V:      sealedFormatVersion,
		Salt:   salt[:],
		N:      n,
		R:      r,
		P:      p,
		Cipher: aead.Seal(nil, nonce[:], raw, salt[:]),
	})
}

// openWithPassphrase reverses sealWithPassphrase.
func openWithPassphrase(passphrase string, b []byte) ([]byte, error) {
	var sv sealedValue
	if err := json.Unmarshal(b, &sv); err != nil {
		return nil, err
	}
	if sv.V > sealedFormatVersion {
		return nil, fmt.Errorf("unsupported sealed value version %d", sv.V)
	}
	key, err := scrypt.Key([]byte(passphrase), sv.Salt, sv.N, sv.R, sv.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], sv.Cipher, sv.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParams() (n, r, p int) { return 1 << 15, 8, 1 }
