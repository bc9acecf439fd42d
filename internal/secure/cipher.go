// Package secure provides an optional AEAD layer for encrypting packet
// payloads before they are handed to pktconn.Send, built on
// chacha20poly1305 with its own key/nonce sizing and error taxonomy. It
// sits outside the core protocol entirely — pktconn and wire never import
// it, and frames on the wire are never modified by it. Callers who want
// confidentiality encrypt a packet before Send and decrypt what Recv
// returns; callers who don't can ignore this package completely.
package secure

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSize
)

var (
	ErrInvalidKeySize    = errors.New("secure: invalid key size: must be 32 bytes")
	ErrInvalidCiphertext = errors.New("secure: invalid ciphertext: too short or corrupted")
	ErrDecryptionFailed  = errors.New("secure: decryption failed: authentication tag mismatch or corrupted ciphertext")
)

// Cipher wraps a chacha20poly1305 AEAD under a fixed key.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("secure: create cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext||tag. The nonce is
// generated fresh for every call, so the output format is self-contained
// and safe to pass directly to pktconn.Conn.Send.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("secure: generate nonce: %w", err)
	}
	out := make([]byte, 0, NonceSize+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Open reverses Seal. in must be exactly what a prior Seal call returned
// (typically the slice a pktconn.Conn.Recv call produced).
func (c *Cipher) Open(in []byte) ([]byte, error) {
	if len(in) < NonceSize+c.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	nonce, ciphertext := in[:NonceSize], in[NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random 32-byte key suitable for New.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("secure: generate key: %w", err)
	}
	return key, nil
}
