// Package crypto provides authenticated symmetric encryption for sensitive
// payment data, used to store gift-card PINs at rest on the payment record.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	keyLength   = 32 // AES-256
	nonceLength = 12 // 96 bits for GCM
)

var (
	ErrInvalidKeyLength = errors.New("encryption key must be 32 bytes (64 hex characters)")
	ErrEmptyValue       = errors.New("cannot encrypt empty value")
	// ErrDecryptionFailed is deliberately generic: it covers malformed
	// payloads, bad encodings, and failed tag verification alike, so the
	// error text never tells an attacker which one happened.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encryptor encrypts and decrypts strings with AES-256-GCM. Every call to
// Encrypt uses a fresh random nonce, so identical plaintexts produce
// distinct ciphertexts; GCM's tag detects any tampering on decrypt.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from a hex-encoded 32-byte key. It fails
// with ErrInvalidKeyLength on anything else; the process must refuse to
// start rather than run with weak or absent key material.
func NewEncryptor(hexKey string) (*Encryptor, error) {
	if len(hexKey) != keyLength*2 {
		return nil, ErrInvalidKeyLength
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceLength)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt returns a base64-encoded payload laid out as nonce|ciphertext|tag.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyValue
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(nonce, sealed...)
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt. Any failure, whether a bad encoding, a truncated
// payload, or a tag that does not verify, yields ErrDecryptionFailed.
func (e *Encryptor) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", ErrDecryptionFailed
	}

	payload, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(payload) < nonceLength+e.aead.Overhead() {
		return "", ErrDecryptionFailed
	}

	nonce := payload[:nonceLength]
	sealed := payload[nonceLength:]

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey produces a fresh hex-encoded 32-byte key for initial setup.
// Run once and store the result in the ENCRYPTION_KEY environment variable.
func GenerateKey() (string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
