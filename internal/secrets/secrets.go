// Package secrets protects the provider access token at rest with
// AES-256-GCM. The rest of the system consumes it as an opaque
// encrypt/decrypt capability.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrEncryptionUnavailable is returned by every operation when no key is
// configured. Failure is deterministic so a misconfigured deployment fails
// loudly at link time, not silently at sync time.
var ErrEncryptionUnavailable = errors.New("encryption key not configured")

const keySize = 32

// Store encrypts and decrypts credential strings. The envelope is
// hex(nonce || ciphertext); the GCM tag rides inside the ciphertext.
type Store struct {
	key []byte
}

// NewStore builds a store from a hex-encoded 32-byte key. An empty key is
// allowed and yields a store whose operations fail with
// ErrEncryptionUnavailable.
func NewStore(hexKey string) (*Store, error) {
	if hexKey == "" {
		return &Store{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	return &Store{key: key}, nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	if len(s.key) == 0 {
		return nil, ErrEncryptionUnavailable
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext into a hex envelope.
func (s *Store) Encrypt(plaintext string) (string, error) {
	aead, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (s *Store) Decrypt(envelope string) (string, error) {
	aead, err := s.gcm()
	if err != nil {
		return "", err
	}

	data, err := hex.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	ns := aead.NonceSize()
	if len(data) < ns {
		return "", errors.New("envelope too short")
	}
	nonce, ciphertext := data[:ns], data[ns:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
