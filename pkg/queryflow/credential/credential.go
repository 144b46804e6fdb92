// Package credential resolves per-user provider secrets.
//
// Secrets are stored as ciphertext under (user id, key name) and
// decrypted on every lookup: freshness over performance. Encryption
// itself is delegated to an injected Cipher; this package never sees
// key material beyond the round trip.
package credential

import (
	"context"
	"errors"
)

// The fixed vocabulary of provider key names.
const (
	KeyOpenAI      = "openai"
	KeyGemini      = "gemini"
	KeyHuggingFace = "huggingface"
	KeySerpAPI     = "serpapi"
	KeyBrave       = "brave"
)

// Store persists credential ciphertext keyed by (user id, key name).
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the ciphertext for a key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, userID, keyName string) (string, error)

	// Put stores ciphertext, overwriting any existing value.
	Put(ctx context.Context, userID, keyName, ciphertext string) error

	// Delete removes a key. Returns nil if the key doesn't exist.
	Delete(ctx context.Context, userID, keyName string) error

	// Close releases any resources.
	Close() error
}

// Cipher encrypts secrets for storage and decrypts them on lookup.
// The mechanism (Fernet, KMS, ...) is the caller's choice.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// NopCipher stores secrets as-is. For tests and local development only.
type NopCipher struct{}

// Encrypt returns the plaintext unchanged.
func (NopCipher) Encrypt(plaintext string) (string, error) { return plaintext, nil }

// Decrypt returns the ciphertext unchanged.
func (NopCipher) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// Sentinel errors for credential operations.
var (
	// ErrNotFound indicates no credential exists for (user, key name).
	ErrNotFound = errors.New("credential not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("credential store closed")
)
