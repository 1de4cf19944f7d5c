// Package service provides technical services for token generation and hashing.
//
// This package implements secure random secret generation and keyed hashing.
// The token hash doubles as the storage lookup key, so it must be
// deterministic; a server-side pepper keeps an exfiltrated store useless
// without the key material.
package service

// SecretService defines operations for token secret generation and hashing.
// Implementations must use a cryptographically secure random source and a
// keyed, one-way hash construction.
type SecretService interface {
	// GenerateSecret creates a new cryptographically secure random secret
	// with at least 256 bits of entropy. Returns both the plain text secret
	// (to be shared with the caller exactly once) and its keyed hash (to be
	// stored and used as the lookup key).
	//
	// Entropy source failure is fatal and propagates as an error; there is
	// no fallback to a weaker generator.
	GenerateSecret() (plainSecret string, secretHash string, error error)

	// HashSecret derives the storage hash for a plain text secret.
	// Deterministic: validation re-hashes the presented secret and looks the
	// result up in the store.
	HashSecret(plainSecret string) string

	// HashFingerprint derives a non-reversible digest for client metadata
	// such as IP addresses and user agents. Uses a key separate from the
	// token hash key so fingerprints cannot be correlated with token hashes.
	HashFingerprint(rawValue string) string
}
