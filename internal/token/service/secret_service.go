package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	apperrors "github.com/allisson/authtokens/internal/errors"
)

// secretByteLength is the entropy of generated secrets: 32 bytes (256 bits).
const secretByteLength = 32

// minPepperLength is the minimum accepted pepper key size in bytes.
const minPepperLength = 32

// secretService implements SecretService using HMAC-SHA256 keyed with a
// server-side pepper. HMAC keeps hashing deterministic for lookups while
// making offline brute force of an exfiltrated store infeasible without
// the pepper.
type secretService struct {
	tokenKey       []byte
	fingerprintKey []byte
}

// GenerateSecret creates a new cryptographically secure 32-byte random secret.
// The secret is base64 URL-encoded for easy transmission.
// Returns the plain secret and its keyed HMAC-SHA256 hash.
func (s *secretService) GenerateSecret() (plainSecret string, secretHash string, error error) {
	randomBytes := make([]byte, secretByteLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random secret")
	}

	plainSecret = base64.URLEncoding.EncodeToString(randomBytes)
	secretHash = s.HashSecret(plainSecret)

	return plainSecret, secretHash, nil
}

// HashSecret hashes a plain text secret using HMAC-SHA256 with the token key.
// Returns the digest as a hexadecimal string.
func (s *secretService) HashSecret(plainSecret string) string {
	mac := hmac.New(sha256.New, s.tokenKey)
	mac.Write([]byte(plainSecret))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashFingerprint hashes a raw client value (IP address, user agent) using
// HMAC-SHA256 with the fingerprint key. The raw value is never stored.
func (s *secretService) HashFingerprint(rawValue string) string {
	mac := hmac.New(sha256.New, s.fingerprintKey)
	mac.Write([]byte(rawValue))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewSecretService creates a new SecretService keyed with the given pepper.
// The fingerprint key is derived from the pepper via HKDF-SHA256 so that
// token hashes and fingerprint hashes live in separate key domains.
// Returns an error if the pepper is shorter than 32 bytes.
func NewSecretService(pepper []byte) (SecretService, error) {
	if len(pepper) < minPepperLength {
		return nil, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"token hash pepper must be at least 32 bytes",
		)
	}

	fingerprintKey := make([]byte, 32)
	kdf := hkdf.New(sha256.New, pepper, nil, []byte("authtokens/fingerprint/v1"))
	if _, err := io.ReadFull(kdf, fingerprintKey); err != nil {
		return nil, apperrors.Wrap(err, "failed to derive fingerprint key")
	}

	return &secretService{
		tokenKey:       pepper,
		fingerprintKey: fingerprintKey,
	}, nil
}
