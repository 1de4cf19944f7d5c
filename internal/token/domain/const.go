// Package domain defines the token lifecycle domain model.
// Tokens are opaque credentials stored only as one-way hashes; the plaintext
// secret is returned to the caller exactly once at creation or rotation.
package domain

// TokenType identifies the kind of credential and selects its issuance policy.
type TokenType string

const (
	// AccessToken is a short-lived credential for authenticated requests.
	AccessToken TokenType = "access"

	// RefreshToken is a long-lived credential exchanged for new access tokens.
	RefreshToken TokenType = "refresh"

	// APIKeyToken is a long-lived credential for service-to-service calls.
	// The only type allowed to exist without an associated user.
	APIKeyToken TokenType = "api_key"

	// ResetPasswordToken is a single-purpose credential for password resets.
	ResetPasswordToken TokenType = "reset_password"

	// EmailVerificationToken is a single-purpose credential for email verification.
	EmailVerificationToken TokenType = "email_verification"
)

// IsValid reports whether the token type is a known kind.
func (t TokenType) IsValid() bool {
	switch t {
	case AccessToken, RefreshToken, APIKeyToken, ResetPasswordToken, EmailVerificationToken:
		return true
	}
	return false
}

// TokenStatus represents the lifecycle state of a token.
// Transitions are monotonic: active tokens may become expired or revoked,
// terminal states never move back to active.
type TokenStatus string

const (
	// TokenStatusActive means the token can authenticate requests until expiry.
	TokenStatusActive TokenStatus = "active"

	// TokenStatusExpired means the token passed its expires_at timestamp.
	TokenStatusExpired TokenStatus = "expired"

	// TokenStatusRevoked means the token was explicitly invalidated. Terminal.
	TokenStatusRevoked TokenStatus = "revoked"
)

// MetadataRevocationReason is the token_metadata key under which a revocation
// reason is recorded by Revoke and RevokeAllForUser.
const MetadataRevocationReason = "revocation_reason"
