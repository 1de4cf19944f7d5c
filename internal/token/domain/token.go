package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is the stored representation of an issued credential.
// The plaintext secret is never a field of this struct; only its keyed hash
// is persisted and used as the lookup key during validation.
type Token struct {
	ID            uuid.UUID
	TokenHash     string
	Type          TokenType
	Status        TokenStatus
	UserID        *uuid.UUID
	IssuedAt      time.Time
	ExpiresAt     time.Time
	LastUsedAt    *time.Time
	Scopes        []string
	ClientIPHash  *string
	UserAgentHash *string
	ParentTokenID *uuid.UUID
	RotationCount int
	RevokedAt     *time.Time
	Metadata      map[string]string
	CorrelationID string
}

// IsActive reports whether the token is active and unexpired at the given time.
func (t *Token) IsActive(now time.Time) bool {
	return t.Status == TokenStatusActive && now.Before(t.ExpiresAt)
}

// Summary is the non-secret projection of a token returned for self-service
// session management. It never carries the token hash or plaintext.
type Summary struct {
	ID            uuid.UUID
	Type          TokenType
	Status        TokenStatus
	IssuedAt      time.Time
	ExpiresAt     time.Time
	LastUsedAt    *time.Time
	Scopes        []string
	RotationCount int
}

// Summarize projects the token into its non-secret summary form.
func (t *Token) Summarize() Summary {
	return Summary{
		ID:            t.ID,
		Type:          t.Type,
		Status:        t.Status,
		IssuedAt:      t.IssuedAt,
		ExpiresAt:     t.ExpiresAt,
		LastUsedAt:    t.LastUsedAt,
		Scopes:        t.Scopes,
		RotationCount: t.RotationCount,
	}
}

// CreateTokenInput contains the parameters for issuing a new token.
// Optional fields use pointers or zero values; nil Scopes means "use the
// policy defaults" while an empty non-nil slice means "no capabilities".
type CreateTokenInput struct {
	Type          TokenType
	UserID        *uuid.UUID
	Lifetime      *time.Duration
	Scopes        []string
	ClientIP      string
	UserAgent     string
	CorrelationID string
	Metadata      map[string]string
}

// CreateTokenOutput is the result of issuing a new token.
// PlainToken is returned exactly once and is never retained by the service.
type CreateTokenOutput struct {
	PlainToken string
	Token      *Token
}

// RotateTokenInput contains the parameters for rotating an active token.
type RotateTokenInput struct {
	Lifetime      *time.Duration
	Scopes        []string
	ClientIP      string
	UserAgent     string
	CorrelationID string
}

// ListFilter narrows token listing and bulk revocation by type and status.
// Nil fields match everything. Limit of zero means no limit.
type ListFilter struct {
	Type   *TokenType
	Status *TokenStatus
	Offset int
	Limit  int
}
