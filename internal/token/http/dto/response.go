package dto

import (
	"time"
)

// CreateTokenResponse contains the result of issuing or rotating a token.
// SECURITY: Token carries the plaintext secret; it is returned exactly once
// and must be saved securely by the caller.
type CreateTokenResponse struct {
	Token         string     `json:"token"`
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	UserID        *string    `json:"user_id,omitempty"`
	IssuedAt      time.Time  `json:"issued_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Scopes        []string   `json:"scopes"`
	ParentTokenID *string    `json:"parent_token_id,omitempty"`
	RotationCount int        `json:"rotation_count"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// TokenSummaryResponse represents a token in listing responses.
// Never carries the token hash or plaintext.
type TokenSummaryResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	IssuedAt      time.Time  `json:"issued_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Scopes        []string   `json:"scopes"`
	RotationCount int        `json:"rotation_count"`
}

// ListTokensResponse wraps a user's token summaries.
type ListTokensResponse struct {
	Tokens []TokenSummaryResponse `json:"tokens"`
}

// RevokeCountResponse reports how many tokens a bulk revocation affected.
type RevokeCountResponse struct {
	Count int64 `json:"count"`
}
