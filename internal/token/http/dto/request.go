// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/authtokens/internal/validation"
)

// CreateTokenRequest contains the parameters for issuing a new token.
// Scopes distinguishes absence (nil, use policy defaults) from an explicit
// empty list (no capabilities).
type CreateTokenRequest struct {
	Type            string            `json:"type"`
	UserID          string            `json:"user_id,omitempty"`
	LifetimeSeconds *int64            `json:"lifetime_seconds,omitempty"`
	Scopes          []string          `json:"scopes,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CorrelationID   string            `json:"correlation_id,omitempty"`
}

// Validate checks if the create token request is valid.
func (r *CreateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type,
			validation.Required,
			customValidation.TokenType,
		),
		validation.Field(&r.Scopes,
			customValidation.ScopeList,
		),
		validation.Field(&r.CorrelationID,
			validation.Length(0, 255),
			customValidation.NoWhitespace,
		),
	)
}

// RotateTokenRequest contains the parameters for rotating an active token.
type RotateTokenRequest struct {
	LifetimeSeconds *int64   `json:"lifetime_seconds,omitempty"`
	Scopes          []string `json:"scopes,omitempty"`
	CorrelationID   string   `json:"correlation_id,omitempty"`
}

// Validate checks if the rotate token request is valid.
func (r *RotateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Scopes,
			customValidation.ScopeList,
		),
		validation.Field(&r.CorrelationID,
			validation.Length(0, 255),
			customValidation.NoWhitespace,
		),
	)
}

// RevokeTokenRequest contains the optional reason for revoking a token.
type RevokeTokenRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Validate checks if the revoke token request is valid.
func (r *RevokeTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason,
			validation.Length(0, 255),
			validation.When(r.Reason != "", customValidation.NotBlank),
		),
	)
}

// RevokeUserTokensRequest contains the parameters for bulk revocation.
type RevokeUserTokensRequest struct {
	TokenType string `json:"token_type,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Validate checks if the bulk revocation request is valid.
func (r *RevokeUserTokensRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TokenType,
			validation.When(r.TokenType != "", customValidation.TokenType),
		),
		validation.Field(&r.Reason,
			validation.Length(0, 255),
			validation.When(r.Reason != "", customValidation.NotBlank),
		),
	)
}
