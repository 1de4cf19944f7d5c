package domain

import (
	"fmt"
	"time"

	apperrors "github.com/allisson/authtokens/internal/errors"
)

// Policy holds the issuance defaults for a token type.
type Policy struct {
	// DefaultTTL is the lifetime applied when the caller supplies none.
	DefaultTTL time.Duration

	// DefaultScopes are the scopes applied when the caller supplies none.
	DefaultScopes []string

	// RequiresUser indicates whether the type must be bound to a user.
	// Only API keys may be issued as system tokens without a user.
	RequiresUser bool
}

// policies is the static policy table keyed by token type.
var policies = map[TokenType]Policy{
	AccessToken: {
		DefaultTTL:    time.Hour,
		DefaultScopes: []string{"read", "write"},
		RequiresUser:  true,
	},
	RefreshToken: {
		DefaultTTL:    30 * 24 * time.Hour,
		DefaultScopes: []string{"refresh"},
		RequiresUser:  true,
	},
	APIKeyToken: {
		DefaultTTL:    365 * 24 * time.Hour,
		DefaultScopes: []string{"api"},
		RequiresUser:  false,
	},
	ResetPasswordToken: {
		DefaultTTL:    time.Hour,
		DefaultScopes: []string{"reset_password"},
		RequiresUser:  true,
	},
	EmailVerificationToken: {
		DefaultTTL:    24 * time.Hour,
		DefaultScopes: []string{"verify_email"},
		RequiresUser:  true,
	},
}

// PolicyFor returns the issuance policy for the given token type.
// Returns ErrInvalidInput wrapped with the unknown type for unrecognized kinds.
// The returned scope slice is a copy; callers may mutate it freely.
func PolicyFor(tokenType TokenType) (Policy, error) {
	policy, ok := policies[tokenType]
	if !ok {
		return Policy{}, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown token type: %s", tokenType),
		)
	}
	policy.DefaultScopes = append([]string(nil), policy.DefaultScopes...)
	return policy, nil
}
