// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/authtokens/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// TokenType validates that a string is a known token type.
var TokenType = validation.NewStringRuleWithError(
	func(s string) bool {
		switch s {
		case "access", "refresh", "api_key", "reset_password", "email_verification":
			return true
		}
		return false
	},
	validation.NewError("validation_token_type", "must be a known token type"),
)

// ScopeList validates that every scope value is a non-blank string.
// An empty list is valid: it means "no capabilities", distinct from absence.
var ScopeList = validation.By(func(value interface{}) error {
	scopes, ok := value.([]string)
	if !ok {
		if value == nil {
			return nil
		}
		return validation.NewError("validation_scope_type", "must be a list of strings")
	}
	for _, scope := range scopes {
		if strings.TrimSpace(scope) == "" {
			return validation.NewError("validation_scope_blank", "scope values must not be blank")
		}
	}
	return nil
})

// NoWhitespace validates that a string contains no whitespace at all.
// Correlation identifiers travel through logs and headers as single tokens.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsFunc(s, unicode.IsSpace)
	},
	validation.NewError("validation_no_whitespace", "must not contain whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
