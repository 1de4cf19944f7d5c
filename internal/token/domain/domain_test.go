package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authtokens/internal/errors"
)

func TestTokenTypeIsValid(t *testing.T) {
	valid := []TokenType{
		AccessToken,
		RefreshToken,
		APIKeyToken,
		ResetPasswordToken,
		EmailVerificationToken,
	}
	for _, tokenType := range valid {
		assert.True(t, tokenType.IsValid(), string(tokenType))
	}

	assert.False(t, TokenType("session").IsValid())
	assert.False(t, TokenType("").IsValid())
}

func TestTokenIsActive(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		token  Token
		active bool
	}{
		{
			name:   "active and unexpired",
			token:  Token{Status: TokenStatusActive, ExpiresAt: now.Add(time.Hour)},
			active: true,
		},
		{
			name:   "active but stale",
			token:  Token{Status: TokenStatusActive, ExpiresAt: now.Add(-time.Minute)},
			active: false,
		},
		{
			name:   "active exactly at expiry",
			token:  Token{Status: TokenStatusActive, ExpiresAt: now},
			active: false,
		},
		{
			name:   "expired",
			token:  Token{Status: TokenStatusExpired, ExpiresAt: now.Add(time.Hour)},
			active: false,
		},
		{
			name:   "revoked",
			token:  Token{Status: TokenStatusRevoked, ExpiresAt: now.Add(time.Hour)},
			active: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.token.IsActive(now))
		})
	}
}

func TestTokenSummarize(t *testing.T) {
	now := time.Now().UTC()
	lastUsed := now.Add(-time.Minute)
	userID := uuid.Must(uuid.NewV7())

	token := Token{
		ID:            uuid.Must(uuid.NewV7()),
		TokenHash:     "deadbeef",
		Type:          RefreshToken,
		Status:        TokenStatusActive,
		UserID:        &userID,
		IssuedAt:      now.Add(-time.Hour),
		ExpiresAt:     now.Add(time.Hour),
		LastUsedAt:    &lastUsed,
		Scopes:        []string{"refresh"},
		RotationCount: 2,
	}

	summary := token.Summarize()

	assert.Equal(t, token.ID, summary.ID)
	assert.Equal(t, RefreshToken, summary.Type)
	assert.Equal(t, TokenStatusActive, summary.Status)
	assert.Equal(t, token.IssuedAt, summary.IssuedAt)
	assert.Equal(t, token.ExpiresAt, summary.ExpiresAt)
	assert.Equal(t, &lastUsed, summary.LastUsedAt)
	assert.Equal(t, []string{"refresh"}, summary.Scopes)
	assert.Equal(t, 2, summary.RotationCount)
}

func TestPolicyFor(t *testing.T) {
	t.Run("access tokens are short-lived and user-bound", func(t *testing.T) {
		policy, err := PolicyFor(AccessToken)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, policy.DefaultTTL)
		assert.Equal(t, []string{"read", "write"}, policy.DefaultScopes)
		assert.True(t, policy.RequiresUser)
	})

	t.Run("api keys may exist without a user", func(t *testing.T) {
		policy, err := PolicyFor(APIKeyToken)
		require.NoError(t, err)
		assert.Equal(t, 365*24*time.Hour, policy.DefaultTTL)
		assert.Equal(t, []string{"api"}, policy.DefaultScopes)
		assert.False(t, policy.RequiresUser)
	})

	t.Run("refresh tokens default to thirty days", func(t *testing.T) {
		policy, err := PolicyFor(RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 30*24*time.Hour, policy.DefaultTTL)
		assert.True(t, policy.RequiresUser)
	})

	t.Run("unknown types are rejected", func(t *testing.T) {
		_, err := PolicyFor(TokenType("session"))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "session")
	})

	t.Run("returned scopes are a copy", func(t *testing.T) {
		policy, err := PolicyFor(AccessToken)
		require.NoError(t, err)
		policy.DefaultScopes[0] = "mutated"

		fresh, err := PolicyFor(AccessToken)
		require.NoError(t, err)
		assert.Equal(t, []string{"read", "write"}, fresh.DefaultScopes)
	})
}
