package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authtokens/internal/errors"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenUseCase "github.com/allisson/authtokens/internal/token/usecase"
)

// newMockDB creates a sqlmock-backed database handle for repository tests.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func sampleToken() *tokenDomain.Token {
	userID := uuid.Must(uuid.NewV7())
	ipHash := "ip-hash"
	uaHash := "ua-hash"

	issuedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &tokenDomain.Token{
		ID:            uuid.Must(uuid.NewV7()),
		TokenHash:     "token-hash",
		Type:          tokenDomain.AccessToken,
		Status:        tokenDomain.TokenStatusActive,
		UserID:        &userID,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt.Add(time.Hour),
		Scopes:        []string{"read", "write"},
		ClientIPHash:  &ipHash,
		UserAgentHash: &uaHash,
		RotationCount: 0,
		Metadata:      map[string]string{},
		CorrelationID: "corr-1",
	}
}

// tokenColumnNames mirrors the column order of tokenColumns.
func tokenColumnNames() []string {
	return []string{
		"id", "token_hash", "token_type", "status", "user_id", "issued_at",
		"expires_at", "last_used_at", "scopes", "client_ip_hash",
		"user_agent_hash", "parent_token_id", "rotation_count", "revoked_at",
		"metadata", "correlation_id",
	}
}

// tokenRow builds a result row for the given token.
func tokenRow(token *tokenDomain.Token) *sqlmock.Rows {
	var userID any
	if token.UserID != nil {
		userID = token.UserID.String()
	}
	var parentTokenID any
	if token.ParentTokenID != nil {
		parentTokenID = token.ParentTokenID.String()
	}
	var clientIPHash, userAgentHash any
	if token.ClientIPHash != nil {
		clientIPHash = *token.ClientIPHash
	}
	if token.UserAgentHash != nil {
		userAgentHash = *token.UserAgentHash
	}
	var lastUsedAt, revokedAt any
	if token.LastUsedAt != nil {
		lastUsedAt = *token.LastUsedAt
	}
	if token.RevokedAt != nil {
		revokedAt = *token.RevokedAt
	}

	return sqlmock.NewRows(tokenColumnNames()).AddRow(
		token.ID.String(),
		token.TokenHash,
		string(token.Type),
		string(token.Status),
		userID,
		token.IssuedAt,
		token.ExpiresAt,
		lastUsedAt,
		[]byte(`["read","write"]`),
		clientIPHash,
		userAgentHash,
		parentTokenID,
		token.RotationCount,
		revokedAt,
		[]byte(`{}`),
		token.CorrelationID,
	)
}

func TestPostgreSQLTokenRepository_Create(t *testing.T) {
	t.Run("InsertsToken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)
		token := sampleToken()

		mock.ExpectExec("INSERT INTO auth_tokens").
			WithArgs(
				token.ID,
				token.TokenHash,
				token.Type,
				token.Status,
				token.UserID,
				token.IssuedAt,
				token.ExpiresAt,
				nil,
				[]byte(`["read","write"]`),
				token.ClientIPHash,
				token.UserAgentHash,
				nil,
				token.RotationCount,
				nil,
				[]byte(`{}`),
				token.CorrelationID,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), token)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UniqueViolationReturnsConflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec("INSERT INTO auth_tokens").
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(context.Background(), sampleToken())
		assert.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OtherDatabaseErrorIsWrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec("INSERT INTO auth_tokens").
			WillReturnError(sql.ErrConnDone)

		err := repo.Create(context.Background(), sampleToken())
		assert.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrConflict)
		assert.Contains(t, err.Error(), "failed to create token")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLTokenRepository_Get(t *testing.T) {
	t.Run("ReturnsToken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)
		token := sampleToken()

		mock.ExpectQuery("FROM auth_tokens WHERE id =").
			WithArgs(token.ID).
			WillReturnRows(tokenRow(token))

		got, err := repo.Get(context.Background(), token.ID)
		require.NoError(t, err)
		assert.Equal(t, token.ID, got.ID)
		assert.Equal(t, token.TokenHash, got.TokenHash)
		assert.Equal(t, tokenDomain.AccessToken, got.Type)
		assert.Equal(t, tokenDomain.TokenStatusActive, got.Status)
		require.NotNil(t, got.UserID)
		assert.Equal(t, *token.UserID, *got.UserID)
		assert.Equal(t, []string{"read", "write"}, got.Scopes)
		assert.Equal(t, map[string]string{}, got.Metadata)
		assert.Equal(t, "corr-1", got.CorrelationID)
		assert.Nil(t, got.LastUsedAt)
		assert.Nil(t, got.ParentTokenID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectQuery("FROM auth_tokens WHERE id =").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))
		assert.Nil(t, got)
		assert.ErrorIs(t, err, tokenDomain.ErrTokenNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLTokenRepository_GetByTokenHash(t *testing.T) {
	t.Run("ReturnsToken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)
		token := sampleToken()

		mock.ExpectQuery("FROM auth_tokens WHERE token_hash =").
			WithArgs(token.TokenHash).
			WillReturnRows(tokenRow(token))

		got, err := repo.GetByTokenHash(context.Background(), token.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, token.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectQuery("FROM auth_tokens WHERE token_hash =").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetByTokenHash(context.Background(), "unknown-hash")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, tokenDomain.ErrTokenNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLTokenRepository_ListByUser(t *testing.T) {
	t.Run("ReturnsTokens", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		userID := uuid.Must(uuid.NewV7())
		token1 := sampleToken()
		token1.UserID = &userID
		token2 := sampleToken()
		token2.UserID = &userID
		token2.TokenHash = "token-hash-2"

		rows := tokenRow(token1)
		rows.AddRow(
			token2.ID.String(), token2.TokenHash, string(token2.Type),
			string(token2.Status), userID.String(), token2.IssuedAt,
			token2.ExpiresAt, nil, []byte(`["read","write"]`), nil, nil, nil,
			0, nil, []byte(`{}`), token2.CorrelationID,
		)

		mock.ExpectQuery("FROM auth_tokens WHERE user_id =").
			WithArgs(userID).
			WillReturnRows(rows)

		tokens, err := repo.ListByUser(context.Background(), userID, tokenDomain.ListFilter{})
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, token1.ID, tokens[0].ID)
		assert.Equal(t, token2.ID, tokens[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AppliesFilterAndPagination", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		userID := uuid.Must(uuid.NewV7())
		tokenType := tokenDomain.RefreshToken
		status := tokenDomain.TokenStatusActive

		mock.ExpectQuery("FROM auth_tokens WHERE user_id =").
			WithArgs(userID, tokenType, status, 10, 20).
			WillReturnRows(sqlmock.NewRows(tokenColumnNames()))

		filter := tokenDomain.ListFilter{
			Type:   &tokenType,
			Status: &status,
			Offset: 20,
			Limit:  10,
		}
		tokens, err := repo.ListByUser(context.Background(), userID, filter)
		assert.NoError(t, err)
		assert.Empty(t, tokens)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryErrorIsWrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectQuery("FROM auth_tokens WHERE user_id =").
			WillReturnError(sql.ErrConnDone)

		tokens, err := repo.ListByUser(
			context.Background(), uuid.Must(uuid.NewV7()), tokenDomain.ListFilter{},
		)
		assert.Nil(t, tokens)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list tokens")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLTokenRepository_UpdateStatus(t *testing.T) {
	t.Run("UpdatesActiveToken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		tokenID := uuid.Must(uuid.NewV7())
		revokedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		extra := tokenUseCase.StatusExtra{
			RevokedAt: &revokedAt,
			Metadata:  map[string]string{"revocation_reason": "compromised"},
		}

		mock.ExpectExec("UPDATE auth_tokens").
			WithArgs(
				tokenDomain.TokenStatusRevoked,
				revokedAt,
				[]byte(`{"revocation_reason":"compromised"}`),
				tokenID,
				tokenDomain.TokenStatusActive,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		updated, err := repo.UpdateStatus(
			context.Background(), tokenID, tokenDomain.TokenStatusRevoked, extra,
		)
		assert.NoError(t, err)
		assert.True(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoRowMatchedReturnsFalse", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec("UPDATE auth_tokens").
			WillReturnResult(sqlmock.NewResult(0, 0))

		updated, err := repo.UpdateStatus(
			context.Background(), uuid.Must(uuid.NewV7()),
			tokenDomain.TokenStatusExpired, tokenUseCase.StatusExtra{},
		)
		assert.NoError(t, err)
		assert.False(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLTokenRepository_BulkUpdateStatus(t *testing.T) {
	t.Run("RevokesAllActiveTokens", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		userID := uuid.Must(uuid.NewV7())
		revokedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		extra := tokenUseCase.StatusExtra{RevokedAt: &revokedAt}

		mock.ExpectExec("UPDATE auth_tokens").
			WithArgs(
				tokenDomain.TokenStatusRevoked,
				revokedAt,
				[]byte(`{}`),
				userID,
				tokenDomain.TokenStatusActive,
			).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := repo.BulkUpdateStatus(
			context.Background(), userID, tokenDomain.ListFilter{},
			tokenDomain.TokenStatusRevoked, extra,
		)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NarrowsByTokenType", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		userID := uuid.Must(uuid.NewV7())
		tokenType := tokenDomain.RefreshToken

		mock.ExpectExec("UPDATE auth_tokens").
			WithArgs(
				tokenDomain.TokenStatusRevoked,
				nil,
				[]byte(`{}`),
				userID,
				tokenDomain.TokenStatusActive,
				tokenType,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		count, err := repo.BulkUpdateStatus(
			context.Background(), userID, tokenDomain.ListFilter{Type: &tokenType},
			tokenDomain.TokenStatusRevoked, tokenUseCase.StatusExtra{},
		)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLTokenRepository_UpdateLastUsed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)

	tokenID := uuid.Must(uuid.NewV7())
	usedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE auth_tokens SET last_used_at =").
		WithArgs(usedAt, tokenID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateLastUsed(context.Background(), tokenID, usedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTokenRepository_MarkExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE auth_tokens SET status =").
		WithArgs(
			tokenDomain.TokenStatusExpired,
			tokenDomain.TokenStatusActive,
			now,
		).
		WillReturnResult(sqlmock.NewResult(0, 4))

	count, err := repo.MarkExpired(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTokenRepository_DeleteTerminalBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)

	cutoff := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM auth_tokens").
		WithArgs(
			tokenDomain.TokenStatusExpired,
			tokenDomain.TokenStatusRevoked,
			cutoff,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.DeleteTerminalBefore(context.Background(), cutoff)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
