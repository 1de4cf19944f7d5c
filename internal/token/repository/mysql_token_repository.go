package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/authtokens/internal/database"
	apperrors "github.com/allisson/authtokens/internal/errors"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenUseCase "github.com/allisson/authtokens/internal/token/usecase"
)

// mysqlDuplicateEntry is the MySQL error number for duplicate key violations.
const mysqlDuplicateEntry = 1062

// MySQLTokenRepository implements token persistence for MySQL.
// Stores UUIDs as CHAR(36) and scopes/metadata as JSON columns, with
// transaction support via database.GetTx().
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQL token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

// Create inserts a new token. A duplicate key violation on token_hash
// surfaces as an error wrapping ErrConflict so the caller can retry.
func (m *MySQLTokenRepository) Create(ctx context.Context, token *tokenDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	scopes, metadata, err := encodeJSONFields(token)
	if err != nil {
		return err
	}

	query := `INSERT INTO auth_tokens (` + tokenColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.TokenHash,
		token.Type,
		token.Status,
		token.UserID,
		token.IssuedAt,
		token.ExpiresAt,
		token.LastUsedAt,
		scopes,
		token.ClientIPHash,
		token.UserAgentHash,
		token.ParentTokenID,
		token.RotationCount,
		token.RevokedAt,
		metadata,
		token.CorrelationID,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperrors.Wrap(apperrors.ErrConflict, "token hash already exists")
		}
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a token by ID. Returns ErrTokenNotFound if the token doesn't exist.
func (m *MySQLTokenRepository) Get(
	ctx context.Context,
	tokenID uuid.UUID,
) (*tokenDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE id = ?`

	return scanToken(querier.QueryRowContext(ctx, query, tokenID))
}

// GetByTokenHash retrieves a token by its hash.
func (m *MySQLTokenRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*tokenDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE token_hash = ?`

	return scanToken(querier.QueryRowContext(ctx, query, tokenHash))
}

// ListByUser returns a user's tokens matching the filter, newest first.
func (m *MySQLTokenRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	filter tokenDomain.ListFilter,
) ([]*tokenDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE user_id = ?`
	args := []any{userID}

	if filter.Type != nil {
		query += " AND token_type = ?"
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY issued_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}
	defer rows.Close() //nolint:errcheck

	var tokens []*tokenDomain.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}

	return tokens, nil
}

// UpdateStatus transitions a single active token to the given status.
func (m *MySQLTokenRepository) UpdateStatus(
	ctx context.Context,
	tokenID uuid.UUID,
	status tokenDomain.TokenStatus,
	extra tokenUseCase.StatusExtra,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	metadata, err := encodeMetadata(extra.Metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE auth_tokens
			  SET status = ?,
			      revoked_at = COALESCE(?, revoked_at),
			      metadata = JSON_MERGE_PATCH(metadata, ?)
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx, query, status, extra.RevokedAt, metadata, tokenID, tokenDomain.TokenStatusActive,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update token status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update token status")
	}
	return affected > 0, nil
}

// BulkUpdateStatus transitions every active token of a user matching the
// filter in one statement.
func (m *MySQLTokenRepository) BulkUpdateStatus(
	ctx context.Context,
	userID uuid.UUID,
	filter tokenDomain.ListFilter,
	status tokenDomain.TokenStatus,
	extra tokenUseCase.StatusExtra,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	metadata, err := encodeMetadata(extra.Metadata)
	if err != nil {
		return 0, err
	}

	query := `UPDATE auth_tokens
			  SET status = ?,
			      revoked_at = COALESCE(?, revoked_at),
			      metadata = JSON_MERGE_PATCH(metadata, ?)
			  WHERE user_id = ? AND status = ?`
	args := []any{status, extra.RevokedAt, metadata, userID, tokenDomain.TokenStatusActive}

	if filter.Type != nil {
		query += " AND token_type = ?"
		args = append(args, *filter.Type)
	}

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to bulk update token status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to bulk update token status")
	}
	return affected, nil
}

// UpdateLastUsed records the last successful validation time.
func (m *MySQLTokenRepository) UpdateLastUsed(
	ctx context.Context,
	tokenID uuid.UUID,
	usedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE auth_tokens SET last_used_at = ? WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, usedAt, tokenID); err != nil {
		return apperrors.Wrap(err, "failed to update last used time")
	}
	return nil
}

// MarkExpired transitions every stale active token to expired.
func (m *MySQLTokenRepository) MarkExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE auth_tokens SET status = ? WHERE status = ? AND expires_at < ?`

	result, err := querier.ExecContext(
		ctx, query, tokenDomain.TokenStatusExpired, tokenDomain.TokenStatusActive, now,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to mark tokens expired")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to mark tokens expired")
	}
	return affected, nil
}

// DeleteTerminalBefore hard-deletes expired and revoked tokens whose expiry
// is older than the cutoff.
func (m *MySQLTokenRepository) DeleteTerminalBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM auth_tokens WHERE status IN (?, ?) AND expires_at < ?`

	result, err := querier.ExecContext(
		ctx, query, tokenDomain.TokenStatusExpired, tokenDomain.TokenStatusRevoked, cutoff,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete terminal tokens")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete terminal tokens")
	}
	return affected, nil
}
