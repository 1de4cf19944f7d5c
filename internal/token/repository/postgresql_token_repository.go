// Package repository provides data persistence implementations for tokens.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/authtokens/internal/database"
	apperrors "github.com/allisson/authtokens/internal/errors"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenUseCase "github.com/allisson/authtokens/internal/token/usecase"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// tokenColumns is the column list shared by all token queries.
const tokenColumns = `id, token_hash, token_type, status, user_id, issued_at, expires_at,
	last_used_at, scopes, client_ip_hash, user_agent_hash, parent_token_id,
	rotation_count, revoked_at, metadata, correlation_id`

// PostgreSQLTokenRepository implements token persistence for PostgreSQL.
// Uses native UUID/JSONB types with transaction support via database.GetTx().
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}

// Create inserts a new token. A unique violation on token_hash surfaces as an
// error wrapping ErrConflict so the caller can regenerate and retry.
func (p *PostgreSQLTokenRepository) Create(ctx context.Context, token *tokenDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	scopes, metadata, err := encodeJSONFields(token)
	if err != nil {
		return err
	}

	query := `INSERT INTO auth_tokens (` + tokenColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

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
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return apperrors.Wrap(apperrors.ErrConflict, "token hash already exists")
		}
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a token by ID. Returns ErrTokenNotFound if the token doesn't exist.
func (p *PostgreSQLTokenRepository) Get(
	ctx context.Context,
	tokenID uuid.UUID,
) (*tokenDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE id = $1`

	return scanToken(querier.QueryRowContext(ctx, query, tokenID))
}

// GetByTokenHash retrieves a token by its hash. This is the validation hot
// path: a single indexed lookup, no locking.
func (p *PostgreSQLTokenRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*tokenDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE token_hash = $1`

	return scanToken(querier.QueryRowContext(ctx, query, tokenHash))
}

// ListByUser returns a user's tokens matching the filter, newest first.
func (p *PostgreSQLTokenRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	filter tokenDomain.ListFilter,
) ([]*tokenDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE user_id = $1`
	args := []any{userID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND token_type = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY issued_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
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
// The WHERE clause guards the active state so status only ever moves forward.
func (p *PostgreSQLTokenRepository) UpdateStatus(
	ctx context.Context,
	tokenID uuid.UUID,
	status tokenDomain.TokenStatus,
	extra tokenUseCase.StatusExtra,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	metadata, err := encodeMetadata(extra.Metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE auth_tokens
			  SET status = $1,
			      revoked_at = COALESCE($2, revoked_at),
			      metadata = metadata || $3::jsonb
			  WHERE id = $4 AND status = $5`

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
func (p *PostgreSQLTokenRepository) BulkUpdateStatus(
	ctx context.Context,
	userID uuid.UUID,
	filter tokenDomain.ListFilter,
	status tokenDomain.TokenStatus,
	extra tokenUseCase.StatusExtra,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	metadata, err := encodeMetadata(extra.Metadata)
	if err != nil {
		return 0, err
	}

	query := `UPDATE auth_tokens
			  SET status = $1,
			      revoked_at = COALESCE($2, revoked_at),
			      metadata = metadata || $3::jsonb
			  WHERE user_id = $4 AND status = $5`
	args := []any{status, extra.RevokedAt, metadata, userID, tokenDomain.TokenStatusActive}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND token_type = $%d", len(args))
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
func (p *PostgreSQLTokenRepository) UpdateLastUsed(
	ctx context.Context,
	tokenID uuid.UUID,
	usedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE auth_tokens SET last_used_at = $1 WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, usedAt, tokenID); err != nil {
		return apperrors.Wrap(err, "failed to update last used time")
	}
	return nil
}

// MarkExpired transitions every stale active token to expired.
func (p *PostgreSQLTokenRepository) MarkExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE auth_tokens SET status = $1 WHERE status = $2 AND expires_at < $3`

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
// is older than the cutoff. Rotation children keep their rows; their
// parent_token_id is nulled by the foreign key's ON DELETE SET NULL.
func (p *PostgreSQLTokenRepository) DeleteTerminalBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM auth_tokens WHERE status IN ($1, $2) AND expires_at < $3`

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

// rowScanner abstracts *sql.Row and *sql.Rows for scanToken.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanToken scans one token row, decoding the JSON scope and metadata columns.
func scanToken(row rowScanner) (*tokenDomain.Token, error) {
	var token tokenDomain.Token
	var scopes, metadata []byte

	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.Type,
		&token.Status,
		&token.UserID,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.LastUsedAt,
		&scopes,
		&token.ClientIPHash,
		&token.UserAgentHash,
		&token.ParentTokenID,
		&token.RotationCount,
		&token.RevokedAt,
		&metadata,
		&token.CorrelationID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan token")
	}

	if err := json.Unmarshal(scopes, &token.Scopes); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode token scopes")
	}
	if err := json.Unmarshal(metadata, &token.Metadata); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode token metadata")
	}

	return &token, nil
}

// encodeJSONFields marshals the scopes and metadata columns for insertion.
func encodeJSONFields(token *tokenDomain.Token) (scopes, metadata []byte, err error) {
	scopeValues := token.Scopes
	if scopeValues == nil {
		scopeValues = []string{}
	}
	scopes, err = json.Marshal(scopeValues)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode token scopes")
	}

	metadata, err = encodeMetadata(token.Metadata)
	if err != nil {
		return nil, nil, err
	}
	return scopes, metadata, nil
}

// encodeMetadata marshals a metadata map, defaulting to an empty object.
func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode token metadata")
	}
	return encoded, nil
}
