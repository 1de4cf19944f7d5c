// Package usecase defines business logic interfaces for token lifecycle operations.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
)

// Clock supplies the current time. Injected so tests can pin time and so the
// use case never reads ambient global state.
type Clock func() time.Time

// StatusExtra carries the optional fields written together with a status
// transition.
type StatusExtra struct {
	// RevokedAt is set when transitioning to revoked.
	RevokedAt *time.Time

	// Metadata entries are merged into the token's metadata map.
	Metadata map[string]string
}

// TokenRepository defines persistence operations for tokens.
// Implementations must support transaction-aware operations via context
// propagation and must enforce a unique constraint on the token hash,
// surfacing violations as ErrConflict.
type TokenRepository interface {
	// Create stores a new token. Returns an error wrapping ErrConflict when
	// the token hash already exists.
	Create(ctx context.Context, token *tokenDomain.Token) error

	// Get retrieves a token by ID. Returns ErrTokenNotFound if not found.
	Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error)

	// GetByTokenHash retrieves a token by its hash.
	// Returns ErrTokenNotFound if not found.
	GetByTokenHash(ctx context.Context, tokenHash string) (*tokenDomain.Token, error)

	// ListByUser returns all tokens for a user matching the filter, newest
	// first.
	ListByUser(
		ctx context.Context,
		userID uuid.UUID,
		filter tokenDomain.ListFilter,
	) ([]*tokenDomain.Token, error)

	// UpdateStatus transitions a single token from active to the given
	// status. Returns true when a row changed, false when the token was not
	// found or already in a terminal state. Status moves forward only.
	UpdateStatus(
		ctx context.Context,
		tokenID uuid.UUID,
		status tokenDomain.TokenStatus,
		extra StatusExtra,
	) (bool, error)

	// BulkUpdateStatus transitions every active token of a user matching the
	// filter to the given status in one statement. Returns the number of
	// tokens affected.
	BulkUpdateStatus(
		ctx context.Context,
		userID uuid.UUID,
		filter tokenDomain.ListFilter,
		status tokenDomain.TokenStatus,
		extra StatusExtra,
	) (int64, error)

	// UpdateLastUsed records the last successful validation time.
	UpdateLastUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error

	// MarkExpired transitions every active token whose expiry has passed to
	// expired. Returns the number of tokens affected.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteTerminalBefore hard-deletes expired and revoked tokens whose
	// expiry is older than the cutoff. Returns the number of tokens deleted.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenUseCase defines the token lifecycle operations.
//
// All operations accept a context for cancellation and rely on the
// persistence layer's transactional guarantees to avoid partial writes on
// abort. Validate is the hot path and must be safe for high-volume
// concurrent use.
type TokenUseCase interface {
	// Create issues a new token of the given type. The returned plaintext is
	// produced exactly once and never retained by the service.
	//
	// Validation failures (unknown type, missing required user, lifetime out
	// of bounds, blank scope values) return ErrInvalidInput. A token hash
	// collision is retried a bounded number of times before returning
	// ErrHashCollision.
	Create(
		ctx context.Context,
		input *tokenDomain.CreateTokenInput,
	) (*tokenDomain.CreateTokenOutput, error)

	// Validate authenticates a plaintext token and returns its record.
	//
	// Not-found, expired, and revoked tokens all return ErrInvalidToken with
	// no distinguishing detail; the emitted lifecycle event records the true
	// reason for the audit trail. A found-but-stale active token is
	// opportunistically transitioned to expired. On success the last-used
	// time is recorded best-effort without blocking the result.
	Validate(ctx context.Context, plainToken string) (*tokenDomain.Token, error)

	// Rotate issues a replacement token chained to the current one via
	// ParentTokenID with RotationCount incremented. The parent must be
	// active and unexpired, otherwise ErrTokenNotActive is returned.
	//
	// The parent is not revoked: it stays valid until its own expiry or an
	// explicit Revoke call (grace-period-overlap rotation, so requests
	// in flight with the old credential keep working during the handover).
	Rotate(
		ctx context.Context,
		tokenID uuid.UUID,
		input *tokenDomain.RotateTokenInput,
	) (*tokenDomain.CreateTokenOutput, error)

	// Revoke permanently invalidates a token. Idempotent: revoking an
	// already-revoked or expired token is a no-op success.
	Revoke(ctx context.Context, tokenID uuid.UUID, reason string) error

	// RevokeAllForUser revokes every active token of a user, optionally
	// narrowed by type. Returns the number of tokens revoked. Used for
	// "logout everywhere" and compromise response.
	RevokeAllForUser(
		ctx context.Context,
		userID uuid.UUID,
		tokenType *tokenDomain.TokenType,
		reason string,
	) (int64, error)

	// ListForUser returns non-secret summaries of a user's tokens for
	// self-service session management, newest first. Limit of zero returns
	// all tokens.
	ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]tokenDomain.Summary, error)

	// CleanupExpired transitions stale active tokens to expired and purges
	// terminal records older than the configured retention window. Returns
	// the number of tokens transitioned. Safe to run concurrently with live
	// validation traffic.
	CleanupExpired(ctx context.Context) (int64, error)
}
