package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authtokens/internal/metrics"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
)

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics instrumentation.
type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record emits the operation counter and duration histogram for one call.
func (t *tokenUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "token", operation, status)
	t.metrics.RecordDuration(ctx, "token", operation, time.Since(start), status)
}

// Create records metrics for token creation operations.
func (t *tokenUseCaseWithMetrics) Create(
	ctx context.Context,
	input *tokenDomain.CreateTokenInput,
) (*tokenDomain.CreateTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Create(ctx, input)
	t.record(ctx, "create", start, err)
	return output, err
}

// Validate records metrics for token validation operations.
func (t *tokenUseCaseWithMetrics) Validate(
	ctx context.Context,
	plainToken string,
) (*tokenDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Validate(ctx, plainToken)
	t.record(ctx, "validate", start, err)
	return token, err
}

// Rotate records metrics for token rotation operations.
func (t *tokenUseCaseWithMetrics) Rotate(
	ctx context.Context,
	tokenID uuid.UUID,
	input *tokenDomain.RotateTokenInput,
) (*tokenDomain.CreateTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Rotate(ctx, tokenID, input)
	t.record(ctx, "rotate", start, err)
	return output, err
}

// Revoke records metrics for token revocation operations.
func (t *tokenUseCaseWithMetrics) Revoke(
	ctx context.Context,
	tokenID uuid.UUID,
	reason string,
) error {
	start := time.Now()
	err := t.next.Revoke(ctx, tokenID, reason)
	t.record(ctx, "revoke", start, err)
	return err
}

// RevokeAllForUser records metrics for bulk revocation operations.
func (t *tokenUseCaseWithMetrics) RevokeAllForUser(
	ctx context.Context,
	userID uuid.UUID,
	tokenType *tokenDomain.TokenType,
	reason string,
) (int64, error) {
	start := time.Now()
	count, err := t.next.RevokeAllForUser(ctx, userID, tokenType, reason)
	t.record(ctx, "revoke_all_for_user", start, err)
	return count, err
}

// ListForUser records metrics for token listing operations.
func (t *tokenUseCaseWithMetrics) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]tokenDomain.Summary, error) {
	start := time.Now()
	summaries, err := t.next.ListForUser(ctx, userID, offset, limit)
	t.record(ctx, "list_for_user", start, err)
	return summaries, err
}

// CleanupExpired records metrics for cleanup operations.
func (t *tokenUseCaseWithMetrics) CleanupExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := t.next.CleanupExpired(ctx)
	t.record(ctx, "cleanup_expired", start, err)
	return count, err
}
