// Package usecase implements business logic orchestration for token lifecycle operations.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authtokens/internal/config"
	appErrors "github.com/allisson/authtokens/internal/errors"
	"github.com/allisson/authtokens/internal/event"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenService "github.com/allisson/authtokens/internal/token/service"
)

// hashRetryBudget bounds regeneration attempts after a token hash collision.
// A collision on a 256-bit keyed hash is astronomically rare; hitting the
// budget indicates a broken RNG or store corruption.
const hashRetryBudget = 3

// lastUsedTimeout bounds the detached best-effort last-used write.
const lastUsedTimeout = 5 * time.Second

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	config        *config.Config
	tokenRepo     TokenRepository
	secretService tokenService.SecretService
	emitter       event.Emitter
	logger        *slog.Logger
	now           Clock
}

// Create issues a new token.
//
// This method:
// 1. Validates the input against the policy for the token type
// 2. Resolves the TTL (caller override, config override, policy default)
// 3. Generates the plaintext secret and its keyed hash
// 4. Persists the record with status active, retrying on hash collision
// 5. Returns the plaintext to the caller (only shown once)
//
// Security Notes:
//   - The plaintext is never stored, logged, or placed in metadata
//   - Client IP and user agent are persisted only as keyed fingerprint hashes
//   - Lifecycle event emission is best-effort and never fails the creation
func (t *tokenUseCase) Create(
	ctx context.Context,
	input *tokenDomain.CreateTokenInput,
) (*tokenDomain.CreateTokenOutput, error) {
	policy, err := tokenDomain.PolicyFor(input.Type)
	if err != nil {
		return nil, err
	}

	if policy.RequiresUser && input.UserID == nil {
		return nil, appErrors.Wrap(
			appErrors.ErrInvalidInput,
			"token type "+string(input.Type)+" requires a user id",
		)
	}

	// System tokens never inherit the policy defaults: the "api" scope grants
	// the whole management surface, so a credential without a user must name
	// its scopes explicitly.
	if input.UserID == nil && input.Scopes == nil {
		return nil, appErrors.Wrap(
			appErrors.ErrInvalidInput,
			"system tokens must declare scopes explicitly",
		)
	}

	ttl, err := t.resolveTTL(input.Type, policy, input.Lifetime)
	if err != nil {
		return nil, err
	}

	scopes, err := resolveScopes(input.Scopes, policy.DefaultScopes)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	token := &tokenDomain.Token{
		Type:          input.Type,
		Status:        tokenDomain.TokenStatusActive,
		UserID:        input.UserID,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
		Scopes:        scopes,
		RotationCount: 0,
		Metadata:      copyMetadata(input.Metadata),
		CorrelationID: input.CorrelationID,
	}
	if input.ClientIP != "" {
		hash := t.secretService.HashFingerprint(input.ClientIP)
		token.ClientIPHash = &hash
	}
	if input.UserAgent != "" {
		hash := t.secretService.HashFingerprint(input.UserAgent)
		token.UserAgentHash = &hash
	}

	plainToken, err := t.persistWithRetry(ctx, token)
	if err != nil {
		return nil, err
	}

	t.emit(ctx, event.LifecycleEvent{
		Type:          event.TypeTokenIssued,
		TokenID:       &token.ID,
		TokenType:     string(token.Type),
		UserID:        token.UserID,
		CorrelationID: token.CorrelationID,
		Outcome:       event.OutcomeSuccess,
		OccurredAt:    now,
	})

	return &tokenDomain.CreateTokenOutput{
		PlainToken: plainToken,
		Token:      token,
	}, nil
}

// Validate authenticates a plaintext token.
//
// This method:
// 1. Re-hashes the plaintext and looks the hash up in the store
// 2. Rejects revoked tokens permanently, irrespective of expiry
// 3. Lazily transitions stale active tokens to expired
// 4. Records the last-used time in a detached goroutine on success
//
// Security Notes:
//   - Not-found, expired, and revoked all return ErrInvalidToken so the
//     caller cannot distinguish them; the lifecycle event carries the true
//     reason for the audit trail
//   - The read path takes no exclusive locks and is safe at high volume
func (t *tokenUseCase) Validate(
	ctx context.Context,
	plainToken string,
) (*tokenDomain.Token, error) {
	tokenHash := t.secretService.HashSecret(plainToken)

	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, tokenDomain.ErrTokenNotFound) {
			t.emitValidation(ctx, nil, "not_found")
			return nil, tokenDomain.ErrInvalidToken
		}
		return nil, err
	}

	now := t.now().UTC()

	if token.Status == tokenDomain.TokenStatusRevoked {
		t.emitValidation(ctx, token, "revoked")
		return nil, tokenDomain.ErrInvalidToken
	}

	if token.Status == tokenDomain.TokenStatusExpired || !now.Before(token.ExpiresAt) {
		// Lazy expiry: the cleanup task may not have caught this one yet.
		if token.Status == tokenDomain.TokenStatusActive {
			if _, err := t.tokenRepo.UpdateStatus(
				ctx, token.ID, tokenDomain.TokenStatusExpired, StatusExtra{},
			); err != nil {
				t.logger.Warn("failed to mark token expired",
					slog.String("token_id", token.ID.String()),
					slog.Any("error", err),
				)
			}
		}
		t.emitValidation(ctx, token, "expired")
		return nil, tokenDomain.ErrInvalidToken
	}

	t.recordLastUsed(ctx, token.ID, now)

	t.emit(ctx, event.LifecycleEvent{
		Type:          event.TypeTokenValidated,
		TokenID:       &token.ID,
		TokenType:     string(token.Type),
		UserID:        token.UserID,
		CorrelationID: token.CorrelationID,
		Outcome:       event.OutcomeSuccess,
		OccurredAt:    now,
	})

	return token, nil
}

// Rotate issues a replacement token chained to the current one.
//
// The new token keeps the parent's type, user, and scopes (unless overridden)
// and records the lineage via ParentTokenID and RotationCount. The parent is
// left untouched and stays valid until its own expiry or an explicit Revoke:
// grace-period-overlap rotation, so in-flight requests carrying the old
// credential keep working during the handover.
func (t *tokenUseCase) Rotate(
	ctx context.Context,
	tokenID uuid.UUID,
	input *tokenDomain.RotateTokenInput,
) (*tokenDomain.CreateTokenOutput, error) {
	if input == nil {
		input = &tokenDomain.RotateTokenInput{}
	}

	parent, err := t.tokenRepo.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	if !parent.IsActive(now) {
		return nil, tokenDomain.ErrTokenNotActive
	}

	policy, err := tokenDomain.PolicyFor(parent.Type)
	if err != nil {
		return nil, err
	}

	ttl, err := t.resolveTTL(parent.Type, policy, input.Lifetime)
	if err != nil {
		return nil, err
	}

	scopes := append([]string(nil), parent.Scopes...)
	if input.Scopes != nil {
		scopes, err = resolveScopes(input.Scopes, nil)
		if err != nil {
			return nil, err
		}
	}

	correlationID := input.CorrelationID
	if correlationID == "" {
		correlationID = parent.CorrelationID
	}

	child := &tokenDomain.Token{
		Type:          parent.Type,
		Status:        tokenDomain.TokenStatusActive,
		UserID:        parent.UserID,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
		Scopes:        scopes,
		ParentTokenID: &parent.ID,
		RotationCount: parent.RotationCount + 1,
		CorrelationID: correlationID,
	}
	if input.ClientIP != "" {
		hash := t.secretService.HashFingerprint(input.ClientIP)
		child.ClientIPHash = &hash
	}
	if input.UserAgent != "" {
		hash := t.secretService.HashFingerprint(input.UserAgent)
		child.UserAgentHash = &hash
	}

	// Chain invariant: the parent must predate the child. A clock running
	// backwards would let a cycle slip into the lineage.
	if !parent.IssuedAt.Before(child.IssuedAt) {
		return nil, appErrors.Wrap(
			appErrors.ErrConflict,
			"parent token issued_at is not before rotation time",
		)
	}

	plainToken, err := t.persistWithRetry(ctx, child)
	if err != nil {
		return nil, err
	}

	t.emit(ctx, event.LifecycleEvent{
		Type:          event.TypeTokenRotated,
		TokenID:       &child.ID,
		TokenType:     string(child.Type),
		UserID:        child.UserID,
		CorrelationID: child.CorrelationID,
		Outcome:       event.OutcomeSuccess,
		OccurredAt:    now,
	})

	return &tokenDomain.CreateTokenOutput{
		PlainToken: plainToken,
		Token:      child,
	}, nil
}

// Revoke permanently invalidates a token.
// Idempotent: revoking a token that is already revoked or expired reports
// success without touching the record.
func (t *tokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID, reason string) error {
	token, err := t.tokenRepo.Get(ctx, tokenID)
	if err != nil {
		return err
	}

	if token.Status != tokenDomain.TokenStatusActive {
		return nil
	}

	now := t.now().UTC()
	extra := StatusExtra{RevokedAt: &now}
	if reason != "" {
		extra.Metadata = map[string]string{tokenDomain.MetadataRevocationReason: reason}
	}

	if _, err := t.tokenRepo.UpdateStatus(
		ctx, tokenID, tokenDomain.TokenStatusRevoked, extra,
	); err != nil {
		return err
	}

	t.emit(ctx, event.LifecycleEvent{
		Type:          event.TypeTokenRevoked,
		TokenID:       &token.ID,
		TokenType:     string(token.Type),
		UserID:        token.UserID,
		CorrelationID: token.CorrelationID,
		Outcome:       event.OutcomeSuccess,
		Reason:        reason,
		OccurredAt:    now,
	})

	return nil
}

// RevokeAllForUser revokes every active token of a user in one statement.
func (t *tokenUseCase) RevokeAllForUser(
	ctx context.Context,
	userID uuid.UUID,
	tokenType *tokenDomain.TokenType,
	reason string,
) (int64, error) {
	if tokenType != nil && !tokenType.IsValid() {
		return 0, appErrors.Wrap(
			appErrors.ErrInvalidInput,
			"unknown token type: "+string(*tokenType),
		)
	}

	now := t.now().UTC()
	extra := StatusExtra{RevokedAt: &now}
	if reason != "" {
		extra.Metadata = map[string]string{tokenDomain.MetadataRevocationReason: reason}
	}

	count, err := t.tokenRepo.BulkUpdateStatus(
		ctx,
		userID,
		tokenDomain.ListFilter{Type: tokenType},
		tokenDomain.TokenStatusRevoked,
		extra,
	)
	if err != nil {
		return 0, err
	}

	eventTokenType := ""
	if tokenType != nil {
		eventTokenType = string(*tokenType)
	}
	t.emit(ctx, event.LifecycleEvent{
		Type:       event.TypeTokenRevoked,
		TokenType:  eventTokenType,
		UserID:     &userID,
		Outcome:    event.OutcomeSuccess,
		Reason:     reason,
		OccurredAt: now,
	})

	return count, nil
}

// ListForUser returns non-secret summaries of a user's tokens.
func (t *tokenUseCase) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]tokenDomain.Summary, error) {
	tokens, err := t.tokenRepo.ListByUser(ctx, userID, tokenDomain.ListFilter{
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]tokenDomain.Summary, 0, len(tokens))
	for _, token := range tokens {
		summaries = append(summaries, token.Summarize())
	}
	return summaries, nil
}

// CleanupExpired transitions stale active tokens to expired and purges
// terminal records past the retention window. Status only ever moves
// forward, so running concurrently with validation traffic is safe.
func (t *tokenUseCase) CleanupExpired(ctx context.Context) (int64, error) {
	now := t.now().UTC()

	count, err := t.tokenRepo.MarkExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	if t.config.TokenRetention > 0 {
		cutoff := now.Add(-t.config.TokenRetention)
		purged, err := t.tokenRepo.DeleteTerminalBefore(ctx, cutoff)
		if err != nil {
			return count, err
		}
		if purged > 0 {
			t.logger.Info("purged terminal tokens",
				slog.Int64("count", purged),
				slog.Time("cutoff", cutoff),
			)
		}
	}

	return count, nil
}

// persistWithRetry generates a secret and inserts the token, regenerating on
// hash collision up to the retry budget. Assigns the token ID and hash.
func (t *tokenUseCase) persistWithRetry(
	ctx context.Context,
	token *tokenDomain.Token,
) (string, error) {
	for attempt := 0; attempt < hashRetryBudget; attempt++ {
		plainToken, tokenHash, err := t.secretService.GenerateSecret()
		if err != nil {
			return "", err
		}

		token.ID = uuid.Must(uuid.NewV7())
		token.TokenHash = tokenHash

		err = t.tokenRepo.Create(ctx, token)
		if err == nil {
			return plainToken, nil
		}
		if !errors.Is(err, appErrors.ErrConflict) {
			return "", err
		}

		t.logger.Warn("token hash collision, regenerating",
			slog.Int("attempt", attempt+1),
		)
	}

	return "", tokenDomain.ErrHashCollision
}

// resolveTTL picks the effective lifetime: caller override first, then the
// per-type config override, then the policy default. The result is always
// bounded by the configured absolute maximum.
func (t *tokenUseCase) resolveTTL(
	tokenType tokenDomain.TokenType,
	policy tokenDomain.Policy,
	override *time.Duration,
) (time.Duration, error) {
	maxLifetime := t.config.TokenMaxLifetime

	if override != nil {
		if *override <= 0 || *override > maxLifetime {
			return 0, appErrors.Wrap(
				appErrors.ErrInvalidInput,
				"lifetime must be positive and within the absolute maximum",
			)
		}
		return *override, nil
	}

	ttl := policy.DefaultTTL
	if configured := t.config.TokenTTLOverride(string(tokenType)); configured > 0 {
		ttl = configured
	}
	if ttl > maxLifetime {
		ttl = maxLifetime
	}
	return ttl, nil
}

// recordLastUsed fires a detached best-effort write of the last-used time.
// Must never block or fail the validation result.
func (t *tokenUseCase) recordLastUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) {
	detached := context.WithoutCancel(ctx)
	go func() {
		writeCtx, cancel := context.WithTimeout(detached, lastUsedTimeout)
		defer cancel()

		if err := t.tokenRepo.UpdateLastUsed(writeCtx, tokenID, usedAt); err != nil {
			t.logger.Warn("failed to record last used time",
				slog.String("token_id", tokenID.String()),
				slog.Any("error", err),
			)
		}
	}()
}

// emit delivers a lifecycle event best-effort.
func (t *tokenUseCase) emit(ctx context.Context, ev event.LifecycleEvent) {
	if t.emitter == nil {
		return
	}
	if err := t.emitter.Emit(ctx, ev); err != nil {
		t.logger.Warn("failed to emit lifecycle event",
			slog.String("event_type", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}

// emitValidation emits a failed validation event carrying the internal reason.
func (t *tokenUseCase) emitValidation(
	ctx context.Context,
	token *tokenDomain.Token,
	reason string,
) {
	ev := event.LifecycleEvent{
		Type:       event.TypeTokenValidated,
		Outcome:    event.OutcomeFailure,
		Reason:     reason,
		OccurredAt: t.now().UTC(),
	}
	if token != nil {
		ev.TokenID = &token.ID
		ev.TokenType = string(token.Type)
		ev.UserID = token.UserID
		ev.CorrelationID = token.CorrelationID
	}
	t.emit(ctx, ev)
}

// resolveScopes validates caller scopes or falls back to defaults when the
// caller supplied none. A non-nil empty slice is a valid "no capabilities"
// input, distinct from absence.
func resolveScopes(scopes []string, defaults []string) ([]string, error) {
	if scopes == nil {
		return append([]string(nil), defaults...), nil
	}

	seen := make(map[string]struct{}, len(scopes))
	resolved := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if strings.TrimSpace(scope) == "" {
			return nil, appErrors.Wrap(appErrors.ErrInvalidInput, "scope values must not be blank")
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		resolved = append(resolved, scope)
	}
	return resolved, nil
}

// copyMetadata returns a defensive copy of the caller's metadata map.
func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	copied := make(map[string]string, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}
	return copied
}

// NewTokenUseCase creates a new TokenUseCase with the provided dependencies.
// The clock is injected so tests can pin time; pass time.Now in production.
func NewTokenUseCase(
	cfg *config.Config,
	tokenRepo TokenRepository,
	secretService tokenService.SecretService,
	emitter event.Emitter,
	logger *slog.Logger,
	clock Clock,
) TokenUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &tokenUseCase{
		config:        cfg,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		emitter:       emitter,
		logger:        logger,
		now:           clock,
	}
}
