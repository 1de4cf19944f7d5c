package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authtokens/internal/errors"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
)

// recordingMetrics captures business metric calls for assertions.
type recordingMetrics struct {
	mu         sync.Mutex
	operations []string
	statuses   []string
	durations  int
}

func (r *recordingMetrics) RecordOperation(_ context.Context, _, operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, operation)
	r.statuses = append(r.statuses, status)
}

func (r *recordingMetrics) RecordDuration(
	_ context.Context, _, _ string, _ time.Duration, _ string,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

// stubUseCase returns canned results so the decorator's pass-through and
// status labeling can be observed.
type stubUseCase struct {
	err error
}

func (s *stubUseCase) Create(
	_ context.Context, _ *tokenDomain.CreateTokenInput,
) (*tokenDomain.CreateTokenOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tokenDomain.CreateTokenOutput{PlainToken: "plain"}, nil
}

func (s *stubUseCase) Validate(_ context.Context, _ string) (*tokenDomain.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tokenDomain.Token{}, nil
}

func (s *stubUseCase) Rotate(
	_ context.Context, _ uuid.UUID, _ *tokenDomain.RotateTokenInput,
) (*tokenDomain.CreateTokenOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tokenDomain.CreateTokenOutput{PlainToken: "rotated"}, nil
}

func (s *stubUseCase) Revoke(_ context.Context, _ uuid.UUID, _ string) error {
	return s.err
}

func (s *stubUseCase) RevokeAllForUser(
	_ context.Context, _ uuid.UUID, _ *tokenDomain.TokenType, _ string,
) (int64, error) {
	return 1, s.err
}

func (s *stubUseCase) ListForUser(
	_ context.Context, _ uuid.UUID, _, _ int,
) ([]tokenDomain.Summary, error) {
	return nil, s.err
}

func (s *stubUseCase) CleanupExpired(_ context.Context) (int64, error) {
	return 0, s.err
}

func TestTokenUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("records every operation with a success status", func(t *testing.T) {
		recorder := &recordingMetrics{}
		decorated := NewTokenUseCaseWithMetrics(&stubUseCase{}, recorder)

		output, err := decorated.Create(ctx, &tokenDomain.CreateTokenInput{})
		require.NoError(t, err)
		assert.Equal(t, "plain", output.PlainToken)

		_, err = decorated.Validate(ctx, "plain")
		require.NoError(t, err)

		_, err = decorated.Rotate(ctx, uuid.Must(uuid.NewV7()), nil)
		require.NoError(t, err)

		require.NoError(t, decorated.Revoke(ctx, uuid.Must(uuid.NewV7()), ""))

		_, err = decorated.RevokeAllForUser(ctx, uuid.Must(uuid.NewV7()), nil, "")
		require.NoError(t, err)

		_, err = decorated.ListForUser(ctx, uuid.Must(uuid.NewV7()), 0, 0)
		require.NoError(t, err)

		_, err = decorated.CleanupExpired(ctx)
		require.NoError(t, err)

		assert.Equal(t,
			[]string{
				"create", "validate", "rotate", "revoke",
				"revoke_all_for_user", "list_for_user", "cleanup_expired",
			},
			recorder.operations,
		)
		for _, status := range recorder.statuses {
			assert.Equal(t, "success", status)
		}
		assert.Equal(t, len(recorder.operations), recorder.durations)
	})

	t.Run("labels failures with an error status", func(t *testing.T) {
		recorder := &recordingMetrics{}
		decorated := NewTokenUseCaseWithMetrics(
			&stubUseCase{err: apperrors.ErrInvalidInput}, recorder,
		)

		_, err := decorated.Create(ctx, &tokenDomain.CreateTokenInput{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		require.Len(t, recorder.statuses, 1)
		assert.Equal(t, "error", recorder.statuses[0])
	})
}
