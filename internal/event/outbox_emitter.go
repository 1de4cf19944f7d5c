package event

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	apperrors "github.com/allisson/authtokens/internal/errors"
	outboxDomain "github.com/allisson/authtokens/internal/outbox/domain"
)

// OutboxEventRepository is the subset of the outbox repository the emitter needs.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// OutboxEmitter persists lifecycle events through the transactional outbox.
// When emission happens inside a database transaction the event commits or
// rolls back together with the token mutation that produced it; the outbox
// worker later delivers it to the external audit consumer.
type OutboxEmitter struct {
	outboxRepo OutboxEventRepository
}

// NewOutboxEmitter creates an Emitter backed by the outbox repository.
func NewOutboxEmitter(outboxRepo OutboxEventRepository) *OutboxEmitter {
	return &OutboxEmitter{outboxRepo: outboxRepo}
}

// Emit serializes the lifecycle event and stores it as a pending outbox event.
func (e *OutboxEmitter) Emit(ctx context.Context, ev LifecycleEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal lifecycle event")
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: string(ev.Type),
		Payload:   string(payload),
		Status:    outboxDomain.OutboxEventStatusPending,
	}

	if err := e.outboxRepo.Create(ctx, outboxEvent); err != nil {
		return apperrors.Wrap(err, "failed to persist lifecycle event")
	}

	return nil
}
