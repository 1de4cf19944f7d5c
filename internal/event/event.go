// Package event defines lifecycle event emission for token operations.
// The emitter is an injected collaborator: the token use case records what
// happened, an external audit consumer decides how events are stored and
// redacted. Emission is always best-effort and never fails the operation
// that produced the event.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies a token lifecycle event.
type Type string

const (
	TypeTokenIssued    Type = "token_issued"
	TypeTokenValidated Type = "token_validated"
	TypeTokenRotated   Type = "token_rotated"
	TypeTokenRevoked   Type = "token_revoked"
)

// Outcome records whether the operation behind the event succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// LifecycleEvent carries the non-secret facts of a token lifecycle operation.
// It never contains the plaintext secret or the token hash.
type LifecycleEvent struct {
	Type          Type       `json:"type"`
	TokenID       *uuid.UUID `json:"token_id,omitempty"`
	TokenType     string     `json:"token_type,omitempty"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Outcome       Outcome    `json:"outcome"`
	Reason        string     `json:"reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Emitter receives lifecycle events.
// Implementations must not block the calling operation for long and must
// tolerate concurrent calls.
type Emitter interface {
	Emit(ctx context.Context, event LifecycleEvent) error
}

// LogEmitter writes lifecycle events to a structured logger.
// Default emitter when no audit pipeline is configured.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an Emitter backed by the given logger.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event at info level with structured attributes.
func (e *LogEmitter) Emit(_ context.Context, ev LifecycleEvent) error {
	attrs := []any{
		slog.String("event_type", string(ev.Type)),
		slog.String("outcome", string(ev.Outcome)),
		slog.Time("occurred_at", ev.OccurredAt),
	}
	if ev.TokenID != nil {
		attrs = append(attrs, slog.String("token_id", ev.TokenID.String()))
	}
	if ev.TokenType != "" {
		attrs = append(attrs, slog.String("token_type", ev.TokenType))
	}
	if ev.UserID != nil {
		attrs = append(attrs, slog.String("user_id", ev.UserID.String()))
	}
	if ev.CorrelationID != "" {
		attrs = append(attrs, slog.String("correlation_id", ev.CorrelationID))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}

	e.logger.Info("token lifecycle event", attrs...)
	return nil
}

// Recorder is an Emitter that captures events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends the event to the in-memory record.
func (r *Recorder) Emit(_ context.Context, ev LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []LifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LifecycleEvent(nil), r.events...)
}
