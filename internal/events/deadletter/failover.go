package deadletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"doiregistrar/internal/events/models"
	"doiregistrar/pkg/platform/circuit"
)

// Sink is anything that accepts a dead letter.
type Sink interface {
	Send(ctx context.Context, entry models.BatchEntry, reason string) error
}

// Failover sends to the primary sink while it is healthy and to the
// fallback when the primary fails or its circuit is open.
type Failover struct {
	primary  Sink
	fallback Sink
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type FailoverOption func(*Failover)

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *Failover) {
		f.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(f *Failover) {
		f.breaker = b
	}
}

func NewFailover(primary, fallback Sink, opts ...FailoverOption) *Failover {
	f := &Failover{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("dead-letter-primary"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Failover) Send(ctx context.Context, entry models.BatchEntry, reason string) error {
	if !f.breaker.Allow() {
		return f.sendFallback(ctx, entry, reason, nil)
	}
	err := f.primary.Send(ctx, entry, reason)
	if err == nil {
		if f.breaker.RecordSuccess() {
			f.logger.InfoContext(ctx, "dead-letter primary recovered", "breaker", f.breaker.Name())
		}
		return nil
	}
	if f.breaker.RecordFailure() {
		f.logger.WarnContext(ctx, "dead-letter primary circuit opened", "breaker", f.breaker.Name(), "error", err)
	}
	return f.sendFallback(ctx, entry, reason, err)
}

func (f *Failover) sendFallback(ctx context.Context, entry models.BatchEntry, reason string, primaryErr error) error {
	err := f.fallback.Send(ctx, entry, reason)
	if err == nil {
		return nil
	}
	if primaryErr != nil {
		return errors.Join(fmt.Errorf("primary: %w", primaryErr), fmt.Errorf("fallback: %w", err))
	}
	return fmt.Errorf("fallback: %w", err)
}
