// Package publisher delivers batches of events at least once.
//
// Publish submits every entry, resubmits only the entries the bus rejected,
// and after the attempt budget is spent forwards each remaining entry to a
// dead-letter sink. It never returns an error: by the time it runs the
// inbound change record has been durably read, so failures surface through
// logs, metrics and the dead-letter channel instead.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"doiregistrar/internal/events/metrics"
	"doiregistrar/internal/events/models"
)

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks EventBus,DeadLetterSink

const (
	DefaultMaxAttempts       = 3
	DefaultBatchSize         = 10
	DefaultDeadLetterTimeout = 10 * time.Second
	DefaultMaxBackoff        = 30 * time.Second

	codeBusUnavailable = "BusUnavailable"
	codeCancelled      = "Cancelled"
)

// EventBus accepts a batch and reports one result per entry, in input order.
// A non-nil error means the whole call failed.
type EventBus interface {
	PutEntries(ctx context.Context, entries []models.BatchEntry) ([]models.PutResult, error)
}

// DeadLetterSink receives entries one at a time after retries are exhausted.
type DeadLetterSink interface {
	Send(ctx context.Context, entry models.BatchEntry, reason string) error
}

// Config bounds the retry behaviour.
type Config struct {
	// MaxAttempts is the total number of submissions per entry, the first included.
	MaxAttempts int
	// BatchSize caps entries per bus call.
	BatchSize int
	// Backoff is the pause before the first resubmission; it doubles each round. Zero disables it.
	Backoff time.Duration
	// MaxBackoff caps the doubled pause.
	MaxBackoff time.Duration
	// DeadLetterTimeout bounds dead-letter forwarding, which runs detached from the caller's deadline.
	DeadLetterTimeout time.Duration
}

// Publisher is the retrying batch publisher.
type Publisher struct {
	bus        EventBus
	deadLetter DeadLetterSink
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New constructs a Publisher. Zero config values fall back to the defaults;
// MaxAttempts below one is treated as one.
func New(bus EventBus, deadLetter DeadLetterSink, cfg Config, opts ...Option) *Publisher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DeadLetterTimeout <= 0 {
		cfg.DeadLetterTimeout = DefaultDeadLetterTimeout
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	p := &Publisher{
		bus:        bus,
		deadLetter: deadLetter,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// publishFailure is an entry the bus has not accepted yet, with the last reason it gave.
type publishFailure struct {
	entry   *models.BatchEntry
	code    string
	message string
}

func (f publishFailure) reason() string {
	if f.message == "" {
		return f.code
	}
	return fmt.Sprintf("%s: %s", f.code, f.message)
}

// Publish delivers entries. Entry order is not preserved across rounds; an
// entry is never resubmitted once the bus accepted it.
func (p *Publisher) Publish(ctx context.Context, entries []models.BatchEntry) {
	if len(entries) == 0 {
		return
	}

	// Work on a copy so attempt counts never leak into the caller's slice.
	batch := make([]models.BatchEntry, len(entries))
	copy(batch, entries)
	pending := make([]publishFailure, len(batch))
	for i := range batch {
		pending[i] = publishFailure{entry: &batch[i]}
	}

	attempt := 1
	for {
		if attempt > 1 && p.metrics != nil {
			p.metrics.AddResubmitted(len(pending))
		}
		pending = p.submit(ctx, pending)
		if len(pending) == 0 || attempt >= p.cfg.MaxAttempts {
			break
		}
		p.logger.WarnContext(ctx, "event batch partially failed; resubmitting failed entries",
			"attempt", attempt,
			"failed", len(pending),
			"total", len(batch),
		)
		if err := p.wait(ctx, attempt); err != nil {
			p.logger.WarnContext(ctx, "publish deadline reached before retries were exhausted",
				"attempt", attempt,
				"failed", len(pending),
				"error", err,
			)
			break
		}
		attempt++
	}

	if p.metrics != nil {
		p.metrics.ObserveAttempts(attempt)
		p.metrics.AddDelivered(len(batch) - len(pending))
	}
	if len(pending) > 0 {
		p.forwardToDeadLetter(ctx, pending)
	}
}

// submit sends pending in chunks and returns the entries that still failed.
func (p *Publisher) submit(ctx context.Context, pending []publishFailure) []publishFailure {
	var failed []publishFailure
	for start := 0; start < len(pending); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(pending))
		chunk := pending[start:end]

		if err := ctx.Err(); err != nil {
			for _, f := range chunk {
				failed = append(failed, publishFailure{entry: f.entry, code: codeCancelled, message: err.Error()})
			}
			continue
		}

		out := make([]models.BatchEntry, len(chunk))
		for i, f := range chunk {
			f.entry.Attempts++
			out[i] = *f.entry
		}

		results, err := p.bus.PutEntries(ctx, out)
		if err != nil {
			p.logger.ErrorContext(ctx, "event bus call failed", "entries", len(chunk), "error", err)
			for _, f := range chunk {
				failed = append(failed, publishFailure{entry: f.entry, code: codeBusUnavailable, message: err.Error()})
			}
			continue
		}

		for i, f := range chunk {
			if i >= len(results) {
				// The bus owes us a result; without one delivery is unknown, so retry.
				failed = append(failed, publishFailure{entry: f.entry, code: codeBusUnavailable, message: "missing result"})
				continue
			}
			if results[i].Failed() {
				failed = append(failed, publishFailure{entry: f.entry, code: results[i].ErrorCode, message: results[i].ErrorMessage})
			}
		}
	}
	return failed
}

func (p *Publisher) wait(ctx context.Context, attempt int) error {
	if p.cfg.Backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(backoffDelay(p.cfg.Backoff, p.cfg.MaxBackoff, attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay doubles base once per round after the first, up to limit.
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

// forwardToDeadLetter sends each entry independently. The caller's deadline
// may already have passed, so a detached, bounded context is used.
func (p *Publisher) forwardToDeadLetter(ctx context.Context, failed []publishFailure) {
	dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.DeadLetterTimeout)
	defer cancel()

	for _, f := range failed {
		err := p.sendDeadLetter(dlCtx, f)
		if err != nil {
			if p.metrics != nil {
				p.metrics.IncDeadLetterFailures()
			}
			p.logger.ErrorContext(ctx, "CRITICAL: dead-letter forwarding failed; entry outcome unknown",
				"entry_id", f.entry.ID,
				"resource", f.entry.Resource,
				"attempts", f.entry.Attempts,
				"reason", f.reason(),
				"error", err,
			)
			continue
		}
		if p.metrics != nil {
			p.metrics.IncDeadLettered()
		}
		p.logger.WarnContext(ctx, "entry dead-lettered",
			"entry_id", f.entry.ID,
			"resource", f.entry.Resource,
			"attempts", f.entry.Attempts,
			"reason", f.reason(),
		)
	}
}

func (p *Publisher) sendDeadLetter(ctx context.Context, f publishFailure) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dead-letter sink panicked: %v", r)
		}
	}()
	return p.deadLetter.Send(ctx, *f.entry, f.reason())
}
