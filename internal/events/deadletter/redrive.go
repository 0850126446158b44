package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"doiregistrar/internal/events/models"
	"doiregistrar/internal/events/publisher"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/sentinel"
	txcontext "doiregistrar/pkg/platform/tx"
)

// Redriver republishes persisted dead letters.
//
// Rows are taken, published, and any entry that fails again is written back,
// all inside one transaction: a crash mid-redrive leaves the table as it was.
type Redriver struct {
	db     *sql.DB
	store  *PostgresStore
	bus    publisher.EventBus
	cfg    publisher.Config
	logger *slog.Logger
}

func NewRedriver(db *sql.DB, store *PostgresStore, bus publisher.EventBus, cfg publisher.Config, logger *slog.Logger) *Redriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redriver{db: db, store: store, bus: bus, cfg: cfg, logger: logger}
}

// Redrive republishes up to limit of the oldest dead letters and returns
// how many were taken.
func (r *Redriver) Redrive(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	pub := publisher.New(r.bus, r.store, r.cfg, publisher.WithLogger(r.logger))

	var taken int
	err := txcontext.Run(ctx, r.db, func(ctx context.Context) error {
		letters, err := r.store.Take(ctx, limit)
		if err != nil {
			return err
		}
		taken = len(letters)
		if taken == 0 {
			return nil
		}
		entries := make([]models.BatchEntry, len(letters))
		for i, dl := range letters {
			entries[i] = dl.Entry()
		}
		pub.Publish(ctx, entries)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redrive dead letters: %w", err)
	}
	if taken > 0 {
		r.logger.InfoContext(ctx, "dead letters redriven", "count", taken)
	}
	return taken, nil
}

// Discard drops one dead letter without republishing it.
func (r *Redriver) Discard(ctx context.Context, id uuid.UUID) error {
	n, err := r.store.Delete(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.KindNotFound, "no dead letter "+id.String())
	}
	r.logger.InfoContext(ctx, "dead letter discarded", "entry_id", id)
	return nil
}

// List returns up to limit persisted dead letters, oldest first.
func (r *Redriver) List(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	return r.store.List(ctx, limit)
}
