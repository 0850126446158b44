package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"doiregistrar/internal/events/models"
	txcontext "doiregistrar/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS dead_letters (
	entry_id    UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	resource    TEXT NOT NULL,
	detail_type TEXT NOT NULL,
	payload     BYTEA NOT NULL,
	attempts    INT NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dead_letters_created_at_idx ON dead_letters (created_at);
`

// PostgresStore persists dead letters so they can be inspected and redriven.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the dead_letters table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create dead_letters schema: %w", err)
	}
	return nil
}

// Send stores entry. Repeated sends of the same entry id are ignored.
func (s *PostgresStore) Send(ctx context.Context, entry models.BatchEntry, reason string) error {
	dl := models.NewDeadLetter(entry, reason, s.now())
	query := `
		INSERT INTO dead_letters (entry_id, source, resource, detail_type, payload, attempts, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entry_id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		dl.EntryID,
		dl.Source,
		dl.Resource,
		dl.DetailType,
		dl.Payload,
		dl.Attempts,
		dl.Reason,
		dl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// List returns up to limit dead letters, oldest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	query := `
		SELECT entry_id, source, resource, detail_type, payload, attempts, reason, created_at
		FROM dead_letters
		ORDER BY created_at, entry_id
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()
	return scanDeadLetters(rows)
}

// Take removes and returns up to limit of the oldest dead letters. Rows
// locked by a concurrent Take are skipped.
func (s *PostgresStore) Take(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	query := `
		DELETE FROM dead_letters
		WHERE entry_id IN (
			SELECT entry_id FROM dead_letters
			ORDER BY created_at, entry_id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING entry_id, source, resource, detail_type, payload, attempts, reason, created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("take dead letters: %w", err)
	}
	defer rows.Close()
	return scanDeadLetters(rows)
}

// Delete removes the given entries and reports how many existed.
func (s *PostgresStore) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM dead_letters WHERE entry_id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return 0, fmt.Errorf("delete dead letters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete dead letters: %w", err)
	}
	return n, nil
}

func scanDeadLetters(rows *sql.Rows) ([]models.DeadLetter, error) {
	var out []models.DeadLetter
	for rows.Next() {
		var dl models.DeadLetter
		if err := rows.Scan(
			&dl.EntryID,
			&dl.Source,
			&dl.Resource,
			&dl.DetailType,
			&dl.Payload,
			&dl.Attempts,
			&dl.Reason,
			&dl.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		out = append(out, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}
	return out, nil
}
