package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkpointTable = "workflow_checkpoints"

// PostgresStore is a Postgres-backed checkpoint store. It is the store used in
// production so a worker crash does not lose completed steps.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed checkpoint store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the checkpoint table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("checkpoint store not initialized")
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    run_id TEXT NOT NULL,
    step TEXT NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (run_id, step)
);
`, checkpointTable)

	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, runID, step string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s == nil || s.pool == nil {
		return nil, false, fmt.Errorf("checkpoint store not initialized")
	}

	query := fmt.Sprintf(`SELECT payload FROM %s WHERE run_id = $1 AND step = $2`, checkpointTable)

	var payload []byte
	err := s.pool.QueryRow(ctx, query, runID, step).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query checkpoint: %w", err)
	}
	return payload, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, runID, step string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.pool == nil {
		return fmt.Errorf("checkpoint store not initialized")
	}

	// First write wins: a concurrent or replayed Put must not overwrite the
	// committed result for a step.
	query := fmt.Sprintf(`
INSERT INTO %s (run_id, step, payload)
VALUES ($1, $2, $3)
ON CONFLICT (run_id, step) DO NOTHING
`, checkpointTable)

	if _, err := s.pool.Exec(ctx, query, runID, step, payload); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
