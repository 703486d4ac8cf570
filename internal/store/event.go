package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequenceCounter manages the global monotonic sequence shared by the
// attempt log and the LLM request log. Per-table auto-increment IDs can't
// order rows across tables; the shared counter can, and it gives every
// attempt a stable "most recent" order even when timestamps collide.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter seeds the counter row created by migrate.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`INSERT INTO global_sequence (id, next_val) VALUES (1, 1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return nextSequence(ctx, sc.db)
}

// NextTx takes the next sequence number inside tx. It does not take the
// mutex: the open transaction already holds the counter row, and on SQLite
// it holds the only connection as well.
func (sc *sequenceCounter) NextTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	return nextSequence(ctx, tx)
}

func nextSequence(ctx context.Context, q rowQuerier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
