package store

import (
	"context"
	"fmt"

	"github.com/irqtools/handoff/internal/trace"
)

// WriteRun records one scenario run and its full trace in a single
// transaction, returning the generated run token.
func (s *Store) WriteRun(ctx context.Context, scenario string, pass bool, events []trace.Event, gen TokenGenerator) (string, error) {
	runID := gen.Generate()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, pass) VALUES (?, ?, ?)`,
		runID, scenario, boolToInt(pass),
	); err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, seq, ctx, op, outcome, value, prev, state_after)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, ev.Seq, ev.Ctx, ev.Op, ev.Outcome,
			nullableInt(ev.Value), nullableInt(ev.Prev), ev.StateAfter,
		); err != nil {
			return "", fmt.Errorf("write run: event seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	return runID, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableInt maps an absent payload to SQL NULL.
func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
