package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/irqtools/handoff/internal/trace"
)

// ErrRunNotFound is returned when a run token does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunRecord describes one recorded run.
type RunRecord struct {
	ID        string `json:"id"`
	Scenario  string `json:"scenario"`
	Pass      bool   `json:"pass"`
	CreatedAt string `json:"created_at"`
}

// ReadRun returns a run and its trace, in seq order.
func (s *Store) ReadRun(ctx context.Context, runID string) (RunRecord, []trace.Event, error) {
	var rec RunRecord
	var pass int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, pass, created_at FROM runs WHERE id = ?`, runID,
	).Scan(&rec.ID, &rec.Scenario, &pass, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil, fmt.Errorf("read run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return rec, nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	rec.Pass = pass != 0

	events, err := s.readEvents(ctx, runID)
	if err != nil {
		return rec, nil, err
	}
	return rec, events, nil
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario, pass, created_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var pass int
		if err := rows.Scan(&rec.ID, &rec.Scenario, &pass, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		rec.Pass = pass != 0
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *Store) readEvents(ctx context.Context, runID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ctx, op, outcome, value, prev, state_after
		FROM events WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read events for %s: %w", runID, err)
	}
	defer rows.Close()

	var events []trace.Event
	for rows.Next() {
		var ev trace.Event
		var value, prev sql.NullInt64
		if err := rows.Scan(&ev.Seq, &ev.Ctx, &ev.Op, &ev.Outcome, &value, &prev, &ev.StateAfter); err != nil {
			return nil, fmt.Errorf("read events for %s: %w", runID, err)
		}
		if value.Valid {
			v := value.Int64
			ev.Value = &v
		}
		if prev.Valid {
			p := prev.Int64
			ev.Prev = &p
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events for %s: %w", runID, err)
	}
	return events, nil
}
