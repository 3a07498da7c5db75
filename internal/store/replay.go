package store

import (
	"context"
	"fmt"

	"github.com/irqtools/handoff/internal/harness"
	"github.com/irqtools/handoff/internal/trace"
)

// ReplayResult reports a replay verification.
type ReplayResult struct {
	RunID         string   `json:"run_id"`
	Scenario      string   `json:"scenario"`
	Events        int      `json:"events"`
	Deterministic bool     `json:"deterministic"`
	Diffs         []string `json:"diffs,omitempty"`
}

// Replay re-executes a scenario and compares its fresh trace event-by-event
// against the recorded run. A clean replay proves the recorded trace is
// reproducible from the scenario alone; any diff means either the scenario
// file changed since the run was recorded, or the recorded database was
// tampered with.
func (s *Store) Replay(ctx context.Context, runID string, sc *harness.Scenario) (*ReplayResult, error) {
	rec, recorded, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	res := &ReplayResult{RunID: runID, Scenario: rec.Scenario, Events: len(recorded)}
	if sc.Name != rec.Scenario {
		return nil, fmt.Errorf("replay %s: run records scenario %q, got %q", runID, rec.Scenario, sc.Name)
	}

	fresh, err := harness.Run(sc)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	res.Diffs = diffTraces(recorded, fresh.Trace)
	res.Deterministic = len(res.Diffs) == 0
	return res, nil
}

// diffTraces compares two traces event-by-event by their canonical
// rendering, so the comparison matches exactly what golden files pin.
func diffTraces(recorded, fresh []trace.Event) []string {
	var diffs []string
	if len(recorded) != len(fresh) {
		diffs = append(diffs, fmt.Sprintf(
			"event count: recorded %d, replayed %d", len(recorded), len(fresh)))
	}

	n := len(recorded)
	if len(fresh) < n {
		n = len(fresh)
	}
	for i := 0; i < n; i++ {
		a, errA := trace.MarshalCanonical(recorded[i].CanonicalMap())
		b, errB := trace.MarshalCanonical(fresh[i].CanonicalMap())
		if errA != nil || errB != nil {
			diffs = append(diffs, fmt.Sprintf("event %d: canonicalization failed: %v / %v", i+1, errA, errB))
			continue
		}
		if string(a) != string(b) {
			diffs = append(diffs, fmt.Sprintf("event %d: recorded %s, replayed %s", i+1, a, b))
		}
	}
	return diffs
}
