package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/irqtools/handoff/internal/trace"
)

// Snapshot renders a run as the canonical bytes pinned by golden files and
// stored for replay comparison.
func Snapshot(name string, events []trace.Event) ([]byte, error) {
	list := make([]any, len(events))
	for i, ev := range events {
		list[i] = ev.CanonicalMap()
	}
	return trace.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"trace":         list,
	})
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) *Result {
	t.Helper()

	result, err := Run(sc)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", sc.Name, err)
	}

	b, err := Snapshot(sc.Name, result.Trace)
	if err != nil {
		t.Fatalf("scenario %s: canonical trace: %v", sc.Name, err)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, sc.Name, b)
	return result
}
