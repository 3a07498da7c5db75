package harness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irqtools/handoff/internal/trace"
)

func sampleTrace() []trace.Event {
	v7 := int64(7)
	return []trace.Event{
		{Seq: 1, Ctx: "thread", Op: "move", Outcome: "ok", Value: &v7, StateAfter: "idle"},
		{Seq: 2, Ctx: "irq:17", Op: "lock", Outcome: "ok", Value: &v7, StateAfter: "idle"},
		{Seq: 3, Ctx: "irq:16", Op: "lock", Outcome: "wrong_context", StateAfter: "idle"},
		{Seq: 4, Ctx: "thread", Op: "free", Outcome: "ok", Value: &v7, StateAfter: "uninit"},
	}
}

func sampleResult() *Result {
	return &Result{Pass: true, Trace: sampleTrace(), FinalState: "uninit"}
}

func noObserve() (int64, error) {
	return 0, fmt.Errorf("no payload to observe")
}

func TestAssertTraceContains(t *testing.T) {
	r := sampleResult()

	failures := EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceContains, Op: "lock"},
		{Type: AssertTraceContains, Op: "lock", Outcome: "wrong_context"},
	}, noObserve)
	assert.Empty(t, failures)

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceContains, Op: "lock", Outcome: "already_borrowed"},
	}, noObserve)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "trace_contains")
	assert.Contains(t, failures[0], "not found in trace")
}

func TestAssertTraceCount(t *testing.T) {
	r := sampleResult()

	failures := EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceCount, Op: "lock", Count: 2},
		{Type: AssertTraceCount, Op: "lock", Outcome: "ok", Count: 1},
		{Type: AssertTraceCount, Op: "move", Outcome: "already_borrowed", Count: 0},
	}, noObserve)
	assert.Empty(t, failures)

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceCount, Op: "lock", Count: 3},
	}, noObserve)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "appears 2 time(s)")
}

func TestAssertTraceOrder(t *testing.T) {
	r := sampleResult()

	failures := EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceOrder, Ops: []string{"move", "lock", "free"}},
	}, noObserve)
	assert.Empty(t, failures)

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceOrder, Ops: []string{"free", "move"}},
	}, noObserve)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "should be before")

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceOrder, Ops: []string{"move", "free", "lock"}},
	}, noObserve)
	require.Len(t, failures, 1, "order uses first occurrences")
}

func TestAssertFinalState(t *testing.T) {
	r := sampleResult()

	failures := EvaluateAssertions(r, []Assertion{
		{Type: AssertFinalState, State: "uninit"},
	}, noObserve)
	assert.Empty(t, failures)

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertFinalState, State: "idle"},
	}, noObserve)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "final state uninit")
}

func TestAssertFinalState_Value(t *testing.T) {
	r := sampleResult()
	r.FinalState = "idle"

	observed := func() (int64, error) { return 42, nil }

	failures := EvaluateAssertions(r, []Assertion{
		{Type: AssertFinalState, State: "idle", Value: i64(42)},
	}, observed)
	assert.Empty(t, failures)

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertFinalState, State: "idle", Value: i64(41)},
	}, observed)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "final payload 42")

	failures = EvaluateAssertions(r, []Assertion{
		{Type: AssertFinalState, State: "idle", Value: i64(42)},
	}, noObserve)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "unobservable")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "op lock appears 3 time(s)",
		Actual:   "appears 2 time(s)",
		Trace:    sampleTrace(),
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: op lock appears 3 time(s)")
	assert.Contains(t, msg, "[3] irq:16 lock -> wrong_context (idle)")
}
