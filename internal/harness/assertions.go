package harness

import (
	"fmt"
	"strings"

	"github.com/irqtools/handoff/internal/trace"
)

// AssertionError is returned when a scenario-level assertion fails. It
// carries expected vs actual plus the full trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []trace.Event
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s (%s)\n", i+1, ev.Ctx, ev.Op, ev.Outcome, ev.StateAfter)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the run result. The
// observe callback reads the final payload through a borrow from the bound
// context; it is only invoked for final_state assertions carrying a value.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, observe func() (int64, error)) []string {
	var failures []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a, observe)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func matches(ev trace.Event, a Assertion) bool {
	if ev.Op != a.Op {
		return false
	}
	return a.Outcome == "" || ev.Outcome == a.Outcome
}

func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, ev := range events {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeMatch(a),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

func assertTraceCount(events []trace.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if matches(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s appears %d time(s)", describeMatch(a), a.Count),
			Actual:   fmt.Sprintf("appears %d time(s)", count),
			Trace:    events,
		}
	}
	return nil
}

// assertTraceOrder checks that the ops appear in the given order. Ops need
// not be consecutive; first occurrences decide positions.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range events {
		if positions[ev.Op] == 0 {
			positions[ev.Op] = i + 1 // 1-indexed so 0 means absent
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    events,
			}
		}
	}
	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: events,
			}
		}
	}
	return nil
}

func assertFinalState(result *Result, a Assertion, observe func() (int64, error)) error {
	if result.FinalState != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("final state %s", a.State),
			Actual:   fmt.Sprintf("final state %s", result.FinalState),
			Trace:    result.Trace,
		}
	}
	if a.Value != nil {
		v, err := observe()
		if err != nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("final payload %d", *a.Value),
				Actual:   fmt.Sprintf("payload unobservable: %v", err),
				Trace:    result.Trace,
			}
		}
		if v != *a.Value {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("final payload %d", *a.Value),
				Actual:   fmt.Sprintf("final payload %d", v),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func describeMatch(a Assertion) string {
	if a.Outcome == "" {
		return fmt.Sprintf("op %s", a.Op)
	}
	return fmt.Sprintf("op %s with outcome %s", a.Op, a.Outcome)
}
