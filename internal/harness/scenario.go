package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/irqtools/handoff/intr"
	"github.com/irqtools/handoff/internal/trace"
)

// Scenario defines one conformance scenario: a single cell and a sequence
// of operations performed against it from stated contexts.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Cell describes the cell under test.
	Cell CellSpec `yaml:"cell"`

	// Steps is the operation sequence, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CellSpec describes the cell under test.
type CellSpec struct {
	// Bound is the handler context the cell is bound to, e.g. "irq:17"
	// or "exception:SysTick". Thread mode is not a valid binding.
	Bound string `yaml:"bound"`

	// Initial, when present, constructs the cell already holding this
	// payload. Absent means the cell starts uninitialized.
	Initial *int64 `yaml:"initial,omitempty"`
}

// Step is one operation against the cell.
type Step struct {
	// From is the context the step runs in. "thread" runs the operation
	// directly; anything else raises that context on the simulated core
	// and runs the operation inside the handler.
	From string `yaml:"from"`

	// Op is "move", "free", or "lock".
	Op string `yaml:"op"`

	// Value is the payload to deposit. Required for move, invalid
	// otherwise.
	Value *int64 `yaml:"value,omitempty"`

	// Store, on a lock step, writes this payload through the borrow.
	Store *int64 `yaml:"store,omitempty"`

	// Reenter, on a lock step, makes the callback attempt a nested lock
	// of the same cell. The inner attempt is recorded as its own event.
	Reenter bool `yaml:"reenter,omitempty"`

	// Masked, on a handler step, raises the handler while thread mode
	// holds a critical section, so the handler pends and runs only after
	// the section ends.
	Masked bool `yaml:"masked,omitempty"`

	// Expect, when present, validates the step's result.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect validates one step's outcome.
type Expect struct {
	// Outcome is "ok", "wrong_context", "not_initialized", or
	// "already_borrowed".
	Outcome string `yaml:"outcome"`

	// Value is the expected payload: observed by a lock, or reclaimed by
	// a free.
	Value *int64 `yaml:"value,omitempty"`

	// Prev is the payload a move is expected to have replaced.
	Prev *int64 `yaml:"prev,omitempty"`

	// None asserts that a move replaced nothing, or a free found the
	// cell empty.
	None bool `yaml:"none,omitempty"`
}

// Assertion validates the trace or the cell's final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op selects events by operation (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Outcome further selects events (trace_contains, trace_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected operation order (trace_order). Ops need not be
	// consecutive in the trace.
	Ops []string `yaml:"ops,omitempty"`

	// State is the expected final tag: "uninit", "idle", or "locked"
	// (final_state).
	State string `yaml:"state,omitempty"`

	// Value is the expected final payload (final_state). Only valid with
	// state "idle"; the harness borrows from the bound context to
	// observe it.
	Value *int64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

var validOps = map[string]bool{
	trace.OpMove: true,
	trace.OpFree: true,
	trace.OpLock: true,
}

var validOutcomes = map[string]bool{
	trace.OutcomeOK:              true,
	trace.OutcomeWrongContext:    true,
	trace.OutcomeNotInitialized:  true,
	trace.OutcomeAlreadyBorrowed: true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking and
// validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks structural requirements that strict YAML decoding alone
// cannot express.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario is missing required field: name")
	}

	bound, err := intr.Parse(s.Cell.Bound)
	if err != nil {
		return fmt.Errorf("scenario %s: invalid cell.bound: %w", s.Name, err)
	}
	if bound.IsThread() {
		return fmt.Errorf("scenario %s: cell.bound cannot be thread mode", s.Name)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s: must have at least one step", s.Name)
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
		}
	}
	for i, a := range s.Assertions {
		if err := a.validate(); err != nil {
			return fmt.Errorf("scenario %s: assertion %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}

func (st *Step) validate() error {
	from, err := intr.Parse(st.From)
	if err != nil {
		return fmt.Errorf("invalid from: %w", err)
	}
	if !validOps[st.Op] {
		return fmt.Errorf("invalid op %q", st.Op)
	}
	if st.Op == trace.OpMove && st.Value == nil {
		return fmt.Errorf("move requires a value")
	}
	if st.Op != trace.OpMove && st.Value != nil {
		return fmt.Errorf("%s does not take a value", st.Op)
	}
	if st.Op != trace.OpLock && (st.Store != nil || st.Reenter) {
		return fmt.Errorf("store/reenter are only valid on lock steps")
	}
	if st.Masked && from.IsThread() {
		return fmt.Errorf("masked requires a handler context")
	}
	if st.Expect != nil && !validOutcomes[st.Expect.Outcome] {
		return fmt.Errorf("invalid expected outcome %q", st.Expect.Outcome)
	}
	return nil
}

func (a *Assertion) validate() error {
	switch a.Type {
	case AssertTraceContains:
		if !validOps[a.Op] {
			return fmt.Errorf("trace_contains requires a valid op, got %q", a.Op)
		}
	case AssertTraceCount:
		if !validOps[a.Op] {
			return fmt.Errorf("trace_count requires a valid op, got %q", a.Op)
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count requires a non-negative count")
		}
	case AssertTraceOrder:
		if len(a.Ops) < 2 {
			return fmt.Errorf("trace_order requires at least two ops")
		}
		for _, op := range a.Ops {
			if !validOps[op] {
				return fmt.Errorf("trace_order: invalid op %q", op)
			}
		}
	case AssertFinalState:
		switch a.State {
		case "uninit", "idle", "locked":
		default:
			return fmt.Errorf("final_state requires state uninit, idle, or locked, got %q", a.State)
		}
		if a.Value != nil && a.State != "idle" {
			return fmt.Errorf("final_state value check requires state idle")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Outcome != "" && !validOutcomes[a.Outcome] {
		return fmt.Errorf("invalid outcome %q", a.Outcome)
	}
	return nil
}
