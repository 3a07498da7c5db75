package harness

import (
	"fmt"

	"github.com/irqtools/handoff/internal/trace"
	"github.com/irqtools/handoff/intr"
	"github.com/irqtools/handoff/move"
	"github.com/irqtools/handoff/platform/simulate"
)

// runner holds the per-run state: a fresh simulated core, the cell under
// test, and the logical clock stamping trace events.
type runner struct {
	core   *simulate.Core
	cell   *move.Move[int64]
	clock  *simulate.Clock
	result *Result
}

// Run executes a scenario and returns its result.
//
// Each run gets a fresh core, cell, and clock, so the same scenario always
// produces the same trace; that determinism is what golden comparison and
// store replay verification build on. A non-nil error means the scenario
// itself could not be executed; expect and assertion failures are reported
// through the result instead.
func Run(sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	bound, err := intr.Parse(sc.Cell.Bound)
	if err != nil {
		return nil, err
	}

	core := simulate.NewCore()
	var cell *move.Move[int64]
	if sc.Cell.Initial != nil {
		cell, err = move.NewWith(core, bound, *sc.Cell.Initial)
	} else {
		cell, err = move.New[int64](core, bound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to construct cell: %w", err)
	}

	h := &runner{
		core:   core,
		cell:   cell,
		clock:  simulate.NewClock(),
		result: NewResult(),
	}

	for i, step := range sc.Steps {
		if err := h.executeStep(i, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	h.result.FinalState = cell.State().String()

	observe := func() (int64, error) {
		var v int64
		var lockErr error
		if err := core.Raise(bound, func() {
			v, lockErr = move.With(cell, func(p *int64) int64 { return *p })
		}); err != nil {
			return 0, err
		}
		return v, lockErr
	}
	for _, msg := range EvaluateAssertions(h.result, sc.Assertions, observe) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// executeStep runs one step in its stated context. Thread-mode steps run
// directly; handler steps run inside a simulated raise. A masked step
// raises the handler from within a thread-mode critical section, so the
// operation runs only once the section ends and the pended handler drains.
func (h *runner) executeStep(idx int, step Step) error {
	from, err := intr.Parse(step.From)
	if err != nil {
		return err
	}

	op := func() { h.perform(idx, step, from) }
	switch {
	case from.IsThread():
		op()
		return nil
	case step.Masked:
		var raiseErr error
		h.core.Exclusive(func() {
			raiseErr = h.core.Raise(from, op)
		})
		return raiseErr
	default:
		return h.core.Raise(from, op)
	}
}

// perform executes the operation and records its trace event. Events are
// recorded in completion order, so a reentrant lock attempt inside a borrow
// appears before the enclosing lock.
func (h *runner) perform(idx int, step Step, from intr.Context) {
	ev := trace.Event{Ctx: from.String(), Op: step.Op}
	var opErr error

	switch step.Op {
	case trace.OpMove:
		prev, replaced, err := h.cell.TryMove(*step.Value)
		opErr = err
		if err == nil {
			v := *step.Value
			ev.Value = &v
			if replaced {
				p := prev
				ev.Prev = &p
			}
		}
	case trace.OpFree:
		v, freed, err := h.cell.TryFree()
		opErr = err
		if err == nil && freed {
			val := v
			ev.Value = &val
		}
	case trace.OpLock:
		var observed int64
		borrowed := false
		err := h.cell.TryLock(func(v *int64) {
			observed = *v
			borrowed = true
			if step.Reenter {
				inner := h.cell.TryLock(func(*int64) {})
				h.record(trace.Event{
					Ctx:     from.String(),
					Op:      trace.OpLock,
					Outcome: trace.Outcome(inner),
				})
			}
			if step.Store != nil {
				*v = *step.Store
			}
		})
		opErr = err
		if err == nil && borrowed {
			ev.Value = &observed
		}
	}

	ev.Outcome = trace.Outcome(opErr)
	h.record(ev)
	h.check(idx, step, ev)
}

// record stamps an event with the completion seq and the tag observed at
// completion, then appends it to the trace.
func (h *runner) record(ev trace.Event) {
	ev.Seq = h.clock.Next()
	ev.StateAfter = h.cell.State().String()
	h.result.Trace = append(h.result.Trace, ev)
}

// check validates a step's expect clause against its recorded event.
func (h *runner) check(idx int, step Step, ev trace.Event) {
	e := step.Expect
	if e == nil {
		return
	}

	if ev.Outcome != e.Outcome {
		h.result.AddError(fmt.Sprintf(
			"step %d (%s %s): expected outcome %s, got %s",
			idx+1, ev.Ctx, step.Op, e.Outcome, ev.Outcome))
		return
	}

	if e.None {
		switch step.Op {
		case trace.OpMove:
			if ev.Prev != nil {
				h.result.AddError(fmt.Sprintf(
					"step %d (move): expected no replaced value, got %d", idx+1, *ev.Prev))
			}
		default:
			if ev.Value != nil {
				h.result.AddError(fmt.Sprintf(
					"step %d (%s): expected no value, got %d", idx+1, step.Op, *ev.Value))
			}
		}
	}
	if e.Prev != nil {
		if ev.Prev == nil {
			h.result.AddError(fmt.Sprintf(
				"step %d (move): expected replaced value %d, got none", idx+1, *e.Prev))
		} else if *ev.Prev != *e.Prev {
			h.result.AddError(fmt.Sprintf(
				"step %d (move): expected replaced value %d, got %d", idx+1, *e.Prev, *ev.Prev))
		}
	}
	if e.Value != nil {
		if ev.Value == nil {
			h.result.AddError(fmt.Sprintf(
				"step %d (%s): expected value %d, got none", idx+1, step.Op, *e.Value))
		} else if *ev.Value != *e.Value {
			h.result.AddError(fmt.Sprintf(
				"step %d (%s): expected value %d, got %d", idx+1, step.Op, *e.Value, *ev.Value))
		}
	}
}
