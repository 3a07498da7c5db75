// Package trace defines the events recorded for each cell operation during
// a scenario run, and the canonical serialization used for golden files and
// replay comparison.
package trace

import (
	"errors"

	"github.com/irqtools/handoff/move"
)

// Operation names as they appear in scenarios and traces.
const (
	OpMove = "move"
	OpFree = "free"
	OpLock = "lock"
)

// Outcome names. One per entry in the primitive's failure taxonomy, plus ok.
const (
	OutcomeOK              = "ok"
	OutcomeWrongContext    = "wrong_context"
	OutcomeNotInitialized  = "not_initialized"
	OutcomeAlreadyBorrowed = "already_borrowed"
)

// Event records one completed cell operation.
//
// Events are appended in completion order: a nested operation (a reentrant
// lock attempt inside a borrow) completes, and is therefore recorded,
// before the operation enclosing it.
type Event struct {
	// Seq is the logical completion sequence number, from 1.
	Seq int64 `json:"seq"`

	// Ctx is the context the operation ran in, rendered per intr.Context.
	Ctx string `json:"ctx"`

	// Op is one of the Op* names.
	Op string `json:"op"`

	// Outcome is one of the Outcome* names.
	Outcome string `json:"outcome"`

	// Value is the payload the operation touched: the value deposited by
	// a move, observed at entry by a lock, or reclaimed by a free. Nil
	// when the operation failed or freed an empty cell.
	Value *int64 `json:"value,omitempty"`

	// Prev is the payload a successful move replaced, if any.
	Prev *int64 `json:"prev,omitempty"`

	// StateAfter is the cell tag observed right after the operation
	// completed.
	StateAfter string `json:"state_after"`
}

// Outcome maps an operation error to its trace outcome name. A nil error
// is ok; an unrecognized error is reported as-is so it surfaces in diffs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, move.ErrWrongContext):
		return OutcomeWrongContext
	case errors.Is(err, move.ErrNotInitialized):
		return OutcomeNotInitialized
	case errors.Is(err, move.ErrAlreadyBorrowed):
		return OutcomeAlreadyBorrowed
	default:
		return err.Error()
	}
}

// CanonicalMap renders the event as a plain map for MarshalCanonical.
// Optional fields are omitted rather than emitted as null, since canonical
// JSON forbids null.
func (e Event) CanonicalMap() map[string]any {
	m := map[string]any{
		"seq":         e.Seq,
		"ctx":         e.Ctx,
		"op":          e.Op,
		"outcome":     e.Outcome,
		"state_after": e.StateAfter,
	}
	if e.Value != nil {
		m["value"] = *e.Value
	}
	if e.Prev != nil {
		m["prev"] = *e.Prev
	}
	return m
}
