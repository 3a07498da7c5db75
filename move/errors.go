package move

import (
	"errors"
	"fmt"

	"github.com/irqtools/handoff/intr"
)

// Failure codes. Every operation failure wraps exactly one of these, so
// callers can classify with errors.Is without inspecting the OpError.
var (
	// ErrWrongContext means a thread-mode-only operation ran with a
	// handler live, or TryLock ran outside the bound context.
	ErrWrongContext = errors.New("wrong context")

	// ErrNotInitialized means TryLock found the cell Uninit.
	ErrNotInitialized = errors.New("not initialized")

	// ErrAlreadyBorrowed means the cell was Locked: a reentrant TryLock,
	// or a thread-mode operation racing an in-progress borrow.
	ErrAlreadyBorrowed = errors.New("already borrowed")
)

// Constructor errors.
var (
	errNilPlatform   = errors.New("move: nil platform")
	errThreadBinding = errors.New("move: cannot bind to thread mode")
)

const (
	opMove = "try_move"
	opFree = "try_free"
	opLock = "try_lock"
)

// OpError describes a failed operation with enough context to diagnose it:
// which operation, which failure code, what the cell is bound to, and what
// was live at the time.
type OpError struct {
	Op     string       // "try_move", "try_free", or "try_lock"
	Code   error        // one of the failure codes above
	Bound  intr.Context // the cell's bound handler context
	Active intr.Context // the context that was live during the call
}

func (e *OpError) Error() string {
	return fmt.Sprintf("move: %s from %s (bound %s): %v", e.Op, e.Active, e.Bound, e.Code)
}

func (e *OpError) Unwrap() error {
	return e.Code
}

func (m *Move[T]) opError(op string, code error, active intr.Context) error {
	return &OpError{Op: op, Code: code, Bound: m.bound, Active: active}
}
