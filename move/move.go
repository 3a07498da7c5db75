// Package move hands ownership of a value from thread mode to exactly one
// bound interrupt handler.
//
// A Move holds a single payload slot guarded by a three-state atomic tag:
//
//	Uninit      no valid payload; reading is illegal
//	Idle        a valid payload exists and is not borrowed
//	Locked      a valid payload is borrowed by an in-progress TryLock
//
// The tag is the sole authority on whether the slot is populated and
// whether it is borrowed. Thread mode deposits and reclaims the payload
// (TryMove, TryFree) inside a critical section; the bound handler borrows
// it in place (TryLock) with no critical section at all, relying on the
// single-core guarantee that only one context is ever live. The Locked tag
// exists to catch the one race the hardware property does not rule out:
// the bound handler re-entering its own borrow.
//
// No operation blocks, retries, or allocates on the success path, and every
// failure is returned to the caller as a recoverable error with the
// caller's value intact.
package move

import (
	"sync/atomic"

	"github.com/irqtools/handoff/intr"
	"github.com/irqtools/handoff/platform"
)

// State is the ownership tag of a Move.
type State uint32

const (
	// Uninit means no valid payload exists.
	Uninit State = iota
	// Idle means a valid payload exists and nothing is borrowing it.
	Idle
	// Locked means a valid payload exists and a TryLock call is in
	// progress. Locked is transient: it is only ever observable from
	// inside the borrowing callback.
	Locked
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case Idle:
		return "idle"
	case Locked:
		return "locked"
	default:
		return "invalid"
	}
}

// Move is a single-slot ownership cell bound to one handler context.
//
// A Move is created once, at startup, and lives for the life of the
// program. It coordinates exactly two parties: thread-mode code, and the
// one handler identity fixed at construction.
type Move[T any] struct {
	state atomic.Uint32
	bound intr.Context
	plat  platform.Platform
	val   T
}

// New creates an empty cell bound to the given handler context. The cell
// starts Uninit; TryLock fails until thread mode deposits a value.
func New[T any](p platform.Platform, bound intr.Context) (*Move[T], error) {
	if p == nil {
		return nil, errNilPlatform
	}
	if bound.IsThread() {
		return nil, errThreadBinding
	}
	return &Move[T]{bound: bound, plat: p}, nil
}

// NewWith creates a cell already holding v, bound to the given handler
// context. The cell starts Idle.
func NewWith[T any](p platform.Platform, bound intr.Context, v T) (*Move[T], error) {
	m, err := New[T](p, bound)
	if err != nil {
		return nil, err
	}
	m.val = v
	m.state.Store(uint32(Idle))
	return m, nil
}

// Bound returns the handler context this cell is bound to.
func (m *Move[T]) Bound() intr.Context {
	return m.bound
}

// State returns the current tag, for diagnostics and test assertions.
// An out-of-range tag (possible only under memory corruption) is reported
// as Locked, matching how the operations treat it.
func (m *Move[T]) State() State {
	if s := State(m.state.Load()); s <= Locked {
		return s
	}
	return Locked
}

// TryMove deposits v into the cell, returning the payload it replaced.
//
// TryMove may only be called from thread mode; called with any handler
// live it fails with ErrWrongContext before touching the cell, and the
// caller still owns v. Otherwise the check-and-set runs inside a single
// bounded critical section:
//
//	Uninit  -> deposit v, become Idle; replaced is false
//	Idle    -> swap v in, return the previous payload; replaced is true
//	Locked  -> ErrAlreadyBorrowed, cell unchanged
//
// A well-behaved program never sees the Locked failure from thread mode,
// since Locked only exists inside the bound handler's TryLock, but it is
// handled rather than assumed away.
func (m *Move[T]) TryMove(v T) (prev T, replaced bool, err error) {
	if active := m.plat.Active(); !active.IsThread() {
		return prev, false, m.opError(opMove, ErrWrongContext, active)
	}
	m.plat.Exclusive(func() {
		switch State(m.state.Load()) {
		case Uninit:
			m.val = v
			m.state.Store(uint32(Idle))
		case Idle:
			prev, m.val = m.val, v
			replaced = true
		default:
			// Locked, or a corrupted tag: fail closed.
			err = m.opError(opMove, ErrAlreadyBorrowed, intr.Thread())
		}
	})
	return prev, replaced, err
}

// TryFree reclaims the payload for thread mode, leaving the cell Uninit.
//
// Same context precondition and critical-section discipline as TryMove.
// On an Uninit cell TryFree succeeds with freed == false. On a Locked
// cell it fails with ErrAlreadyBorrowed: the handler still holds the
// borrow, and the caller is expected to quiesce it first.
func (m *Move[T]) TryFree() (v T, freed bool, err error) {
	if active := m.plat.Active(); !active.IsThread() {
		return v, false, m.opError(opFree, ErrWrongContext, active)
	}
	m.plat.Exclusive(func() {
		switch State(m.state.Load()) {
		case Uninit:
		case Idle:
			var zero T
			v, m.val = m.val, zero
			freed = true
			m.state.Store(uint32(Uninit))
		default:
			err = m.opError(opFree, ErrAlreadyBorrowed, intr.Thread())
		}
	})
	return v, freed, err
}

// TryLock borrows the payload for the duration of fn, which gets exclusive
// mutable access.
//
// TryLock succeeds only when the live context equals the bound context
// exactly; thread mode and every other handler get ErrWrongContext without
// the cell being touched. On a match:
//
//	Uninit  -> ErrNotInitialized
//	Locked  -> ErrAlreadyBorrowed (fn, directly or indirectly, re-locked
//	           the same cell)
//	Idle    -> become Locked, run fn, become Idle again
//
// No critical section is taken: mutual exclusion against thread mode and
// unrelated handlers follows from only one context ever being live, so the
// bound handler's hot path never disables interrupts.
//
// The tag is restored to Idle even if fn panics; a cell must never remain
// Locked once TryLock has returned.
func (m *Move[T]) TryLock(fn func(*T)) error {
	if active := m.plat.Active(); active != m.bound {
		return m.opError(opLock, ErrWrongContext, active)
	}
	switch State(m.state.Load()) {
	case Idle:
	case Uninit:
		return m.opError(opLock, ErrNotInitialized, m.bound)
	default:
		return m.opError(opLock, ErrAlreadyBorrowed, m.bound)
	}
	if !m.state.CompareAndSwap(uint32(Idle), uint32(Locked)) {
		return m.opError(opLock, ErrAlreadyBorrowed, m.bound)
	}
	defer m.state.Store(uint32(Idle))
	fn(&m.val)
	return nil
}

// With is the typed-result form of TryLock: it borrows m's payload, applies
// fn, and returns fn's result. On any TryLock failure the zero R is
// returned alongside the error.
func With[T, R any](m *Move[T], fn func(*T) R) (R, error) {
	var out R
	err := m.TryLock(func(v *T) {
		out = fn(v)
	})
	return out, err
}
