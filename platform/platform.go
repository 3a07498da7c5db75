// Package platform declares the two hardware capabilities the handoff
// primitive consumes. Real targets supply them from their startup/runtime
// layer; host-side code uses the simulator in platform/simulate.
package platform

import "github.com/irqtools/handoff/intr"

// Platform supplies context introspection and critical sections.
//
// Implementations must uphold the single-core contract: exactly one context
// is live at any instant, and Exclusive prevents any handler from becoming
// live until the outermost Exclusive call returns.
type Platform interface {
	// Active returns the context that is executing right now.
	Active() intr.Context

	// Exclusive runs fn with all maskable interrupts disabled. It must be
	// bounded (fn is expected to be short) and safe to nest: an Exclusive
	// call made while already exclusive simply runs fn.
	Exclusive(fn func())
}

// Funcs adapts a pair of functions to the Platform interface.
type Funcs struct {
	ActiveFunc    func() intr.Context
	ExclusiveFunc func(fn func())
}

func (f Funcs) Active() intr.Context { return f.ActiveFunc() }

func (f Funcs) Exclusive(fn func()) { f.ExclusiveFunc(fn) }
