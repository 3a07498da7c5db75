// Package simulate models a single interrupt-driven core on the host, so
// that code built on the platform capabilities can be exercised without
// hardware.
//
// The model keeps the two properties the primitive depends on:
//
//   - Exactly one context is live at any instant. Raise runs a handler
//     synchronously with its context live; a Raise made from inside a
//     handler models preemption by nesting.
//   - Exclusive masks interrupts. A Raise made while any Exclusive call is
//     in force does not run the handler; it is pended, and pended handlers
//     drain in FIFO order when the outermost Exclusive returns.
//
// A Core is single-goroutine by construction, mirroring the single-core
// target it stands in for. Calling into one Core from multiple goroutines
// is a test bug, not a supported mode.
package simulate

import (
	"errors"

	"github.com/irqtools/handoff/intr"
)

// ErrThreadRaise is returned by Raise when asked to raise thread mode.
// Thread mode is the default context, not a preemption source.
var ErrThreadRaise = errors.New("simulate: cannot raise thread mode")

type pended struct {
	ctx     intr.Context
	handler func()
}

// Core is a simulated single core. The zero value is ready to use: thread
// mode live, interrupts unmasked, nothing pended.
type Core struct {
	stack   []intr.Context // live handler stack; empty means thread mode
	mask    int            // Exclusive nesting depth
	pending []pended       // handlers raised while masked, FIFO
}

// NewCore returns a core in thread mode with interrupts enabled.
func NewCore() *Core {
	return &Core{}
}

// Active returns the live context: the innermost raised handler, or thread
// mode when no handler is in progress.
func (c *Core) Active() intr.Context {
	if len(c.stack) == 0 {
		return intr.Thread()
	}
	return c.stack[len(c.stack)-1]
}

// Exclusive runs fn with interrupts masked. Nesting is a depth count;
// pended handlers drain only when the outermost call unwinds.
func (c *Core) Exclusive(fn func()) {
	c.mask++
	defer func() {
		c.mask--
		if c.mask == 0 {
			c.drain()
		}
	}()
	fn()
}

// Raise makes ctx live and runs handler to completion, then restores the
// previous context. Raising from inside a handler models a higher-priority
// preemption. If interrupts are masked the handler is pended instead and
// Raise returns immediately; the handler runs when masking ends.
func (c *Core) Raise(ctx intr.Context, handler func()) error {
	if ctx.IsThread() {
		return ErrThreadRaise
	}
	if c.mask > 0 {
		c.pending = append(c.pending, pended{ctx: ctx, handler: handler})
		return nil
	}
	c.dispatch(ctx, handler)
	return nil
}

// Masked reports whether interrupts are currently masked.
func (c *Core) Masked() bool {
	return c.mask > 0
}

// Pending returns the number of handlers waiting for masking to end.
func (c *Core) Pending() int {
	return len(c.pending)
}

func (c *Core) dispatch(ctx intr.Context, handler func()) {
	c.stack = append(c.stack, ctx)
	defer func() {
		c.stack = c.stack[:len(c.stack)-1]
	}()
	handler()
}

// drain runs pended handlers in arrival order. A handler may itself mask
// and pend further handlers; those are picked up by the same loop once the
// list grows, preserving FIFO order.
func (c *Core) drain() {
	for len(c.pending) > 0 {
		p := c.pending[0]
		c.pending = c.pending[1:]
		c.dispatch(p.ctx, p.handler)
	}
}
