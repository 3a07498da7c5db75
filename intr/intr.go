// Package intr identifies execution contexts on a single-core,
// interrupt-driven target.
//
// A Context names exactly one of three kinds of execution:
//   - thread mode: normal foreground code, not inside any handler
//   - a core exception: one of the fixed set of processor exceptions
//   - a device interrupt: a chip-specific numbered interrupt line
//
// Contexts are comparable values. Two contexts are equal only when both the
// kind and the identity within that kind match: an exception never equals a
// device interrupt, even when the exception's vector number coincides with
// the interrupt number, and neither ever equals thread mode.
package intr

import (
	"fmt"
	"strconv"
	"strings"
)

type kind uint8

const (
	kindThread kind = iota
	kindException
	kindIRQ
)

// Exception is one of the fixed set of core exceptions. Values follow the
// Cortex-M vector table so that rendered traces show realistic encodings.
type Exception uint8

const (
	NMI          Exception = 2
	HardFault    Exception = 3
	MemManage    Exception = 4
	BusFault     Exception = 5
	UsageFault   Exception = 6
	SVCall       Exception = 11
	DebugMonitor Exception = 12
	PendSV       Exception = 14
	SysTick      Exception = 15
)

var exceptionNames = map[Exception]string{
	NMI:          "NMI",
	HardFault:    "HardFault",
	MemManage:    "MemManage",
	BusFault:     "BusFault",
	UsageFault:   "UsageFault",
	SVCall:       "SVCall",
	DebugMonitor: "DebugMonitor",
	PendSV:       "PendSV",
	SysTick:      "SysTick",
}

func (e Exception) String() string {
	if name, ok := exceptionNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Exception(%d)", uint8(e))
}

// Context identifies a single execution context. The zero value is thread
// mode. Contexts are immutable and safe to compare with ==.
type Context struct {
	kind kind
	num  uint16
}

// Thread returns the thread-mode context.
func Thread() Context {
	return Context{}
}

// Exc returns the context of a core exception.
func Exc(e Exception) Context {
	return Context{kind: kindException, num: uint16(e)}
}

// Num returns the context of a numbered device interrupt. The number space
// is open: whatever the target's vector table defines is valid here.
func Num(n uint16) Context {
	return Context{kind: kindIRQ, num: n}
}

// IsThread reports whether c is thread mode.
func (c Context) IsThread() bool {
	return c.kind == kindThread
}

// Exception returns the exception identity, if c is an exception context.
func (c Context) Exception() (Exception, bool) {
	if c.kind != kindException {
		return 0, false
	}
	return Exception(c.num), true
}

// Num returns the interrupt number, if c is a device-interrupt context.
func (c Context) Num() (uint16, bool) {
	if c.kind != kindIRQ {
		return 0, false
	}
	return c.num, true
}

// String renders the context in the form used by scenario files and traces:
// "thread", "exception:SysTick", or "irq:17".
func (c Context) String() string {
	switch c.kind {
	case kindException:
		return "exception:" + Exception(c.num).String()
	case kindIRQ:
		return "irq:" + strconv.Itoa(int(c.num))
	default:
		return "thread"
	}
}

// Parse is the inverse of String. It accepts "thread", "exception:<name>",
// and "irq:<number>".
func Parse(s string) (Context, error) {
	if s == "thread" {
		return Thread(), nil
	}
	if name, ok := strings.CutPrefix(s, "exception:"); ok {
		for e, n := range exceptionNames {
			if n == name {
				return Exc(e), nil
			}
		}
		return Context{}, fmt.Errorf("unknown exception %q", name)
	}
	if num, ok := strings.CutPrefix(s, "irq:"); ok {
		n, err := strconv.ParseUint(num, 10, 16)
		if err != nil {
			return Context{}, fmt.Errorf("invalid interrupt number %q", num)
		}
		return Num(uint16(n)), nil
	}
	return Context{}, fmt.Errorf("invalid context %q", s)
}
