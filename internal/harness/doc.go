// Package harness runs conformance scenarios against the handoff primitive
// on a simulated core.
//
// A scenario is a YAML file describing one cell (its bound context and
// optional initial payload) and a sequence of steps, each performed from a
// stated context: thread-mode steps run directly, handler steps run inside
// a simulated raise of that context. Every completed operation is recorded
// as a trace event; per-step expect clauses and scenario-level assertions
// are evaluated against the trace and the cell's final state.
//
// Traces are deterministic: a fixed scenario produces byte-identical
// canonical JSON on every run, which is what the golden files under
// testdata/golden pin down and what replay verification in the store
// relies on.
package harness
