// Package store provides SQLite-backed storage for recorded scenario runs.
//
// A run is one execution of a scenario: a row in runs plus one row per
// trace event in events. Runs are append-only; nothing updates or deletes
// a recorded trace. All ordering uses the events' logical seq numbers,
// never timestamps, so a recorded run can be compared byte-for-byte
// against a fresh re-execution of the same scenario (see Replay).
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: events cannot outlive their run
package store
