// Package testutil provides deterministic helpers for store and CLI tests.
package testutil

import "sync"

// FixedTokens returns predetermined run tokens in order, so tests can
// assert on exact run ids and produce stable output.
//
// Safe for concurrent use via internal mutex.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator that hands out tokens in order.
// Generate panics once all tokens are consumed; a test asking for more
// tokens than it declared is a test bug worth failing fast on.
func NewFixedTokens(tokens ...string) *FixedTokens {
	return &FixedTokens{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("testutil: all fixed tokens exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}
