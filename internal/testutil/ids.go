package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDGenerator hands out query ids of the form "<prefix>-0001",
// "<prefix>-0002", ... so that the same scenario logs byte-identical
// query ids on every run.
//
// Unlike engine.FixedGenerator it never runs out of ids.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDGenerator creates a generator for the given prefix.
// An empty prefix becomes "query".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "query"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.QueryIDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}
