// Package idgen provides the identifiers used across a simulation: sequential
// IDs for scheduled events and globally unique IDs for runs.
package idgen

import (
	"sync/atomic"

	"github.com/rs/xid"
)

// ID is a unique identifier represented as a uint64.
type ID uint64

// Generator produces unique identifiers.
type Generator interface {
	Generate() ID
}

// New returns a sequential generator whose first emitted ID is 1. IDs grow
// monotonically, so they also record the order in which things were created.
func New() Generator {
	return &sequentialGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() ID {
	return ID(atomic.AddUint64(&g.next, 1))
}

// RunID returns a new globally unique, sortable identifier for a simulation
// run.
func RunID() string {
	return xid.New().String()
}
