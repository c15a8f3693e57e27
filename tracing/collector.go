package tracing

import (
	"sync"

	"github.com/sarchlab/vendsim/vending"
)

// TransitionCollector keeps every transition in memory.
type TransitionCollector struct {
	mu          sync.Mutex
	transitions []vending.Transition
}

// NewTransitionCollector creates an empty collector.
func NewTransitionCollector() *TransitionCollector {
	return &TransitionCollector{}
}

// Transition records t.
func (c *TransitionCollector) Transition(t vending.Transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transitions = append(c.transitions, t)
}

// Transitions returns the transitions collected so far, oldest first.
func (c *TransitionCollector) Transitions() []vending.Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	dup := make([]vending.Transition, len(c.transitions))
	copy(dup, c.transitions)

	return dup
}
