package tracing

import (
	"sync"

	"github.com/sarchlab/vendsim/vending"
)

// TransitionFilter selects the transitions a tracer counts.
type TransitionFilter func(t vending.Transition) bool

// CauseCountTracer counts how often each cause triggered a transition.
type CauseCountTracer struct {
	filter TransitionFilter

	lock   sync.Mutex
	causes []vending.Cause
	count  map[vending.Cause]uint64
}

// NewCauseCountTracer creates a CauseCountTracer. A nil filter counts every
// transition.
func NewCauseCountTracer(filter TransitionFilter) *CauseCountTracer {
	if filter == nil {
		filter = func(vending.Transition) bool { return true }
	}

	return &CauseCountTracer{
		filter: filter,
		count:  make(map[vending.Cause]uint64),
	}
}

// Causes returns the causes seen so far, in the order they first occurred.
func (t *CauseCountTracer) Causes() []vending.Cause {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]vending.Cause(nil), t.causes...)
}

// Count returns the number of transitions triggered by cause.
func (t *CauseCountTracer) Count(cause vending.Cause) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count[cause]
}

// Transition counts tr if it passes the filter.
func (t *CauseCountTracer) Transition(tr vending.Transition) {
	if !t.filter(tr) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.count[tr.Cause]; !ok {
		t.causes = append(t.causes, tr.Cause)
	}

	t.count[tr.Cause]++
}
