package tracing

import (
	"sync"

	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

type machineClock struct {
	state vending.MachineState
	since timing.VTimeInCycle
}

// StateTimeTracer measures how long each machine stays in each state. A
// machine is assumed to have been in the From state of its first transition
// since cycle 0.
type StateTimeTracer struct {
	mu      sync.Mutex
	current map[string]machineClock
	spent   map[string]map[vending.MachineState]timing.VTimeInCycle
}

// NewStateTimeTracer creates a StateTimeTracer.
func NewStateTimeTracer() *StateTimeTracer {
	return &StateTimeTracer{
		current: make(map[string]machineClock),
		spent:   make(map[string]map[vending.MachineState]timing.VTimeInCycle),
	}
}

// Transition closes the interval of the previous state.
func (t *StateTimeTracer) Transition(tr vending.Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	clock, ok := t.current[tr.Machine]
	if !ok {
		clock = machineClock{state: tr.From}
	}

	t.add(tr.Machine, clock.state, tr.Time-clock.since)
	t.current[tr.Machine] = machineClock{state: tr.To, since: tr.Time}
}

func (t *StateTimeTracer) add(
	machine string,
	state vending.MachineState,
	d timing.VTimeInCycle,
) {
	perState, ok := t.spent[machine]
	if !ok {
		perState = make(map[vending.MachineState]timing.VTimeInCycle)
		t.spent[machine] = perState
	}

	perState[state] += d
}

// TerminateAll closes the open interval of every machine at now.
func (t *StateTimeTracer) TerminateAll(now timing.VTimeInCycle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for machine, clock := range t.current {
		if now < clock.since {
			continue
		}

		t.add(machine, clock.state, now-clock.since)
		t.current[machine] = machineClock{state: clock.state, since: now}
	}
}

// TimeIn returns how many cycles machine has spent in state.
func (t *StateTimeTracer) TimeIn(
	machine string,
	state vending.MachineState,
) timing.VTimeInCycle {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.spent[machine][state]
}
