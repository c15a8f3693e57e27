package timing

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/sarchlab/vendsim/idgen"
	"github.com/sarchlab/vendsim/instrumentation/hooking"
)

// SerialEngine processes scheduled events sequentially in virtual time. Time
// only moves when events are processed, so a run is fully deterministic.
type SerialEngine struct {
	*hooking.HookableBase

	timeLock sync.RWMutex
	now      VTimeInCycle

	queues eventQueues
	ids    idgen.Generator

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		HookableBase: hooking.NewHookableBase(),
		queues:       newEventQueues(),
		ids:          idgen.New(),
	}
}

// Schedule registers an event to be handled in the future. Scheduling an
// event in the past panics.
func (e *SerialEngine) Schedule(evt ScheduledEvent) {
	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Sprintf(
			"timing: cannot schedule event in the past, evt %s @ %d, now %d",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	eventCopy := evt
	if eventCopy.ID == 0 {
		eventCopy.ID = e.ids.Generate()
	}

	e.queues.push(&eventCopy)
}

func (e *SerialEngine) readNow() VTimeInCycle {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()
	return t
}

func (e *SerialEngine) writeNow(t VTimeInCycle) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run processes all scheduled events until completion.
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for !e.queues.empty() {
		e.step()
	}

	return nil
}

// RunUntil processes every event due at or before t and then moves the
// current time to t. Events scheduled for later stay in the queue.
func (e *SerialEngine) RunUntil(t VTimeInCycle) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	if t < e.readNow() {
		return fmt.Errorf("timing: cannot run until %d, now is %d", t, e.readNow())
	}

	for {
		next := e.queues.peek()
		if next == nil || next.Time > t {
			break
		}

		e.step()
	}

	e.writeNow(t)

	return nil
}

// step pops and dispatches the next event.
func (e *SerialEngine) step() {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.queues.pop()
	if evt == nil {
		return
	}

	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Sprintf(
			"timing: cannot run event in the past, evt %s @ %d, now %d",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	e.writeNow(evt.Time)

	if evt.cancelled() {
		return
	}

	dispatcher{HookableBase: e.HookableBase, domain: e}.dispatch(evt)
}

// Pending returns the number of events waiting in the queues, cancelled ones
// included.
func (e *SerialEngine) Pending() int {
	return e.queues.queue.Len() + e.queues.secondaryQueue.Len()
}

// Pause prevents the engine from dispatching more events until Continue is
// called.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes event processing after a Pause.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the cycle of the most recently executed event, or the
// target of the last RunUntil.
func (e *SerialEngine) CurrentTime() VTimeInCycle {
	return e.readNow()
}

var _ Engine = (*SerialEngine)(nil)
