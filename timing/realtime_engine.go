package timing

import (
	"context"
	"sync"
	"time"

	"github.com/sarchlab/vendsim/idgen"
	"github.com/sarchlab/vendsim/instrumentation/hooking"
)

// RealTimeEngine dispatches events when the wall clock reaches them. It runs
// on a single goroutine of its own, so every handler still executes on one
// logical thread, while Schedule may be called from anywhere.
//
// Unlike SerialEngine, an event scheduled in the past is not an error: it is
// dispatched as soon as possible. Callers on other goroutines cannot read the
// current time and schedule atomically.
type RealTimeEngine struct {
	*hooking.HookableBase

	freq Freq
	ids  idgen.Generator

	queues eventQueues
	wake   chan struct{}

	lock       sync.Mutex
	startedAt  time.Time
	started    bool
	paused     bool
	lastCycle  VTimeInCycle
	cancelLoop context.CancelFunc
	done       chan struct{}
}

// NewRealTimeEngine creates an engine whose cycles last one period of freq.
func NewRealTimeEngine(freq Freq) *RealTimeEngine {
	freq.mustBePositive()

	return &RealTimeEngine{
		HookableBase: hooking.NewHookableBase(),
		freq:         freq,
		ids:          idgen.New(),
		queues:       newEventQueues(),
		wake:         make(chan struct{}, 1),
	}
}

// Freq returns the frequency used to map cycles to the wall clock.
func (e *RealTimeEngine) Freq() Freq {
	return e.freq
}

// Start launches the dispatch loop. It returns immediately; the loop stops
// when ctx is done or Stop is called. Starting twice panics.
func (e *RealTimeEngine) Start(ctx context.Context) {
	e.lock.Lock()
	if e.started {
		e.lock.Unlock()
		panic("timing: real-time engine already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.started = true
	e.startedAt = time.Now()
	e.cancelLoop = cancel
	e.done = make(chan struct{})
	e.lock.Unlock()

	go e.loop(loopCtx)
}

// Stop ends the dispatch loop and waits for the event in flight, if any.
// Pending events stay queued.
func (e *RealTimeEngine) Stop() {
	e.lock.Lock()
	cancel, done := e.cancelLoop, e.done
	e.lock.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Schedule registers an event. It is safe to call from any goroutine.
func (e *RealTimeEngine) Schedule(evt ScheduledEvent) {
	eventCopy := evt
	if eventCopy.ID == 0 {
		eventCopy.ID = e.ids.Generate()
	}

	e.queues.push(&eventCopy)
	e.signal()
}

func (e *RealTimeEngine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// CurrentTime returns the cycle the wall clock has reached since Start. It
// never goes backwards and never lags behind the last dispatched event.
func (e *RealTimeEngine) CurrentTime() VTimeInCycle {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.nowLocked()
}

func (e *RealTimeEngine) nowLocked() VTimeInCycle {
	if !e.started {
		return e.lastCycle
	}

	now := e.freq.Cycles(time.Since(e.startedAt))
	if now < e.lastCycle {
		return e.lastCycle
	}

	return now
}

// Pause holds dispatching. The wall clock keeps running; events that become
// due while paused are dispatched after Continue.
func (e *RealTimeEngine) Pause() {
	e.lock.Lock()
	e.paused = true
	e.lock.Unlock()
}

// Continue resumes dispatching after a Pause.
func (e *RealTimeEngine) Continue() {
	e.lock.Lock()
	e.paused = false
	e.lock.Unlock()

	e.signal()
}

func (e *RealTimeEngine) loop(ctx context.Context) {
	defer close(e.done)

	for ctx.Err() == nil {
		evt, wait := e.nextDue()
		if evt != nil {
			if !evt.cancelled() {
				dispatcher{HookableBase: e.HookableBase, domain: e}.dispatch(evt)
			}

			continue
		}

		if !e.sleep(ctx, wait) {
			return
		}
	}
}

// sleep blocks until woken, until wait elapses (when positive), or until ctx
// is done. It reports whether the loop should keep going.
func (e *RealTimeEngine) sleep(ctx context.Context, wait time.Duration) bool {
	var timeout <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return false
	case <-e.wake:
	case <-timeout:
	}

	return true
}

// nextDue pops the next event if it is due. Otherwise it returns how long to
// sleep, zero meaning "until woken".
func (e *RealTimeEngine) nextDue() (*ScheduledEvent, time.Duration) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.paused {
		return nil, 0
	}

	next := e.queues.peek()
	if next == nil {
		return nil, 0
	}

	now := e.nowLocked()
	if next.Time > now {
		wait := e.freq.Duration(next.Time - now)
		if wait <= 0 {
			wait = time.Microsecond
		}
		return nil, wait
	}

	evt := e.queues.pop()
	if evt.Time > e.lastCycle {
		e.lastCycle = evt.Time
	}

	return evt, 0
}

var _ Engine = (*RealTimeEngine)(nil)
