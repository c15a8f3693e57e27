// Package timing provides the discrete-event engines that drive simulated
// machines. Components schedule plain data events on an engine; the engine
// hands them back to the component's Handler in time order, one at a time.
package timing

import "github.com/sarchlab/vendsim/instrumentation/hooking"

// TimeTeller exposes the current simulation cycle.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// EventScheduler schedules events in the simulation timeline.
type EventScheduler interface {
	TimeTeller
	Schedule(event ScheduledEvent)
}

// Engine is an EventScheduler that can be observed and paused.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Pause stops the engine from dispatching more events until Continue is
	// called.
	Pause()

	// Continue resumes event processing after a Pause.
	Continue()
}

// HookPosBeforeEvent is a hook position that triggers before handling an
// event. The hook item is the *ScheduledEvent.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// HookPosEventError triggers when a handler returns an error. The hook detail
// is the error.
var HookPosEventError = &hooking.HookPos{Name: "EventError"}

type dispatcher struct {
	*hooking.HookableBase
	domain hooking.Hookable
}

// dispatch delivers evt to its handler, surrounded by the engine hooks.
// Handler errors are reported through HookPosEventError and do not stop the
// engine.
func (d dispatcher) dispatch(evt *ScheduledEvent) {
	hookCtx := hooking.HookCtx{
		Domain: d.domain,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	d.InvokeHook(hookCtx)

	if evt.Handler != nil {
		if err := evt.Handler.Handle(evt.Event); err != nil {
			d.InvokeHook(hooking.HookCtx{
				Domain: d.domain,
				Pos:    HookPosEventError,
				Item:   evt,
				Detail: err,
			})
		}
	}

	hookCtx.Pos = HookPosAfterEvent
	d.InvokeHook(hookCtx)
}
