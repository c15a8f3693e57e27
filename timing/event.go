package timing

import (
	"sync/atomic"

	"github.com/sarchlab/vendsim/idgen"
)

// Handler processes events of various types.
// Events are plain data structs (no interface required).
// Handlers use type switching to handle different event types:
//
//	func (h *MyHandler) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(event any) error
}

// ScheduledEvent is the engine-facing wrapper for user-defined events.
type ScheduledEvent struct {
	// ID orders events that share the same time. Engines assign one when it
	// is left zero.
	ID idgen.ID

	// Event is the data payload to be delivered to the handler.
	Event any

	// Time is the cycle when the event should be processed.
	Time VTimeInCycle

	// Handler is the component that will process this event.
	Handler Handler

	// IsSecondary events run after all primary events of the same cycle.
	IsSecondary bool

	// Cancel, when set and cancelled before the event is due, drops the
	// event.
	Cancel *CancelToken
}

func (e *ScheduledEvent) cancelled() bool {
	return e.Cancel != nil && e.Cancel.Cancelled()
}

// CancelToken withdraws a scheduled event. The zero value is ready to use and
// safe for concurrent use.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a token that has not been cancelled.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token. Cancelling twice is harmless.
func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	return t.cancelled.Load()
}
