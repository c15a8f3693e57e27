package vending

import "github.com/sarchlab/vendsim/timing"

// InsertCoinEvent delivers a coin insertion through the engine queue.
type InsertCoinEvent struct {
	Amount int
}

// SelectItemEvent delivers an item selection through the engine queue.
type SelectItemEvent struct {
	Item Item
}

// DispenseDoneEvent fires when the dispense delay is over. Remaining is the
// credit left after paying, captured when the sale started.
type DispenseDoneEvent struct {
	Remaining int

	token *timing.CancelToken
}

// ChangeDoneEvent fires when the change delay is over.
type ChangeDoneEvent struct {
	token *timing.CancelToken
}
