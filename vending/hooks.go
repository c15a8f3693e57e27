package vending

import (
	"time"

	"github.com/sarchlab/vendsim/instrumentation/hooking"
	"github.com/sarchlab/vendsim/timing"
)

// HookPosStateChange fires every time an operation or timed step sets the
// machine state, including when the state does not actually change. The hook
// item is a Transition.
var HookPosStateChange = &hooking.HookPos{Name: "VendingStateChange"}

// HookPosCoinInserted fires for every inserted coin. The hook item is a
// CoinInsertion.
var HookPosCoinInserted = &hooking.HookPos{Name: "VendingCoinInserted"}

// HookPosItemSelected fires for every selection. The hook item is the Item.
var HookPosItemSelected = &hooking.HookPos{Name: "VendingItemSelected"}

// Cause names what set the machine state.
type Cause string

// Causes of a state change.
const (
	CauseInsertCoin   Cause = "insert_coin"
	CauseSelectItem   Cause = "select_item"
	CauseDispenseDone Cause = "dispense_done"
	CauseChangeDone   Cause = "change_done"
)

// Transition describes one state change and the session right after it.
type Transition struct {
	Machine  string
	From     MachineState
	To       MachineState
	Cause    Cause
	Time     timing.VTimeInCycle
	At       time.Duration
	Credit   int
	Change   int
	Selected string
}

// CoinInsertion describes an inserted coin and the credit after it.
type CoinInsertion struct {
	Amount int
	Credit int
}
