package vending

import "github.com/sarchlab/vendsim/timing"

const sessionKey = "session"

// Session is the mutable record of one machine.
type Session struct {
	State    MachineState
	Credit   int
	Selected *Item
	Change   int
}

func newSession() *Session {
	return &Session{State: Idle}
}

// Snapshot is a read-only copy of a machine's session, taken at Time.
type Snapshot struct {
	Machine  string              `json:"machine"`
	State    MachineState        `json:"state"`
	Credit   int                 `json:"credit"`
	Change   int                 `json:"change"`
	Selected *Item               `json:"selected,omitempty"`
	Time     timing.VTimeInCycle `json:"time"`
}

// SelectedName returns the selected item's name, or "" when nothing is
// selected.
func (s Snapshot) SelectedName() string {
	if s.Selected == nil {
		return ""
	}

	return s.Selected.Name
}
