package vending

import "fmt"

// MachineState enumerates the states of the vending machine.
type MachineState int

// States of the vending machine. IDLE is the initial state.
const (
	Idle MachineState = iota
	WaitingForSelection
	WaitingForPayment
	DispensingItem
	GivingChange
	OutOfStock
)

var machineStateNames = [...]string{
	Idle:                "IDLE",
	WaitingForSelection: "WAITING_FOR_SELECTION",
	WaitingForPayment:   "WAITING_FOR_PAYMENT",
	DispensingItem:      "DISPENSING_ITEM",
	GivingChange:        "GIVING_CHANGE",
	OutOfStock:          "OUT_OF_STOCK",
}

// MachineStates lists every state in declaration order.
func MachineStates() []MachineState {
	return []MachineState{
		Idle,
		WaitingForSelection,
		WaitingForPayment,
		DispensingItem,
		GivingChange,
		OutOfStock,
	}
}

func (s MachineState) String() string {
	if s < 0 || int(s) >= len(machineStateNames) {
		return fmt.Sprintf("MachineState(%d)", int(s))
	}

	return machineStateNames[s]
}

// ParseMachineState is the inverse of String.
func ParseMachineState(name string) (MachineState, error) {
	for i, n := range machineStateNames {
		if n == name {
			return MachineState(i), nil
		}
	}

	return 0, fmt.Errorf("vending: unknown machine state %q", name)
}

// MarshalText encodes the state by name.
func (s MachineState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(machineStateNames) {
		return nil, fmt.Errorf("vending: invalid machine state %d", int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *MachineState) UnmarshalText(text []byte) error {
	parsed, err := ParseMachineState(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
