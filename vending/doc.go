// Package vending simulates a coin-operated vending machine.
//
// The Controller is a finite state machine over six states (IDLE,
// WAITING_FOR_SELECTION, WAITING_FOR_PAYMENT, DISPENSING_ITEM, GIVING_CHANGE
// and OUT_OF_STOCK). Two operations drive it, InsertCoin and SelectItem, and
// two timed transitions finish a sale: after the dispense delay the remaining
// credit becomes change, and after the change delay the machine returns to
// IDLE. The timed transitions are events on a timing engine, so the same
// controller runs in virtual time for tests and replays and against the wall
// clock for interactive use.
//
// Neither operation can fail. Insufficient credit and empty stock are
// ordinary states, never errors. Stock is display-only and is never
// decremented.
package vending
