package vending

import "errors"

// Errors returned by the calling surface around the controller. The state
// machine itself never fails.
var (
	// ErrInvalidCoin is returned when a coin other than 5 or 10 is offered.
	ErrInvalidCoin = errors.New("vending: coin must be 5 or 10")

	// ErrUnknownItem is returned when an item name is not in the catalog.
	ErrUnknownItem = errors.New("vending: unknown item")

	// ErrInvalidCatalog is returned when a catalog definition is rejected.
	ErrInvalidCatalog = errors.New("vending: invalid catalog")
)
