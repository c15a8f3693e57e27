package vending

import (
	"fmt"
	"strconv"
	"strings"
)

// Coin is the value of an inserted coin.
type Coin int

// The two accepted denominations.
const (
	Coin5  Coin = 5
	Coin10 Coin = 10
)

// Coins lists the accepted denominations in ascending order.
func Coins() []Coin {
	return []Coin{Coin5, Coin10}
}

// ParseCoin validates user input against the accepted denominations.
func ParseCoin(s string) (Coin, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
	}

	for _, c := range Coins() {
		if Coin(n) == c {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
}
