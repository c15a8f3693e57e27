// Command vendsim simulates a coin-operated vending machine.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vendsim/vendsim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
