package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

// console interprets the commands typed at the run prompt.
type console struct {
	machine *vending.Controller
	engine  timing.Engine
	out     io.Writer
}

// execute runs one command line and reports whether the user asked to quit.
func (c *console) execute(line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "coin", "c":
		c.insertCoin(args)
	case "select", "s":
		c.selectItem(args)
	case "state":
		printSnapshot(c.out, c.machine.Snapshot())
	case "catalog", "items":
		printCatalog(c.out, c.machine.Catalog())
	case "pause":
		c.engine.Pause()
		fmt.Fprintln(c.out, "Paused.")
	case "continue", "resume":
		c.engine.Continue()
		fmt.Fprintln(c.out, "Continued.")
	case "help", "?":
		c.printHelp()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help')\n", cmd)
	}

	return false
}

func (c *console) insertCoin(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: coin <5|10>")
		return
	}

	coin, err := vending.ParseCoin(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	c.machine.PostInsertCoin(int(coin))
}

func (c *console) selectItem(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: select <item>")
		return
	}

	name := strings.Join(args, " ")
	if err := c.machine.PostSelectItem(name); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  coin <5|10>      Insert a coin")
	fmt.Fprintln(c.out, "  select <item>    Select an item by name")
	fmt.Fprintln(c.out, "  state            Show the machine state")
	fmt.Fprintln(c.out, "  catalog          List the items")
	fmt.Fprintln(c.out, "  pause            Pause the engine")
	fmt.Fprintln(c.out, "  continue         Resume the engine")
	fmt.Fprintln(c.out, "  help             Show this help")
	fmt.Fprintln(c.out, "  quit             Leave")
}
