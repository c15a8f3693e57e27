package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/vendsim/vending"
)

func printCatalog(w io.Writer, catalog vending.Catalog) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRICE\tSTOCK\tSTATUS")

	for _, item := range catalog.Items() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n",
			item.Name, item.Price, item.Stock, item.Availability())
	}

	tw.Flush()
}

func printSnapshot(w io.Writer, s vending.Snapshot) {
	fmt.Fprintf(w, "State:    %s\n", s.State)
	fmt.Fprintf(w, "Credit:   %d\n", s.Credit)

	if s.Selected != nil {
		fmt.Fprintf(w, "Selected: %s (%d)\n", s.Selected.Name, s.Selected.Price)
	}

	if s.Change > 0 {
		fmt.Fprintf(w, "Change:   %d\n", s.Change)
	}

	if s.State == vending.OutOfStock {
		fmt.Fprintln(w, "The selected item is sold out.")
	}
}

func printTransition(w io.Writer, t vending.Transition) {
	fmt.Fprintf(w, "%s  %-22s -> %-22s %-13s credit=%d change=%d",
		formatMs(t.At), t.From, t.To, t.Cause, t.Credit, t.Change)

	if t.Selected != "" {
		fmt.Fprintf(w, " selected=%s", t.Selected)
	}

	fmt.Fprintln(w)
}

// transitionPrinter prints transitions as they happen.
type transitionPrinter struct {
	w io.Writer
}

func (p transitionPrinter) Transition(t vending.Transition) {
	printTransition(p.w, t)
}
