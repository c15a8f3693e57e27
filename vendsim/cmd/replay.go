package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vendsim/script"
	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/tracing"
	"github.com/sarchlab/vendsim/vending"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Replay a script of coins and selections in virtual time.",
	Long: `Replay runs the steps of a YAML script against a fresh machine on ` +
		`a serial engine, so the result does not depend on wall-clock time. ` +
		`It prints every transition, the final state, and the time spent in ` +
		`each state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := script.LoadFile(args[0])
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")

		return replay(cmd.OutOrStdout(), s, name)
	},
}

func init() {
	replayCmd.Flags().String("name", "VM", "name of the simulated machine")
	rootCmd.AddCommand(replayCmd)
}

func replay(out io.Writer, s *script.Script, name string) error {
	engine := timing.NewSerialEngine()
	machine := current.cfg.Builder(engine, current.catalog).Build(name)

	logHook := tracing.NewLogHook(current.logger)
	engine.AcceptHook(logHook)
	machine.AcceptHook(logHook)

	stateTimes := tracing.NewStateTimeTracer()
	tracing.CollectTrace(machine, stateTimes)
	causes := tracing.NewCauseCountTracer(nil)
	tracing.CollectTrace(machine, causes)
	tracing.CollectTrace(machine, transitionPrinter{w: out})

	stopRecording, err := startRecording(machine)
	if err != nil {
		return err
	}
	defer stopRecording()

	if err := s.Schedule(engine, machine); err != nil {
		return err
	}

	if err := engine.Run(); err != nil {
		return err
	}

	now := engine.CurrentTime()
	stateTimes.TerminateAll(now)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Finished at %s\n", formatMs(machine.Freq().Duration(now)))
	printSnapshot(out, machine.Snapshot())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Time in state:")

	for _, st := range vending.MachineStates() {
		spent := stateTimes.TimeIn(name, st)
		if spent == 0 {
			continue
		}

		fmt.Fprintf(out, "  %-22s %s\n", st, formatMs(machine.Freq().Duration(spent)))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Transitions by cause:")

	for _, cause := range causes.Causes() {
		fmt.Fprintf(out, "  %-22s %d\n", cause, causes.Count(cause))
	}

	return nil
}
