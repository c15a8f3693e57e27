package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/chzyer/readline"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/vendsim/logging"
	"github.com/sarchlab/vendsim/monitoring"
	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/tracing"
	"github.com/sarchlab/vendsim/vending"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Operate a machine interactively in real time.",
	Long: `Run starts a machine on a real-time engine and reads commands from ` +
		`the terminal. With --monitor, the machine can also be watched and ` +
		`operated from a browser.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := runOptions{}
		flags := cmd.Flags()
		opts.name, _ = flags.GetString("name")
		opts.monitor, _ = flags.GetBool("monitor")
		opts.openBrowser, _ = flags.GetBool("open")

		opts.port = current.cfg.MonitorPort
		if flags.Changed("monitor-port") {
			opts.port, _ = flags.GetInt("monitor-port")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runInteractive(ctx, opts)
	},
}

type runOptions struct {
	name        string
	monitor     bool
	port        int
	openBrowser bool
}

func init() {
	flags := runCmd.Flags()
	flags.String("name", "VM", "name of the machine")
	flags.Bool("monitor", false, "serve the web monitor")
	flags.Int("monitor-port", 0, "port of the web monitor (default: random)")
	flags.Bool("open", false, "open the web monitor in a browser")
	rootCmd.AddCommand(runCmd)
}

func runInteractive(ctx context.Context, opts runOptions) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vendsim> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("starting console: %w", err)
	}
	defer rl.Close()

	engine := timing.NewRealTimeEngine(current.cfg.Freq())
	machine := current.cfg.Builder(engine, current.catalog).Build(opts.name)

	logHook := tracing.NewLogHook(current.logger)
	engine.AcceptHook(logHook)
	machine.AcceptHook(logHook)
	tracing.CollectTrace(machine, transitionPrinter{w: rl.Stdout()})

	stopRecording, err := startRecording(machine)
	if err != nil {
		return err
	}
	defer stopRecording()

	engine.Start(ctx)
	defer engine.Stop()
	defer machine.Close()

	if opts.monitor {
		shutdown, err := startMonitor(rl.Stdout(), engine, machine, opts)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	c := &console{machine: machine, engine: engine, out: rl.Stdout()}
	fmt.Fprintf(rl.Stdout(), "Machine %s is ready. Type 'help' for commands.\n",
		machine.Name())

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if err != nil {
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return nil
		}

		if c.execute(line) {
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return nil
		}
	}
}

func startMonitor(
	out io.Writer,
	engine timing.Engine,
	machine *vending.Controller,
	opts runOptions,
) (func(), error) {
	m := newMonitor(engine, machine, opts.port)

	url, err := m.StartServer()
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Monitoring at %s\n", url)

	if opts.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			current.logger.Warn("cannot open browser",
				slog.String("url", url), logging.Error(err))
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.Shutdown(ctx); err != nil {
			current.logger.Error("stopping monitor failed", logging.Error(err))
		}
	}, nil
}

// newMonitor sets the logger first so the port checks can warn through it.
func newMonitor(
	engine timing.Engine,
	machine *vending.Controller,
	port int,
) *monitoring.Monitor {
	m := monitoring.NewMonitor().
		WithLogger(current.logger).
		WithFreq(current.cfg.Freq()).
		WithPortNumber(port)
	m.RegisterEngine(engine)
	m.RegisterMachine(machine)

	return m
}
