// Package cmd provides the command-line interface of vendsim.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vendsim/config"
	"github.com/sarchlab/vendsim/datarecording"
	"github.com/sarchlab/vendsim/logging"
	"github.com/sarchlab/vendsim/tracing"
	"github.com/sarchlab/vendsim/vending"
)

const transitionTable = "transitions"

// settings is what every subcommand needs, resolved from the environment and
// the persistent flags.
type settings struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog vending.Catalog
}

var current settings

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vendsim",
	Short: "vendsim simulates a coin-operated vending machine.",
	Long: `vendsim simulates a coin-operated vending machine. Machines accept ` +
		`5 and 10 coins, sell items from a catalog, and give change. Run one ` +
		`interactively, replay a script in virtual time, or inspect a recording.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("env-file", nil, "read settings from these .env files (default ./.env)")
	flags.String("catalog", "", "YAML catalog file (default: the built-in catalog)")
	flags.Duration("dispense-delay", vending.DefaultDispenseDelay, "time to dispense an item")
	flags.Duration("change-delay", vending.DefaultChangeDelay, "time to give change")
	flags.String("record", "", "record transitions into <record>.sqlite3")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	applyFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	current = settings{cfg: cfg, logger: logger, catalog: catalog}

	return nil
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("catalog") {
		cfg.CatalogFile, _ = flags.GetString("catalog")
	}

	if flags.Changed("dispense-delay") {
		cfg.DispenseDelay, _ = flags.GetDuration("dispense-delay")
	}

	if flags.Changed("change-delay") {
		cfg.ChangeDelay, _ = flags.GetDuration("change-delay")
	}

	if flags.Changed("record") {
		cfg.RecordPath, _ = flags.GetString("record")
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
}

// startRecording attaches a transition tracer to machine when recording is
// configured. The returned function flushes and closes the recording.
func startRecording(machine *vending.Controller) (func(), error) {
	if current.cfg.RecordPath == "" {
		return func() {}, nil
	}

	path := current.cfg.RecordPath
	if _, err := os.Stat(path + ".sqlite3"); err == nil {
		return nil, fmt.Errorf("recording %s.sqlite3 already exists", path)
	}

	recorder := datarecording.New(path)
	tracer := tracing.NewTransitionTracer(recorder, transitionTable)
	tracing.CollectTrace(machine, tracer)

	current.logger.Info("recording transitions",
		slog.String("file", path+".sqlite3"),
		slog.String("run_id", tracer.RunID()))

	return func() {
		if err := recorder.Close(); err != nil {
			current.logger.Error("closing recording failed", logging.Error(err))
		}
	}, nil
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%10.1f ms", float64(d)/float64(time.Millisecond))
}
