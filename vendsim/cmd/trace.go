package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vendsim/datarecording"
	"github.com/sarchlab/vendsim/tracing"
)

type traceOptions struct {
	machine string
	runID   string
	limit   int
}

var traceCmd = &cobra.Command{
	Use:   "trace <recording>",
	Short: "Print the transitions stored in a recording.",
	Long: `Trace reads <recording>.sqlite3, as written with --record, and ` +
		`prints its transitions in time order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := traceOptions{}
		flags := cmd.Flags()
		opts.machine, _ = flags.GetString("machine")
		opts.runID, _ = flags.GetString("run")
		opts.limit, _ = flags.GetInt("limit")

		path := strings.TrimSuffix(args[0], ".sqlite3")

		reader, err := datarecording.NewReader(path)
		if err != nil {
			return err
		}
		defer reader.Close()

		return printTrace(cmd, reader, opts)
	},
}

func init() {
	flags := traceCmd.Flags()
	flags.String("machine", "", "only show this machine")
	flags.String("run", "", "only show this run ID")
	flags.Int("limit", 0, "show at most this many transitions")
	rootCmd.AddCommand(traceCmd)
}

func printTrace(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	opts traceOptions,
) error {
	reader.MapTable(transitionTable, tracing.TransitionRecord{})

	params := datarecording.QueryParams{
		OrderBy: "TimeMs, rowid",
		Limit:   opts.limit,
	}

	var where []string

	if opts.machine != "" {
		where = append(where, "Machine = ?")
		params.Args = append(params.Args, opts.machine)
	}

	if opts.runID != "" {
		where = append(where, "RunID = ?")
		params.Args = append(params.Args, opts.runID)
	}

	params.Where = strings.Join(where, " AND ")

	rows, total, err := reader.Query(cmd.Context(), transitionTable, params)
	if err != nil {
		return err
	}

	writeTrace(cmd.OutOrStdout(), rows)

	if len(rows) < total {
		fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d transitions)\n",
			len(rows), total)
	}

	return nil
}

func writeTrace(w io.Writer, rows []any) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME (ms)\tMACHINE\tFROM\tTO\tCAUSE\tCREDIT\tCHANGE\tSELECTED")

	for _, row := range rows {
		r := row.(*tracing.TransitionRecord)
		fmt.Fprintf(tw, "%.1f\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.TimeMs, r.Machine, r.FromState, r.ToState, r.Cause,
			r.Credit, r.Change, r.Selected)
	}

	tw.Flush()
}
