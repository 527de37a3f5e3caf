package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/roach88/qrecmetrics/internal/metrics"
	"github.com/roach88/qrecmetrics/internal/store"
)

// RecordsOptions holds flags specific to the records command.
type RecordsOptions struct {
	DB    string
	RunID string
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored evaluation runs and their session records",
		Long: `List stored evaluation runs, or the session records of one run.

Without --run every run in the store is summarized. With --run the run's
sessions are listed in evaluation order.`,
		Example: `  qrecmetrics records --db runs.db
  qrecmetrics records --db runs.db --run 0192f3c1-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite record store path (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "list the sessions of this run")

	return cmd
}

func runRecords(ctx context.Context, rootOpts *RootOptions, opts *RecordsOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	path := s.cfg.Database
	if cmd.Flags().Changed("db") {
		path = opts.DB
	}
	if path == "" {
		return commandError(s.formatter, ErrCodeInvalidArg, "--db is required when no database is configured", nil)
	}
	// Opening a missing file would create an empty store.
	if _, err := os.Stat(path); err != nil {
		return commandError(s.formatter, ErrCodeNotFound, fmt.Sprintf("record store not found: %s", path), nil)
	}

	st, err := store.Open(path)
	if err != nil {
		return commandError(s.formatter, ErrCodeStore, "failed to open record store", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return commandError(s.formatter, ErrCodeStore, "failed to list runs", err)
		}
		if s.formatter.JSON() {
			return s.formatter.Success(runs)
		}
		return outputRunsTable(s.formatter, runs)
	}

	recs, err := st.ListRun(ctx, opts.RunID)
	if err != nil {
		return commandError(s.formatter, ErrCodeStore, "failed to list run", err)
	}
	if len(recs) == 0 {
		return commandError(s.formatter, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if s.formatter.JSON() {
		return s.formatter.Success(recs)
	}
	return outputRecordsTable(s.formatter, recs)
}

func outputRunsTable(f *OutputFormatter, runs []store.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	data := pterm.TableData{{"RUN", "MODEL", "SESSIONS", "FAILED"}}
	for _, r := range runs {
		data = append(data, []string{r.RunID, r.FragmentModel, strconv.Itoa(r.Sessions), strconv.Itoa(r.Failed)})
	}
	return renderTable(f, data)
}

func outputRecordsTable(f *OutputFormatter, recs []store.Record) error {
	header := []string{"SEQ", "SESSION"}
	header = append(header, metrics.AllKeys()...)
	header = append(header, "ERRORS")

	data := pterm.TableData{header}
	for _, r := range recs {
		row := []string{strconv.FormatInt(r.Seq, 10), r.Session}
		for _, k := range metrics.AllKeys() {
			if v, ok := r.Metrics[k]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
			} else {
				row = append(row, "-")
			}
		}
		row = append(row, strconv.Itoa(len(r.Errors)))
		data = append(data, row)
	}
	return renderTable(f, data)
}

func renderTable(f *OutputFormatter, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(f.Writer, out)
	return nil
}
