package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qrecmetrics/internal/evaluator"
	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/report"
	"github.com/roach88/qrecmetrics/internal/store"
)

// evalFlags are the flags shared by evaluate and batch.
type evalFlags struct {
	schema string
	out    string
	db     string
	model  string
	clean  bool
	fold   bool
}

func addEvalFlags(cmd *cobra.Command, f *evalFlags) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema DDL file (overrides schema_dir resolution)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "report directory (default from config: results)")
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite record store path")
	cmd.Flags().StringVar(&f.model, "model", "", "cohesion fragment model (clauses|selections)")
	cmd.Flags().BoolVar(&f.clean, "clean-sql", false, "normalize generated SQL before extraction")
	cmd.Flags().BoolVar(&f.fold, "fold-identifiers", false, "case-fold table and column names")
}

// apply overrides configuration with the flags the user set.
func (f *evalFlags) apply(cmd *cobra.Command, s *session) error {
	flags := cmd.Flags()
	if flags.Changed("out") {
		s.cfg.OutputDir = f.out
	}
	if flags.Changed("db") {
		s.cfg.Database = f.db
	}
	if flags.Changed("model") {
		s.cfg.FragmentModel = f.model
	}
	if flags.Changed("clean-sql") {
		s.cfg.CleanSQL = f.clean
	}
	if flags.Changed("fold-identifiers") {
		s.cfg.FoldIdentifiers = f.fold
	}
	if _, err := fragment.ParseModel(s.cfg.FragmentModel); err != nil {
		return commandError(s.formatter, ErrCodeInvalidArg, "invalid --model", err)
	}
	return nil
}

// newEvaluator builds an Evaluator from configuration. The returned closer
// releases the record store, if one was opened.
func newEvaluator(s *session, opts evaluator.Options) (*evaluator.Evaluator, func(), error) {
	opts.Model = s.cfg.Model()
	if opts.Workers == 0 {
		opts.Workers = s.cfg.Workers
	}
	opts.OutputDir = s.cfg.OutputDir

	closer := func() {}
	var sink evaluator.Sink
	if s.cfg.Database != "" {
		st, err := store.Open(s.cfg.Database)
		if err != nil {
			return nil, nil, commandError(s.formatter, ErrCodeStore, "failed to open record store", err)
		}
		sink = st
		closer = func() { st.Close() }
	}

	extractor := fragment.NewExtractor(s.cfg.ExtractorOptions(), s.logger)
	return evaluator.New(opts, extractor, sink, s.logger), closer, nil
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate <session-log>",
		Short: "Evaluate one session log",
		Long: `Evaluate one recorded session against its database schema.

Writes <out>/<log-name>.txt and prints the metrics. Without --schema the
schema is resolved as <schema_dir>/<db_id>/schema.sql from configuration
and the log's metadata.db_id.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), rootOpts, flags, args[0], cmd)
		},
	}
	addEvalFlags(cmd, flags)

	return cmd
}

func runEvaluate(ctx context.Context, opts *RootOptions, flags *evalFlags, logPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	if err := flags.apply(cmd, s); err != nil {
		return err
	}
	if _, err := os.Stat(logPath); err != nil {
		return commandError(s.formatter, ErrCodeNotFound, fmt.Sprintf("session log not found: %s", logPath), nil)
	}

	ev, closeStore, err := newEvaluator(s, evaluator.Options{
		SchemaDir:   s.cfg.SchemaDir,
		DefaultDBID: s.cfg.DefaultDBID,
	})
	if err != nil {
		return err
	}
	defer closeStore()

	s.formatter.VerboseLog("Run %s: evaluating %s", ev.RunID(), logPath)
	res := ev.EvaluateSession(ctx, logPath, flags.schema)

	if res.Failed() {
		return outputSessionFailure(s.formatter, res)
	}
	if s.formatter.JSON() {
		return s.formatter.Success(res)
	}
	if err := report.Write(s.formatter.Writer, res.Record); err != nil {
		return err
	}
	if res.ReportPath != "" {
		fmt.Fprintf(s.formatter.Writer, "Report written to %s\n", res.ReportPath)
	}
	return nil
}

func outputSessionFailure(f *OutputFormatter, res evaluator.SessionResult) error {
	msg := fmt.Sprintf("session %s failed: %s", res.Name, strings.Join(res.Errors.Stages(), ", "))
	if f.JSON() {
		_ = f.Failure(ErrCodeSessionFailed, msg, res)
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintf(f.Writer, "✗ %s\n", msg)
	for _, stage := range res.Errors.Stages() {
		fmt.Fprintf(f.Writer, "  %s: %v\n", stage, res.Errors[stage])
	}
	if len(res.Record) > 0 {
		fmt.Fprintln(f.Writer)
		_ = report.Write(f.Writer, res.Record)
	}
	return NewExitError(ExitFailure, msg)
}
