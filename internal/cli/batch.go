package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/roach88/qrecmetrics/internal/evaluator"
	"github.com/roach88/qrecmetrics/internal/metrics"
)

// BatchOptions holds flags specific to the batch command.
type BatchOptions struct {
	SchemaDir string
	DBID      string
	Workers   int
	Filter    string
}

// BatchSummary is the JSON payload of the batch command.
type BatchSummary struct {
	RunID    string                    `json:"run_id"`
	Total    int                       `json:"total"`
	Passed   int                       `json:"passed"`
	Failed   int                       `json:"failed"`
	Sessions []evaluator.SessionResult `json:"sessions"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &evalFlags{}
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <log-dir>",
		Short: "Evaluate every session log in a directory",
		Long: `Evaluate every session log in a directory concurrently.

Logs are matched with --filter and evaluated in name order. Each session
gets its own report file; one failing session never stops the others.
--schema (one schema for every log) and --schema-dir (per-log schema from
metadata.db_id) are mutually exclusive. Exits 1 when any session failed.`,
		Example: `  # Evaluate a directory of logs against a Spider-style schema tree
  qrecmetrics batch logs/ --schema-dir spider/database

  # One shared schema, eight workers, results recorded in SQLite
  qrecmetrics batch logs/ --schema schema.sql --workers 8 --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), rootOpts, flags, opts, args[0], cmd)
		},
	}
	addEvalFlags(cmd, flags)
	cmd.Flags().StringVar(&opts.SchemaDir, "schema-dir", "", "base directory of <db_id>/schema.sql files")
	cmd.Flags().StringVar(&opts.DBID, "db-id", "", "database id for logs whose metadata names none")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "sessions evaluated concurrently (default from config: 4)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "*.json", "glob selecting log files in the directory")
	cmd.MarkFlagsMutuallyExclusive("schema", "schema-dir")

	return cmd
}

func runBatch(ctx context.Context, rootOpts *RootOptions, flags *evalFlags, opts *BatchOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	if err := flags.apply(cmd, s); err != nil {
		return err
	}
	if cmd.Flags().Changed("schema-dir") {
		s.cfg.SchemaDir = opts.SchemaDir
	}
	if cmd.Flags().Changed("db-id") {
		s.cfg.DefaultDBID = opts.DBID
	}
	if opts.Workers < 0 {
		return commandError(s.formatter, ErrCodeInvalidArg, "--workers must be at least 1", nil)
	}

	logs, err := findLogs(dir, opts.Filter)
	if err != nil {
		return commandError(s.formatter, ErrCodeNotFound, fmt.Sprintf("cannot read log directory %s", dir), err)
	}
	if len(logs) == 0 {
		return commandError(s.formatter, ErrCodeNotFound, fmt.Sprintf("no logs matching %q in %s", opts.Filter, dir), nil)
	}

	ev, closeStore, err := newEvaluator(s, evaluator.Options{
		Workers:     opts.Workers,
		SchemaDir:   s.cfg.SchemaDir,
		DefaultDBID: s.cfg.DefaultDBID,
	})
	if err != nil {
		return err
	}
	defer closeStore()

	jobs := make([]evaluator.Job, len(logs))
	for i, path := range logs {
		jobs[i] = evaluator.Job{LogPath: path, SchemaPath: flags.schema}
	}

	s.formatter.VerboseLog("Run %s: %d sessions", ev.RunID(), len(jobs))
	results := ev.EvaluateBatchProgress(ctx, jobs, func(completed, total int, res evaluator.SessionResult) {
		s.formatter.VerboseLog("[%d/%d] %s", completed, total, res.Name)
	})

	summary := BatchSummary{RunID: ev.RunID(), Total: len(results), Sessions: results}
	for _, r := range results {
		if r.Failed() {
			summary.Failed++
		} else {
			summary.Passed++
		}
	}

	if s.formatter.JSON() {
		if summary.Failed > 0 {
			msg := fmt.Sprintf("%d of %d sessions failed", summary.Failed, summary.Total)
			_ = s.formatter.Failure(ErrCodeBatchFailed, msg, summary)
			return NewExitError(ExitFailure, msg)
		}
		return s.formatter.Success(summary)
	}

	outputBatchText(s.formatter.Writer, summary)
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d sessions failed", summary.Failed, summary.Total))
	}
	return nil
}

// findLogs returns the regular files in dir matching pattern, sorted by name.
func findLogs(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	logs := matches[:0]
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			logs = append(logs, m)
		}
	}
	sort.Strings(logs)
	return logs, nil
}

func outputBatchText(w io.Writer, summary BatchSummary) {
	for _, r := range summary.Sessions {
		if r.Failed() {
			fmt.Fprintf(w, "✗ %s (failed: %v)\n", r.Name, r.Errors.Stages())
			for _, stage := range r.Errors.Stages() {
				fmt.Fprintf(w, "    %s: %v\n", stage, r.Errors[stage])
			}
			continue
		}
		fmt.Fprintf(w, "✓ %s", r.Name)
		if r.ReportPath != "" {
			fmt.Fprintf(w, " -> %s", r.ReportPath)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	body := fmt.Sprintf("Run:      %s\nSessions: %d\nPassed:   %d\nFailed:   %d",
		summary.RunID, summary.Total, summary.Passed, summary.Failed)
	if means := meanRecord(summary.Sessions); len(means) > 0 {
		body += "\n"
		for _, k := range means.Keys() {
			body += fmt.Sprintf("\n%-24s %.4f", k, means[k])
		}
	}
	title := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Batch Summary")
	fmt.Fprintln(w, pterm.DefaultBox.WithTitle(title).WithTopPadding(1).WithBottomPadding(1).WithLeftPadding(1).WithRightPadding(1).Sprint(body))
}

// meanRecord averages each metric over the sessions that produced it.
func meanRecord(results []evaluator.SessionResult) metrics.Record {
	sums := metrics.Record{}
	counts := map[string]int{}
	for _, r := range results {
		for k, v := range r.Record {
			sums[k] += v
			counts[k]++
		}
	}
	for k := range sums {
		sums[k] /= float64(counts[k])
	}
	return sums
}
