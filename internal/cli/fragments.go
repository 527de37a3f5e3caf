package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qrecmetrics/internal/fragment"
)

// FragmentsOptions holds flags specific to the fragments command.
type FragmentsOptions struct {
	Model string
	Clean bool
	Fold  bool
}

// FragmentsResult is the JSON payload of the fragments command.
type FragmentsResult struct {
	SQL       string               `json:"sql"`
	Model     fragment.Model       `json:"fragment_model"`
	Query     fragment.ParsedQuery `json:"query"`
	Fragments []string             `json:"fragments"`
}

// NewFragmentsCommand creates the fragments command.
func NewFragmentsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FragmentsOptions{}

	cmd := &cobra.Command{
		Use:   "fragments <sql>",
		Short: "Show the fragments extracted from one SQL statement",
		Long: `Show the fragments extracted from one SQL statement.

Prints every category and the fragment set the cohesion metrics compare
under the selected model. A statement that cannot be parsed yields empty
categories.`,
		Example: `  qrecmetrics fragments "SELECT city, COUNT(*) FROM customers GROUP BY city"
  qrecmetrics fragments --model selections "SELECT name FROM t WHERE a = 1 AND b > 2"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFragments(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Model, "model", "", "fragment model (clauses|selections)")
	cmd.Flags().BoolVar(&opts.Clean, "clean-sql", false, "normalize the statement before extraction")
	cmd.Flags().BoolVar(&opts.Fold, "fold-identifiers", false, "case-fold table and column names")

	return cmd
}

func runFragments(rootOpts *RootOptions, opts *FragmentsOptions, sql string, cmd *cobra.Command) error {
	s, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	flags := cmd.Flags()
	if flags.Changed("model") {
		s.cfg.FragmentModel = opts.Model
	}
	if flags.Changed("clean-sql") {
		s.cfg.CleanSQL = opts.Clean
	}
	if flags.Changed("fold-identifiers") {
		s.cfg.FoldIdentifiers = opts.Fold
	}
	model, err := fragment.ParseModel(s.cfg.FragmentModel)
	if err != nil {
		return commandError(s.formatter, ErrCodeInvalidArg, "invalid --model", err)
	}

	q := fragment.NewExtractor(s.cfg.ExtractorOptions(), s.logger).Extract(sql)
	result := FragmentsResult{
		SQL:       sql,
		Model:     model,
		Query:     q,
		Fragments: q.Fragments(model).Sorted(),
	}

	if s.formatter.JSON() {
		return s.formatter.Success(result)
	}

	w := s.formatter.Writer
	fmt.Fprintf(w, "Projections:  %s\n", joinSet(q.Projections))
	fmt.Fprintf(w, "Clauses:      %s\n", joinSet(q.Clauses))
	fmt.Fprintf(w, "Selections:   %s\n", joinSet(q.Selections))
	fmt.Fprintf(w, "Aggregations: %s\n", joinSet(q.Aggregations))
	fmt.Fprintf(w, "Tables:       %s\n", joinSet(q.Tables))
	fmt.Fprintf(w, "Fragments (%s): %d\n", model, len(result.Fragments))
	return nil
}

func joinSet(s fragment.Set) string {
	if s.Len() == 0 {
		return "-"
	}
	return strings.Join(s.Sorted(), ", ")
}
