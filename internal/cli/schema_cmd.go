package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/schema"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Path    string   `json:"path"`
	Tables  []string `json:"tables"`
	Columns []string `json:"columns"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var fold bool

	cmd := &cobra.Command{
		Use:   "schema <schema.sql>",
		Short: "Show the tables and columns parsed from a DDL file",
		Long: `Show the tables and columns parsed from a DDL file.

These are the denominators of the table and column coverage metrics.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, fold, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&fold, "fold-identifiers", false, "case-fold table and column names")

	return cmd
}

func runSchema(rootOpts *RootOptions, fold bool, path string, cmd *cobra.Command) error {
	s, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		return commandError(s.formatter, ErrCodeNotFound, fmt.Sprintf("cannot read schema %s", path), err)
	}
	if cmd.Flags().Changed("fold-identifiers") {
		s.cfg.FoldIdentifiers = fold
	}

	sch := schema.Parse(string(data)).Normalize(fragment.Normalizer{Fold: s.cfg.FoldIdentifiers})
	result := SchemaResult{
		Path:    path,
		Tables:  sch.Tables.Sorted(),
		Columns: sch.Columns.Sorted(),
	}

	if s.formatter.JSON() {
		return s.formatter.Success(result)
	}

	w := s.formatter.Writer
	fmt.Fprintf(w, "Tables (%d):  %s\n", len(result.Tables), joinSet(sch.Tables))
	fmt.Fprintf(w, "Columns (%d): %s\n", len(result.Columns), joinSet(sch.Columns))
	return nil
}
