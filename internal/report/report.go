// Package report renders a session's metrics as a fixed-width text file.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/qrecmetrics/internal/metrics"
)

// Title heads every report.
const Title = "Comprehensive Objective Metrics Evaluation Results"

// NoResults is written instead of the sections for an empty record.
const NoResults = "No evaluation results were generated."

var rule = strings.Repeat("=", 60)

// Write renders r to w. Only keys present in r are listed, so a failed
// evaluator leaves its section header with no lines under it.
func Write(w io.Writer, r metrics.Record) error {
	bw := bufio.NewWriter(w)
	if len(r) == 0 {
		fmt.Fprintln(bw, NoResults)
		return bw.Flush()
	}

	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, strings.Repeat(" ", 10)+Title)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "--- Coverage Metrics ---")
	writeSection(bw, r, metrics.CoverageKeys)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "--- Session Cohesion Metrics ---")
	writeSection(bw, r, metrics.CohesionKeys)

	fmt.Fprintln(bw, rule)
	return bw.Flush()
}

func writeSection(w io.Writer, r metrics.Record, keys []string) {
	for _, k := range keys {
		if v, ok := r.Get(k); ok {
			fmt.Fprintf(w, "%-35s: %.4f\n", k, v)
		}
	}
}

// WriteFile writes the report for r to <dir>/<stem>.txt, creating dir if
// needed, and returns the file path.
func WriteFile(dir, stem string, r metrics.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, stem+".txt")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report %s: %w", path, err)
	}
	return path, nil
}

// Stem returns the report name for a session log path: its base name
// without extension.
func Stem(logPath string) string {
	base := filepath.Base(logPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
