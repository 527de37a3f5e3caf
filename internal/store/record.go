package store

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/roach88/qrecmetrics/internal/evaluator"
	"github.com/roach88/qrecmetrics/internal/metrics"
)

// DomainSessionMetrics prefixes row identity hashes. The version suffix
// allows a future change of identity inputs.
const DomainSessionMetrics = "qrecmetrics/session-metrics/v1"

// Record is one stored session result.
type Record struct {
	ID            string            `json:"id"`
	RunID         string            `json:"run_id"`
	Seq           int64             `json:"seq"`
	Session       string            `json:"session"`
	LogPath       string            `json:"log_path"`
	SchemaPath    string            `json:"schema_path"`
	FragmentModel string            `json:"fragment_model"`
	Metrics       metrics.Record    `json:"metrics"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// RunSummary describes one run in the store.
type RunSummary struct {
	RunID         string `json:"run_id"`
	FragmentModel string `json:"fragment_model"`
	Sessions      int    `json:"sessions"`
	Failed        int    `json:"failed"`
}

// metricColumns maps record keys to their columns, in column order.
var metricColumns = []struct {
	key    string
	column string
}{
	{metrics.TableCoverage, "table_coverage"},
	{metrics.ColumnCoverage, "column_coverage"},
	{metrics.AggregationCoverage, "aggregation_coverage"},
	{metrics.ClauseCoverage, "clause_coverage"},
	{metrics.EditIndex, "edit_index"},
	{metrics.JaccardIndex, "jaccard_index"},
	{metrics.CosineIndex, "cosine_index"},
	{metrics.CommonFragmentsIndex, "common_fragments_index"},
	{metrics.CommonTablesIndex, "common_tables_index"},
}

// RecordID computes the content-addressed ID of a session row:
// SHA256(domain + 0x00 + run_id + 0x00 + log_path). The null separators
// keep field boundaries unambiguous.
func RecordID(runID, logPath string) string {
	h := sha256.New()
	h.Write([]byte(DomainSessionMetrics))
	h.Write([]byte{0x00})
	h.Write([]byte(runID))
	h.Write([]byte{0x00})
	h.Write([]byte(logPath))
	return hex.EncodeToString(h.Sum(nil))
}

// FromResult converts an evaluation result into a storable record.
func FromResult(res evaluator.SessionResult) Record {
	rec := Record{
		ID:            RecordID(res.RunID, res.LogPath),
		RunID:         res.RunID,
		Seq:           int64(res.Seq),
		Session:       res.Name,
		LogPath:       res.LogPath,
		SchemaPath:    res.SchemaPath,
		FragmentModel: string(res.Model),
		Metrics:       metrics.Record{},
	}
	for k, v := range res.Record {
		rec.Metrics[k] = v
	}
	if len(res.Errors) > 0 {
		rec.Errors = make(map[string]string, len(res.Errors))
		for stage, err := range res.Errors {
			rec.Errors[stage] = err.Error()
		}
	}
	return rec
}
