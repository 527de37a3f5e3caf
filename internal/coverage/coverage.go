// Package coverage measures how much of a schema and of the operator
// vocabulary a session's recommendations exposed.
package coverage

import (
	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/metrics"
	"github.com/roach88/qrecmetrics/internal/schema"
)

// AggregationVocabulary is the denominator of Aggregation Coverage.
var AggregationVocabulary = fragment.NewSet(fragment.AggregationOps...)

// ClauseVocabulary is the denominator of Clause Coverage. It is a subset of
// fragment.ClauseKeywords, so the ratio cannot exceed 1.
var ClauseVocabulary = fragment.NewSet("GROUP BY", "ORDER BY", "JOIN")

// Accumulator keeps the running union of everything recommended so far.
// Adding queries can only grow it.
type Accumulator struct {
	Tables       fragment.Set
	Columns      fragment.Set
	Aggregations fragment.Set
	Clauses      fragment.Set
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Tables:       fragment.NewSet(),
		Columns:      fragment.NewSet(),
		Aggregations: fragment.NewSet(),
		Clauses:      fragment.NewSet(),
	}
}

// Add folds the fragments of each query into the running union.
func (a *Accumulator) Add(queries ...fragment.ParsedQuery) {
	for _, q := range queries {
		a.Tables.AddAll(q.Tables)
		a.Columns.AddAll(q.Projections)
		a.Aggregations.AddAll(q.Aggregations)
		a.Clauses.AddAll(q.Clauses)
	}
}

// Ratios returns the four coverage ratios against s. A schema without tables
// or columns gives 0 for the matching ratio.
func (a *Accumulator) Ratios(s schema.Schema) metrics.Record {
	return metrics.Record{
		metrics.TableCoverage:       ratio(a.Tables.Len(), s.Tables.Len()),
		metrics.ColumnCoverage:      ratio(a.Columns.Len(), s.Columns.Len()),
		metrics.AggregationCoverage: ratio(a.Aggregations.Intersect(AggregationVocabulary).Len(), AggregationVocabulary.Len()),
		metrics.ClauseCoverage:      ratio(a.Clauses.Intersect(ClauseVocabulary).Len(), ClauseVocabulary.Len()),
	}
}

// Evaluate unions every recommended query of every turn, turn 0 included,
// and returns the coverage ratios.
func Evaluate(turns [][]fragment.ParsedQuery, s schema.Schema) metrics.Record {
	acc := NewAccumulator()
	for _, turn := range turns {
		acc.Add(turn...)
	}
	return acc.Ratios(s)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
