// Package metrics defines the flat record that carries a session's scores.
package metrics

import (
	"fmt"
	"sort"
)

// Coverage keys.
const (
	TableCoverage       = "Table Coverage"
	ColumnCoverage      = "Column Coverage"
	AggregationCoverage = "Aggregation Coverage"
	ClauseCoverage      = "Clause Coverage"
)

// Cohesion keys.
const (
	EditIndex            = "Edit Index"
	JaccardIndex         = "Jaccard Index"
	CosineIndex          = "Cosine Index"
	CommonFragmentsIndex = "Common Fragments Index"
	CommonTablesIndex    = "Common Tables Index"
)

// CoverageKeys lists the coverage keys in report order.
var CoverageKeys = []string{TableCoverage, ColumnCoverage, AggregationCoverage, ClauseCoverage}

// CohesionKeys lists the cohesion keys in report order.
var CohesionKeys = []string{EditIndex, JaccardIndex, CosineIndex, CommonFragmentsIndex, CommonTablesIndex}

// AllKeys returns every key in report order.
func AllKeys() []string {
	keys := make([]string, 0, len(CoverageKeys)+len(CohesionKeys))
	keys = append(keys, CoverageKeys...)
	return append(keys, CohesionKeys...)
}

// Record maps metric names to values. A key is absent when the evaluator
// that produces it did not run to completion.
type Record map[string]float64

// Merge copies every entry of o into r. Evaluators own disjoint key sets, so
// a key present in both is a programming error and is reported without
// modifying r.
func (r Record) Merge(o Record) error {
	for k := range o {
		if _, ok := r[k]; ok {
			return fmt.Errorf("metric %q produced twice", k)
		}
	}
	for k, v := range o {
		r[k] = v
	}
	return nil
}

// Get returns the value of key and whether it is present.
func (r Record) Get(key string) (float64, bool) {
	v, ok := r[key]
	return v, ok
}

// Has reports whether every key is present.
func (r Record) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r[k]; !ok {
			return false
		}
	}
	return true
}

// Keys returns the present keys, known keys first in report order followed
// by any others sorted.
func (r Record) Keys() []string {
	var keys []string
	known := make(map[string]bool)
	for _, k := range AllKeys() {
		known[k] = true
		if _, ok := r[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range r {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}
