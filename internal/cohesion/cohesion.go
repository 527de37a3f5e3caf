// Package cohesion scores how closely each chosen query in a session
// follows the one before it.
//
// Every index is computed for each adjacent pair of queries and the session
// value is the mean over pairs. All indices lie in [0, 1].
package cohesion

import (
	"math"

	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/metrics"
)

// NormalizationBudget is the fragment count K that saturates the edit and
// common-fragment indices.
const NormalizationBudget = 10

// Pair holds the five indices of one adjacent query pair.
type Pair struct {
	Edit            float64 `json:"edit"`
	Jaccard         float64 `json:"jaccard"`
	Cosine          float64 `json:"cosine"`
	CommonFragments float64 `json:"common_fragments"`
	CommonTables    float64 `json:"common_tables"`
}

// Compare scores curr against prev. maxTables is the largest table-set size
// in the session and divides the common-table count.
func Compare(prev, curr fragment.ParsedQuery, m fragment.Model, maxTables int) Pair {
	pc, cc := prev.Categories(m), curr.Categories(m)

	added, removed, common := 0, 0, 0
	var pv, cv [4]float64
	for i := range pc {
		added += cc[i].Difference(pc[i]).Len()
		removed += pc[i].Difference(cc[i]).Len()
		common += cc[i].Intersect(pc[i]).Len()
		pv[i] = float64(pc[i].Len())
		cv[i] = float64(cc[i].Len())
	}

	var p Pair
	p.Edit = math.Max(0, 1-float64(added+removed)/NormalizationBudget)
	p.Jaccard = jaccard(prev.Fragments(m), curr.Fragments(m))
	p.Cosine = cosine(pv, cv)
	p.CommonFragments = math.Min(1, float64(common)/NormalizationBudget)
	if maxTables > 0 {
		p.CommonTables = float64(curr.Tables.Intersect(prev.Tables).Len()) / float64(maxTables)
	}
	return p
}

// MaxTables returns the largest table-set size among queries, or 1 when no
// query references a table.
func MaxTables(queries []fragment.ParsedQuery) int {
	maxTables := 0
	for _, q := range queries {
		if n := q.Tables.Len(); n > maxTables {
			maxTables = n
		}
	}
	if maxTables == 0 {
		return 1
	}
	return maxTables
}

// Pairs scores every adjacent pair in order. Fewer than two queries yield
// no pairs.
func Pairs(queries []fragment.ParsedQuery, m fragment.Model) []Pair {
	if len(queries) < 2 {
		return nil
	}
	maxTables := MaxTables(queries)
	out := make([]Pair, 0, len(queries)-1)
	for i := 1; i < len(queries); i++ {
		out = append(out, Compare(queries[i-1], queries[i], m, maxTables))
	}
	return out
}

// Evaluate returns the five session indices. A session with fewer than two
// chosen queries scores 0 on every index.
func Evaluate(queries []fragment.ParsedQuery, m fragment.Model) metrics.Record {
	pairs := Pairs(queries, m)

	var sum Pair
	for _, p := range pairs {
		sum.Edit += p.Edit
		sum.Jaccard += p.Jaccard
		sum.Cosine += p.Cosine
		sum.CommonFragments += p.CommonFragments
		sum.CommonTables += p.CommonTables
	}
	mean := func(total float64) float64 {
		if len(pairs) == 0 {
			return 0
		}
		return total / float64(len(pairs))
	}

	return metrics.Record{
		metrics.EditIndex:            mean(sum.Edit),
		metrics.JaccardIndex:         mean(sum.Jaccard),
		metrics.CosineIndex:          mean(sum.Cosine),
		metrics.CommonFragmentsIndex: mean(sum.CommonFragments),
		metrics.CommonTablesIndex:    mean(sum.CommonTables),
	}
}

func jaccard(a, b fragment.Set) float64 {
	union := a.Union(b).Len()
	if union == 0 {
		return 0
	}
	return float64(a.Intersect(b).Len()) / float64(union)
}

// cosine compares category-size vectors. Two zero vectors are identical;
// exactly one zero vector shares nothing.
func cosine(a, b [4]float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	switch {
	case na == 0 && nb == 0:
		return 1
	case na == 0 || nb == 0:
		return 0
	}
	return math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
