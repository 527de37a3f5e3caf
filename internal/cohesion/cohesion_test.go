package cohesion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/metrics"
)

func parse(sqls ...string) []fragment.ParsedQuery {
	return fragment.NewExtractor(fragment.Options{}, nil).ExtractAll(sqls)
}

func TestEvaluate_FewerThanTwoQueries(t *testing.T) {
	for _, qs := range [][]fragment.ParsedQuery{nil, parse("SELECT name FROM users")} {
		r := Evaluate(qs, fragment.ModelClauses)
		require.True(t, r.Has(metrics.CohesionKeys...))
		for _, k := range metrics.CohesionKeys {
			assert.Equal(t, 0.0, r[k], k)
		}
	}
}

func TestEvaluate_IdenticalQueries(t *testing.T) {
	qs := parse(
		"SELECT name FROM users JOIN orders ON users.id = orders.user_id",
		"SELECT name FROM users JOIN orders ON users.id = orders.user_id",
	)

	r := Evaluate(qs, fragment.ModelClauses)

	assert.Equal(t, 1.0, r[metrics.EditIndex])
	assert.Equal(t, 1.0, r[metrics.JaccardIndex])
	assert.InDelta(t, 1.0, r[metrics.CosineIndex], 1e-12)
	// Own table count (2) over the session maximum (2).
	assert.Equal(t, 1.0, r[metrics.CommonTablesIndex])
}

func TestEvaluate_AddedPredicate(t *testing.T) {
	qs := parse("SELECT name FROM users", "SELECT name FROM users WHERE id = 1")

	for _, m := range []fragment.Model{fragment.ModelClauses, fragment.ModelSelections} {
		t.Run(string(m), func(t *testing.T) {
			r := Evaluate(qs, m)
			assert.Greater(t, r[metrics.JaccardIndex], 0.0)
			assert.Less(t, r[metrics.JaccardIndex], 1.0)
			assert.Equal(t, 1.0, r[metrics.CommonTablesIndex])
		})
	}

	// Clauses model: {name, users} vs {name, id, users}.
	r := Evaluate(qs, fragment.ModelClauses)
	assert.InDelta(t, 2.0/3.0, r[metrics.JaccardIndex], 1e-12)
	assert.InDelta(t, 0.9, r[metrics.EditIndex], 1e-12)
	assert.InDelta(t, 0.2, r[metrics.CommonFragmentsIndex], 1e-12)

	// Selections model adds "id = 1" as a fourth fragment.
	r = Evaluate(qs, fragment.ModelSelections)
	assert.InDelta(t, 2.0/4.0, r[metrics.JaccardIndex], 1e-12)
	assert.InDelta(t, 0.8, r[metrics.EditIndex], 1e-12)
}

func TestEvaluate_DisjointQueries(t *testing.T) {
	qs := parse("SELECT name FROM users", "SELECT total FROM orders")

	r := Evaluate(qs, fragment.ModelClauses)

	assert.Equal(t, 0.0, r[metrics.JaccardIndex])
	assert.Equal(t, 0.0, r[metrics.CommonTablesIndex])
	assert.Equal(t, 0.0, r[metrics.CommonFragmentsIndex])
	assert.InDelta(t, 0.6, r[metrics.EditIndex], 1e-12)
	// Same shape: one projection and one table each.
	assert.InDelta(t, 1.0, r[metrics.CosineIndex], 1e-12)
}

func TestEvaluate_EmptyTurns(t *testing.T) {
	qs := parse("", "", "SELECT a FROM t")

	pairs := Pairs(qs, fragment.ModelClauses)

	require.Len(t, pairs, 2)
	assert.Equal(t, 1.0, pairs[0].Cosine, "two empty queries are identical")
	assert.Equal(t, 0.0, pairs[0].Jaccard, "empty union")
	assert.Equal(t, 0.0, pairs[1].Cosine, "exactly one zero vector")
}

func TestEvaluate_EditClampedAtZero(t *testing.T) {
	qs := parse(
		"SELECT a, b, c, d, e, f FROM t1 JOIN t2 ON t1.x = t2.y",
		"SELECT COUNT(g), h, i FROM t3 GROUP BY h ORDER BY i",
	)

	r := Evaluate(qs, fragment.ModelClauses)

	assert.Equal(t, 0.0, r[metrics.EditIndex])
}

func TestEvaluate_MeanOverPairs(t *testing.T) {
	qs := parse("SELECT a FROM t", "SELECT a FROM t", "SELECT b FROM u")

	pairs := Pairs(qs, fragment.ModelClauses)
	r := Evaluate(qs, fragment.ModelClauses)

	require.Len(t, pairs, 2)
	assert.InDelta(t, (pairs[0].Jaccard+pairs[1].Jaccard)/2, r[metrics.JaccardIndex], 1e-12)
	assert.InDelta(t, (pairs[0].Edit+pairs[1].Edit)/2, r[metrics.EditIndex], 1e-12)
}

func TestCompare_CosineSymmetric(t *testing.T) {
	qs := parse(
		"SELECT a, b, COUNT(c) FROM t GROUP BY a, b",
		"SELECT x FROM u JOIN v ON u.id = v.id ORDER BY x LIMIT 3",
		"",
		"SELECT * FROM w",
	)
	for i := range qs {
		for j := range qs {
			ab := Compare(qs[i], qs[j], fragment.ModelClauses, 3)
			ba := Compare(qs[j], qs[i], fragment.ModelClauses, 3)
			assert.InDelta(t, ab.Cosine, ba.Cosine, 1e-12, "pair %d,%d", i, j)
		}
	}
}

func TestCompare_Bounds(t *testing.T) {
	qs := parse(
		"SELECT a FROM t",
		"SELECT a, b, c, d, e, f, g, h, i, j, k, l FROM t, u, v",
		"SELECT AVG(x) FROM t WHERE y > 1 AND z < 2 GROUP BY w",
		"",
		"SELECT a FROM t UNION SELECT b FROM u",
	)
	maxTables := MaxTables(qs)
	for _, m := range []fragment.Model{fragment.ModelClauses, fragment.ModelSelections} {
		for i := range qs {
			for j := range qs {
				p := Compare(qs[i], qs[j], m, maxTables)
				for name, v := range map[string]float64{
					"edit": p.Edit, "jaccard": p.Jaccard, "cosine": p.Cosine,
					"common fragments": p.CommonFragments, "common tables": p.CommonTables,
				} {
					assert.GreaterOrEqual(t, v, 0.0, "%s %d,%d", name, i, j)
					assert.LessOrEqual(t, v, 1.0, "%s %d,%d", name, i, j)
				}
			}
		}
	}
}

func TestMaxTables(t *testing.T) {
	assert.Equal(t, 1, MaxTables(nil))
	assert.Equal(t, 1, MaxTables(parse("", "")))
	assert.Equal(t, 3, MaxTables(parse("SELECT a FROM t", "SELECT a FROM t, u, v")))
}
