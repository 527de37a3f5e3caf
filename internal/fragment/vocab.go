package fragment

import (
	"regexp"
	"strings"
)

// AggregationOps is the aggregation vocabulary, in canonical spelling.
var AggregationOps = []string{"COUNT", "SUM", "AVG", "MAX", "MIN"}

// ClauseKeywords is the structural vocabulary recognised during extraction.
// Coverage vocabularies must be subsets of it.
var ClauseKeywords = []string{"GROUP BY", "ORDER BY", "LIMIT", "INTERSECT", "UNION", "EXCEPT", "JOIN"}

type matcher struct {
	name string
	re   *regexp.Regexp
}

var (
	aggregationMatchers = compileMatchers(AggregationOps, `\s*\(`)
	clauseMatchers      = compileMatchers(ClauseKeywords, `\b`)
)

// compileMatchers builds one case-insensitive, word-bounded pattern per
// keyword. Words of a multi-word keyword may be separated by any whitespace.
func compileMatchers(words []string, suffix string) []matcher {
	out := make([]matcher, 0, len(words))
	for _, w := range words {
		parts := strings.Fields(w)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		pattern := `(?i)\b` + strings.Join(parts, `\s+`) + suffix
		out = append(out, matcher{name: w, re: regexp.MustCompile(pattern)})
	}
	return out
}

func matchAll(matchers []matcher, text string) Set {
	out := make(Set)
	for _, m := range matchers {
		if m.re.MatchString(text) {
			out.Add(m.name)
		}
	}
	return out
}

// MatchAggregations returns the aggregation operators applied in text.
func MatchAggregations(text string) Set {
	return matchAll(aggregationMatchers, text)
}

// MatchClauses returns the structural keywords present in text.
func MatchClauses(text string) Set {
	return matchAll(clauseMatchers, text)
}
