package fragment

import (
	"regexp"
	"sort"
	"strings"
)

// cleanKeywords are uppercased by Clean; everything else is lowercased.
var cleanKeywords = []string{
	"GROUP BY", "ORDER BY", "PARTITION BY",
	"LEFT JOIN", "RIGHT JOIN", "INNER JOIN", "FULL OUTER JOIN",
	"UNION ALL", "INSERT INTO", "DELETE FROM", "CREATE TABLE", "PRIMARY KEY",
	"INTERSECT", "DISTINCT", "BETWEEN", "EXISTS",
	"SELECT", "WHERE", "HAVING", "UPDATE", "VALUES", "EXCEPT", "LIMIT", "OFFSET",
	"COUNT", "SUM", "AVG", "MIN", "MAX", "DESC", "ASC", "OVER",
	"FROM", "JOIN", "LIKE", "AND", "NOT", "AS", "ON", "OR", "IN", "IS",
}

var (
	fenceOpen    = regexp.MustCompile("(?i)^```sql\\s*")
	fenceClose   = regexp.MustCompile("\\s*```\\s*$")
	whitespaceRe = regexp.MustCompile(`\s+`)
	cleanKeyRe   = compileCleanKeywords()
)

// compileCleanKeywords orders the alternation longest first so multi-word
// keywords win over their single-word prefixes. The words of a multi-word
// keyword may be separated by any whitespace.
func compileCleanKeywords() *regexp.Regexp {
	words := append([]string(nil), cleanKeywords...)
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	alts := make([]string, len(words))
	for i, w := range words {
		parts := strings.Fields(w)
		for j, p := range parts {
			parts[j] = regexp.QuoteMeta(p)
		}
		alts[i] = strings.Join(parts, `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Clean normalizes generated SQL text: markdown code fences, double quotes
// and one trailing semicolon are removed, known keywords are uppercased, the
// rest is lowercased and whitespace runs collapse to one space.
func Clean(sql string) string {
	s := fenceOpen.ReplaceAllString(sql, "")
	s = fenceClose.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.TrimSuffix(s, ";")
	s = cleanKeyRe.ReplaceAllStringFunc(strings.ToLower(s), strings.ToUpper)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
