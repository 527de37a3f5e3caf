package sqlref

import "strings"

// clause is the SQL clause an identifier appears in.
type clause int

const (
	clauseNone clause = iota
	clauseSelect
	clauseFrom
	clauseWhere
	clauseOn
	clauseGroupBy
	clauseHaving
	clauseOrderBy
	clauseLimit
	clauseSet
	clauseInto
	clauseInsertColumns
	clauseValues
)

// readsColumns reports whether bare names in the clause are column references.
func (c clause) readsColumns() bool {
	switch c {
	case clauseSelect, clauseWhere, clauseOn, clauseGroupBy, clauseHaving,
		clauseOrderBy, clauseSet, clauseInsertColumns:
		return true
	}
	return false
}

// referencesAliases reports whether the clause may name a select-list alias.
func (c clause) referencesAliases() bool {
	return c == clauseGroupBy || c == clauseHaving || c == clauseOrderBy
}

// frame is the resolver state saved at an opening parenthesis.
type frame struct {
	clause clause

	// tableSlot is set when the parenthesis opened a derived table, so
	// the name after the closing parenthesis is its alias.
	tableSlot bool

	// call is set when the parenthesis opened a function call.
	call bool

	// query is set once a SELECT starts inside the parenthesis.
	query bool
}

type candidate struct {
	name      string
	clause    clause
	qualified bool
}

type resolver struct {
	tokens []Token

	ctes    map[string]bool
	aliases map[string]bool

	tables     []string
	tableSeen  map[string]bool
	candidates []candidate

	clause      clause
	expectTable bool
	afterTable  bool
	aliasNext   bool
	calls       int
	stack       []frame
}

// Refs walks the statement and returns its column and table references.
func (s *Statement) Refs() Refs {
	r := &resolver{
		tokens:    s.Tokens,
		ctes:      findCTENames(s.Tokens),
		aliases:   make(map[string]bool),
		tableSeen: make(map[string]bool),
	}
	r.walk()
	return r.result()
}

// findCTENames returns the lowercased names declared by WITH clauses:
// "WITH name AS (" and "WITH name (a, b) AS (", including later entries
// after a comma.
func findCTENames(tokens []Token) map[string]bool {
	ctes := make(map[string]bool)
	for i := 1; i < len(tokens); i++ {
		if !tokens[i].isName() {
			continue
		}
		prev := tokens[i-1]
		if !prev.Is("WITH") && !prev.Is("RECURSIVE") && !prev.IsPunct(",") {
			continue
		}
		j := i + 1
		if j < len(tokens) && tokens[j].IsPunct("(") {
			j = skipGroup(tokens, j)
		}
		if j+1 < len(tokens) && tokens[j].Is("AS") && tokens[j+1].IsPunct("(") {
			ctes[strings.ToLower(tokens[i].Value)] = true
		}
	}
	return ctes
}

// skipGroup returns the index after the parenthesis matching tokens[open].
func skipGroup(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct("("):
			depth++
		case tokens[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(tokens)
}

func (r *resolver) walk() {
	for i := 0; i < len(r.tokens); i++ {
		t := r.tokens[i]
		switch {
		case t.IsPunct("("):
			r.open(i)
		case t.IsPunct(")"):
			r.close()
		case t.IsPunct(","):
			if r.clause == clauseFrom {
				r.expectTable = true
			}
			r.afterTable = false
			r.aliasNext = false
		case t.IsPunct(";"):
			r.clause = clauseNone
			r.expectTable = false
			r.afterTable = false
			r.aliasNext = false
		case t.IsKeyword():
			r.keyword(t)
		case t.isName():
			i = r.name(i)
		default:
			r.afterTable = false
			r.aliasNext = false
		}
	}
}

func (r *resolver) open(i int) {
	f := frame{clause: r.clause}
	if i > 0 {
		prev := r.tokens[i-1]
		f.call = prev.Kind == TokenIdent && (prev.Is("CAST") || !prev.IsKeyword())
	}

	switch {
	case r.expectTable:
		f.tableSlot = true
		r.expectTable = false
	case r.clause == clauseInto && r.afterTable:
		f.call = false
		r.stack = append(r.stack, f)
		r.clause = clauseInsertColumns
		r.afterTable = false
		r.aliasNext = false
		return
	}

	if f.call {
		r.calls++
	}
	r.stack = append(r.stack, f)
	r.afterTable = false
	r.aliasNext = false
}

func (r *resolver) close() {
	r.expectTable = false
	r.aliasNext = false
	r.afterTable = false
	if len(r.stack) == 0 {
		return
	}
	f := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	if f.call {
		r.calls--
	}
	r.clause = f.clause
	r.afterTable = f.tableSlot
}

// inCallArgs reports whether the innermost parenthesis is a function call
// argument list rather than a subquery.
func (r *resolver) inCallArgs() bool {
	n := len(r.stack)
	return n > 0 && r.stack[n-1].call && !r.stack[n-1].query
}

func (r *resolver) keyword(t Token) {
	kw := strings.ToUpper(t.Value)
	if kw == "AS" {
		r.aliasNext = true
		r.afterTable = false
		return
	}
	r.aliasNext = false
	r.afterTable = false

	switch kw {
	case "SELECT", "RETURNING":
		if n := len(r.stack); n > 0 {
			r.stack[n-1].query = true
		}
		r.clause = clauseSelect
		r.expectTable = false
	case "FROM":
		// EXTRACT(YEAR FROM d), SUBSTRING(x FROM 2), TRIM(' ' FROM x)
		if r.inCallArgs() {
			return
		}
		r.clause = clauseFrom
		r.expectTable = true
	case "JOIN", "UPDATE":
		r.clause = clauseFrom
		r.expectTable = true
	case "INTO":
		r.clause = clauseInto
		r.expectTable = true
	case "ON", "USING":
		r.clause = clauseOn
	case "WHERE":
		r.clause = clauseWhere
	case "GROUP", "PARTITION":
		r.clause = clauseGroupBy
	case "ORDER":
		r.clause = clauseOrderBy
	case "HAVING":
		r.clause = clauseHaving
	case "LIMIT", "OFFSET", "FETCH":
		r.clause = clauseLimit
	case "SET":
		r.clause = clauseSet
	case "VALUES":
		r.clause = clauseValues
	case "UNION", "INTERSECT", "EXCEPT", "WITH", "INSERT", "DELETE":
		r.clause = clauseNone
		r.expectTable = false
	}
}

// name classifies the (possibly dotted) name starting at tokens[i] and
// returns the index of its last token.
func (r *resolver) name(i int) int {
	start := i
	first := r.tokens[i]
	parts := []string{first.Value}
	star := false
	for i+2 < len(r.tokens) && r.tokens[i+1].IsPunct(".") {
		next := r.tokens[i+2]
		if next.IsPunct("*") {
			star = true
		} else if next.Kind != TokenIdent && next.Kind != TokenQuoted {
			break
		}
		parts = append(parts, next.Value)
		i += 2
	}
	last := parts[len(parts)-1]
	call := i+1 < len(r.tokens) && r.tokens[i+1].IsPunct("(")

	var prev Token
	if start > 0 {
		prev = r.tokens[start-1]
	} else {
		prev.Kind = -1
	}

	switch {
	case r.aliasNext:
		r.aliasNext = false
		if r.clause == clauseSelect && r.calls == 0 {
			r.aliases[strings.ToLower(last)] = true
		}
		return i

	case r.expectTable:
		r.expectTable = false
		if call && r.clause != clauseInto {
			return i
		}
		name := strings.Join(parts, ".")
		if len(parts) > 1 || !r.ctes[strings.ToLower(name)] {
			r.addTable(name)
		}
		r.afterTable = true
		return i

	case r.afterTable:
		r.afterTable = false
		return i

	case call, star, !r.clause.readsColumns():
		return i

	case r.callModifier(start, i):
		return i

	case r.clause == clauseSelect && r.calls == 0 && endsExpression(prev):
		r.aliases[strings.ToLower(last)] = true
		return i

	case first.DoubleQuoted && len(parts) == 1 && isComparison(prev):
		return i
	}

	r.candidates = append(r.candidates, candidate{
		name:      last,
		clause:    r.clause,
		qualified: len(parts) > 1,
	})
	return i
}

// callModifiers are bare words that qualify a call's arguments rather than
// name a column: the field of EXTRACT and the side of TRIM.
var callModifiers = map[string]map[string]bool{
	"EXTRACT": nil,
	"TRIM":    {"LEADING": true, "TRAILING": true, "BOTH": true},
}

// callModifier reports whether tokens[start:end+1] is a modifier word that
// directly follows the opening parenthesis of EXTRACT or TRIM. Any word in
// that position before FROM is the EXTRACT field.
func (r *resolver) callModifier(start, end int) bool {
	if start < 2 || start != end || !r.tokens[start-1].IsPunct("(") {
		return false
	}
	fn := strings.ToUpper(r.tokens[start-2].Value)
	words, ok := callModifiers[fn]
	if !ok || r.tokens[start-2].Kind != TokenIdent {
		return false
	}
	if words == nil {
		return end+1 < len(r.tokens) && r.tokens[end+1].Is("FROM")
	}
	return words[strings.ToUpper(r.tokens[start].Value)]
}

func (r *resolver) addTable(name string) {
	if r.tableSeen[name] {
		return
	}
	r.tableSeen[name] = true
	r.tables = append(r.tables, name)
}

func (r *resolver) result() Refs {
	var cols []string
	seen := make(map[string]bool)
	for _, c := range r.candidates {
		if !c.qualified && c.clause.referencesAliases() && r.aliases[strings.ToLower(c.name)] {
			continue
		}
		if seen[c.name] {
			continue
		}
		seen[c.name] = true
		cols = append(cols, c.name)
	}
	return Refs{Columns: cols, Tables: r.tables}
}

// endsExpression reports whether a name following prev, with no operator or
// comma between them, must be an implicit alias.
func endsExpression(prev Token) bool {
	switch prev.Kind {
	case TokenQuoted, TokenString, TokenNumber, TokenParam:
		return true
	case TokenIdent:
		return !prev.IsKeyword() || prev.Is("END")
	case TokenPunct:
		return prev.IsPunct(")")
	}
	return false
}

func isComparison(prev Token) bool {
	if prev.Kind == TokenOperator {
		switch prev.Text {
		case "=", "==", "<>", "!=", "<", ">", "<=", ">=":
			return true
		}
		return false
	}
	return prev.Is("LIKE") || prev.Is("GLOB")
}
