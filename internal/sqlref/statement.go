package sqlref

import (
	"fmt"
	"strings"
)

// Statement is a tokenized SQL statement that passed the structural checks.
type Statement struct {
	SQL    string
	Tokens []Token
}

// Refs holds the column and table references of a statement in order of
// first appearance, without duplicates.
type Refs struct {
	Columns []string
	Tables  []string
}

// Parse tokenizes sql and verifies that it has balanced parentheses and at
// least one statement keyword.
func Parse(sql string) (*Statement, error) {
	tokens, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	if err := checkStructure(tokens); err != nil {
		return nil, err
	}
	return &Statement{SQL: sql, Tokens: tokens}, nil
}

// Resolve parses sql and returns its column and table references.
func Resolve(sql string) (Refs, error) {
	st, err := Parse(sql)
	if err != nil {
		return Refs{}, err
	}
	return st.Refs(), nil
}

// Predicates parses sql and returns the predicates of its outermost WHERE
// clause.
func Predicates(sql string) ([]string, error) {
	st, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	return st.Predicates(), nil
}

func checkStructure(tokens []Token) error {
	depth := 0
	hasStatement := false
	for _, t := range tokens {
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected ')' at offset %d", ErrMalformed, t.Start)
			}
		case t.Kind == TokenIdent && statementKeywords[strings.ToUpper(t.Value)]:
			hasStatement = true
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '('", ErrMalformed, depth)
	}
	if !hasStatement {
		return fmt.Errorf("%w: no statement keyword", ErrMalformed)
	}
	return nil
}

// Skeleton renders the statement as its tokens joined by single spaces, with
// string literals and quoted identifiers blanked out and comments dropped.
// Keyword matching on the skeleton cannot hit words inside literals or names.
func (s *Statement) Skeleton() string {
	var b strings.Builder
	for i, t := range s.Tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch t.Kind {
		case TokenString:
			b.WriteString("''")
		case TokenQuoted:
			b.WriteString(`""`)
		default:
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Predicates splits the outermost WHERE clause on top-level AND/OR. Each
// predicate is whitespace-collapsed and lowercased. A statement without a
// top-level WHERE has no predicates.
func (s *Statement) Predicates() []string {
	tokens := s.Tokens

	start := -1
	depth := 0
	for i, t := range tokens {
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth == 0 && t.Is("WHERE"):
			start = i + 1
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return nil
	}

	var preds []string
	seen := make(map[string]bool)
	segStart := start
	flush := func(end int) {
		if end <= segStart {
			return
		}
		text := s.SQL[tokens[segStart].Start:tokens[end-1].End]
		p := strings.ToLower(strings.Join(strings.Fields(text), " "))
		if p != "" && !seen[p] {
			seen[p] = true
			preds = append(preds, p)
		}
	}

	depth = 0
	pendingBetween := 0
	i := start
loop:
	for ; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			if depth == 0 {
				break loop
			}
			depth--
		case depth > 0:
		case t.IsPunct(";"):
			break loop
		case t.Kind == TokenIdent && whereTerminators[strings.ToUpper(t.Value)]:
			break loop
		case t.Is("BETWEEN"):
			pendingBetween++
		case t.Is("AND") && pendingBetween > 0:
			pendingBetween--
		case t.Is("AND") || t.Is("OR"):
			flush(i)
			segStart = i + 1
		}
	}
	flush(i)

	return preds
}
