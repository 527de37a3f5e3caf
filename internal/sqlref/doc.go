// Package sqlref resolves column and table references from SQL text.
//
// The resolver is a tokenizer plus a clause-aware walk over the token
// stream. It is not a full SQL grammar: it tracks which clause each
// identifier appears in (SELECT list, FROM/JOIN, WHERE, ON, GROUP BY,
// HAVING, ORDER BY, SET) and classifies the identifier as a table, a
// column, an alias or a function name.
//
// # Column references
//
// Columns are reported by their bare name: "u.name" and "name" both
// resolve to "name". Select-list aliases, table aliases, function names,
// CTE names and "*" are never reported. Aliases referenced again in
// GROUP BY, HAVING or ORDER BY are dropped.
//
// # Table references
//
// Tables are the targets of FROM, JOIN, UPDATE and INTO, including the
// comma-separated form "FROM a, b". Schema-qualified names keep their
// qualifier ("main.users"). CTE names declared in a WITH clause are not
// tables.
//
// # Predicates
//
// Predicates splits the outermost WHERE clause on top-level AND/OR.
// Parenthesised groups are kept whole and the AND of "BETWEEN x AND y" is
// not a boundary.
//
// # Malformed input
//
// Unterminated strings, quoted identifiers or block comments, unbalanced
// parentheses and text with no statement keyword are reported as errors
// (see ErrMalformed) so callers can degrade that one statement.
package sqlref
