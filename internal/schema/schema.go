// Package schema reads table and column names from DDL text.
//
// The parser is line oriented and tolerant: it only looks for CREATE TABLE
// blocks and takes the leading identifier of each column definition. It
// never fails; text it cannot make sense of contributes nothing.
package schema

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/qrecmetrics/internal/fragment"
)

// FileName is the schema file name inside a database directory.
const FileName = "schema.sql"

// Schema is the set of table and column names a database declares.
type Schema struct {
	Tables  fragment.Set `json:"tables"`
	Columns fragment.Set `json:"columns"`
}

// Empty returns a schema with no tables and no columns.
func Empty() Schema {
	return Schema{Tables: fragment.NewSet(), Columns: fragment.NewSet()}
}

// namePart is one quoted or bare part of a possibly schema-qualified name.
const namePart = "\"[^\"]+\"|`[^`]+`|\\[[^\\]]+\\]|[\\p{L}\\p{N}_$]+"

var (
	createTableRe = regexp.MustCompile(
		"(?i)\\bCREATE\\s+(?:TEMP(?:ORARY)?\\s+)?TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?" +
			"((?:" + namePart + ")(?:\\s*\\.\\s*(?:" + namePart + "))*)")
	namePartRe   = regexp.MustCompile(namePart)
	columnNameRe = regexp.MustCompile("^(?:\"([^\"]+)\"|`([^`]+)`|\\[([^\\]]+)\\]|([\\p{L}\\p{N}_$]+))")
)

// excludedPrefixes start table-level constraint lines, not column definitions.
var excludedPrefixes = []string{
	"PRIMARY", "FOREIGN", "CONSTRAINT", "UNIQUE", "CHECK", "KEY", "INDEX", ")",
}

// Parse extracts every table declared with CREATE TABLE and the columns of
// each table's definition block.
func Parse(ddl string) Schema {
	s := Empty()
	ddl = stripComments(ddl)
	for _, loc := range createTableRe.FindAllStringSubmatchIndex(ddl, -1) {
		name := qualifiedName(ddl[loc[2]:loc[3]])
		if name == "" {
			continue
		}
		s.Tables.Add(name)

		open := strings.IndexByte(ddl[loc[1]:], '(')
		if open < 0 {
			continue
		}
		// Anything between the name and "(" other than whitespace means this
		// is CREATE TABLE ... AS SELECT, which declares no columns here.
		if strings.TrimSpace(ddl[loc[1]:loc[1]+open]) != "" {
			continue
		}
		body := definitionBody(ddl[loc[1]+open+1:])
		for _, col := range columnNames(body) {
			s.Columns.Add(col)
		}
	}
	return s
}

// Load reads and parses the schema file at path. A file that cannot be read
// yields an empty schema and a warning; it is not an error.
func Load(path string, logger *zap.Logger) Schema {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "schema file unreadable, using empty schema"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "schema file not found, using empty schema"
		}
		logger.Named("schema").Warn(msg, zap.String("path", path), zap.Error(err))
		return Empty()
	}
	return Parse(string(data))
}

// ResolvePath returns the schema file of database dbID under baseDir, laid
// out as <baseDir>/<dbID>/schema.sql.
func ResolvePath(baseDir, dbID string) string {
	return filepath.Join(baseDir, dbID, FileName)
}

// Normalize returns a copy of s with every name passed through n, so schema
// names compare equal to normalized query references.
func (s Schema) Normalize(n fragment.Normalizer) Schema {
	return Schema{
		Tables:  n.Set(s.Tables.Sorted()),
		Columns: n.Set(s.Columns.Sorted()),
	}
}

// definitionBody returns the text up to the parenthesis closing the column
// block, or the rest of the input when it is never closed.
func definitionBody(rest string) string {
	depth := 1
	var quote byte
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return rest[:i]
			}
		}
	}
	return rest
}

// columnNames splits a comment-free definition block into its top-level
// items and returns the leading identifier of each column definition.
func columnNames(body string) []string {
	var names []string
	for _, item := range splitTopLevel(body) {
		item = strings.TrimSpace(item)
		if item == "" || isConstraint(item) {
			continue
		}
		m := columnNameRe.FindStringSubmatch(item)
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if g != "" {
				names = append(names, g)
				break
			}
		}
	}
	return names
}

func splitTopLevel(body string) []string {
	var items []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			items = append(items, body[start:i])
			start = i + 1
		}
	}
	return append(items, body[start:])
}

func isConstraint(item string) bool {
	upper := strings.ToUpper(item)
	for _, p := range excludedPrefixes {
		if !strings.HasPrefix(upper, p) {
			continue
		}
		// "KEY" must not swallow a column called "keyword".
		if len(upper) == len(p) || p == ")" || !isNameByte(upper[len(p)]) {
			return true
		}
	}
	return false
}

func isNameByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// stripComments replaces "--" line comments and "/* */" block comments with
// a single space. Comment markers inside quoted strings and identifiers are
// text. An unterminated block comment runs to the end of the input.
func stripComments(ddl string) string {
	var b strings.Builder
	b.Grow(len(ddl))
	var quote byte
	for i := 0; i < len(ddl); i++ {
		c := ddl[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '-' && i+1 < len(ddl) && ddl[i+1] == '-':
			end := strings.IndexByte(ddl[i:], '\n')
			if end < 0 {
				return b.String()
			}
			b.WriteByte(' ')
			i += end - 1
			continue
		case c == '/' && i+1 < len(ddl) && ddl[i+1] == '*':
			end := strings.Index(ddl[i+2:], "*/")
			b.WriteByte(' ')
			if end < 0 {
				return b.String()
			}
			i += end + 3
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// qualifiedName unquotes each part of a dotted table name, so "main"."users"
// and main.users give the same name.
func qualifiedName(raw string) string {
	parts := namePartRe.FindAllString(raw, -1)
	for i, p := range parts {
		parts[i] = unquote(p)
	}
	return strings.Join(parts, ".")
}

func unquote(name string) string {
	if len(name) >= 2 {
		switch {
		case name[0] == '"' && name[len(name)-1] == '"',
			name[0] == '`' && name[len(name)-1] == '`',
			name[0] == '[' && name[len(name)-1] == ']':
			return name[1 : len(name)-1]
		}
	}
	return name
}
