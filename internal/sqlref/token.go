package sqlref

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformed is wrapped by every error returned for SQL that cannot be
// tokenized or resolved.
var ErrMalformed = errors.New("malformed sql")

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenIdent    TokenKind = iota // bare identifier or keyword
	TokenQuoted                    // "x", `x` or [x]
	TokenString                    // 'x'
	TokenNumber                    // 42, 1.5e3
	TokenParam                     // ?, :name, @name, $1
	TokenPunct                     // ( ) , . ; *
	TokenOperator                  // = <> <= || + - ...
)

// Token is one lexical unit of a SQL statement.
type Token struct {
	Kind TokenKind

	// Text is the raw source text of the token.
	Text string

	// Value is the identifier with quoting removed for TokenQuoted and
	// the raw text otherwise.
	Value string

	// Start and End are byte offsets into the tokenized string.
	Start, End int

	// DoubleQuoted marks a TokenQuoted written with double quotes, which
	// some dialects also use for string literals.
	DoubleQuoted bool
}

// IsKeyword reports whether the token is a bare identifier that matches a
// SQL keyword.
func (t Token) IsKeyword() bool {
	return t.Kind == TokenIdent && isKeyword(t.Value)
}

// Is reports whether the token is the bare keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Kind == TokenIdent && strings.EqualFold(t.Value, kw)
}

// IsPunct reports whether the token is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

// isName reports whether the token can name a column, table or alias.
func (t Token) isName() bool {
	return t.Kind == TokenQuoted || (t.Kind == TokenIdent && !isKeyword(t.Value))
}

// twoCharOperators are operators longer than one byte.
var twoCharOperators = map[string]bool{
	"<=": true, ">=": true, "<>": true, "!=": true, "==": true,
	"||": true, "<<": true, ">>": true, "->": true, "::": true,
}

// Tokenize splits sql into tokens, skipping whitespace and comments.
func Tokenize(sql string) ([]Token, error) {
	var tokens []Token
	i := 0
	n := len(sql)

	for i < n {
		c := sql[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++

		case c == '-' && i+1 < n && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = n
			} else {
				i += end + 1
			}

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated block comment at offset %d", ErrMalformed, i)
			}
			i += 2 + end + 2

		case c == '\'':
			end, err := scanQuoted(sql, i, '\'')
			if err != nil {
				return nil, err
			}
			text := sql[i:end]
			tokens = append(tokens, Token{Kind: TokenString, Text: text, Value: text, Start: i, End: end})
			i = end

		case c == '"' || c == '`':
			end, err := scanQuoted(sql, i, c)
			if err != nil {
				return nil, err
			}
			text := sql[i:end]
			q := string(c)
			value := strings.ReplaceAll(text[1:len(text)-1], q+q, q)
			tokens = append(tokens, Token{
				Kind: TokenQuoted, Text: text, Value: value,
				Start: i, End: end, DoubleQuoted: c == '"',
			})
			i = end

		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated bracket identifier at offset %d", ErrMalformed, i)
			}
			text := sql[i : i+end+1]
			tokens = append(tokens, Token{Kind: TokenQuoted, Text: text, Value: text[1 : len(text)-1], Start: i, End: i + end + 1})
			i += end + 1

		case isDigit(c) || (c == '.' && i+1 < n && isDigit(sql[i+1])):
			end := scanNumber(sql, i)
			text := sql[i:end]
			tokens = append(tokens, Token{Kind: TokenNumber, Text: text, Value: text, Start: i, End: end})
			i = end

		case (c == ':' || c == '@' || c == '$') && i+1 < n && isIdentByte(sql, i+1):
			end := scanIdent(sql, i+1)
			text := sql[i:end]
			tokens = append(tokens, Token{Kind: TokenParam, Text: text, Value: text, Start: i, End: end})
			i = end

		case c == '?':
			tokens = append(tokens, Token{Kind: TokenParam, Text: "?", Value: "?", Start: i, End: i + 1})
			i++

		case isIdentStart(sql, i):
			end := scanIdent(sql, i)
			text := sql[i:end]
			tokens = append(tokens, Token{Kind: TokenIdent, Text: text, Value: text, Start: i, End: end})
			i = end

		case strings.IndexByte("(),.;*", c) >= 0:
			text := string(c)
			tokens = append(tokens, Token{Kind: TokenPunct, Text: text, Value: text, Start: i, End: i + 1})
			i++

		default:
			width := 1
			if i+1 < n && twoCharOperators[sql[i:i+2]] {
				width = 2
			} else if c >= utf8.RuneSelf {
				_, width = utf8.DecodeRuneInString(sql[i:])
			}
			text := sql[i : i+width]
			tokens = append(tokens, Token{Kind: TokenOperator, Text: text, Value: text, Start: i, End: i + width})
			i += width
		}
	}

	return tokens, nil
}

// scanQuoted returns the offset just past the closing quote of the quoted
// run starting at start. A doubled quote character is an escape.
func scanQuoted(sql string, start int, quote byte) (int, error) {
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			if i+1 < len(sql) && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	kind := "string literal"
	if quote != '\'' {
		kind = "quoted identifier"
	}
	return 0, fmt.Errorf("%w: unterminated %s at offset %d", ErrMalformed, kind, start)
}

func scanNumber(sql string, start int) int {
	i := start
	for i < len(sql) && (isDigit(sql[i]) || sql[i] == '.') {
		i++
	}
	if i < len(sql) && (sql[i] == 'e' || sql[i] == 'E') {
		j := i + 1
		if j < len(sql) && (sql[j] == '+' || sql[j] == '-') {
			j++
		}
		if j < len(sql) && isDigit(sql[j]) {
			i = j
			for i < len(sql) && isDigit(sql[i]) {
				i++
			}
		}
	}
	return i
}

func scanIdent(sql string, start int) int {
	i := start
	for i < len(sql) && isIdentByte(sql, i) {
		if sql[i] < utf8.RuneSelf {
			i++
			continue
		}
		_, w := utf8.DecodeRuneInString(sql[i:])
		i += w
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(sql string, i int) bool {
	c := sql[i]
	if c < utf8.RuneSelf {
		return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	r, _ := utf8.DecodeRuneInString(sql[i:])
	return unicode.IsLetter(r)
}

func isIdentByte(sql string, i int) bool {
	c := sql[i]
	if c < utf8.RuneSelf {
		return c == '_' || c == '$' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	r, _ := utf8.DecodeRuneInString(sql[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
