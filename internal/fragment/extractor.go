package fragment

import (
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/qrecmetrics/internal/sqlref"
)

// Options configures an Extractor.
type Options struct {
	// Clean runs Clean on each statement before extraction.
	Clean bool

	// FoldIdentifiers case-folds projections and tables.
	FoldIdentifiers bool
}

// Extractor turns SQL statements into ParsedQuery values. It holds no
// per-statement state and is safe for concurrent use.
type Extractor struct {
	opts   Options
	norm   Normalizer
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger discards diagnostics.
func NewExtractor(opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		opts:   opts,
		norm:   Normalizer{Fold: opts.FoldIdentifiers},
		logger: logger.Named("fragment"),
	}
}

// Normalizer returns the identifier normalizer used for projections and
// tables, so schema names can be normalized the same way.
func (e *Extractor) Normalizer() Normalizer {
	return e.norm
}

// Extract parses one statement. Empty input yields Empty(). A statement the
// resolver rejects is logged and also yields Empty(); it never fails the
// caller.
func (e *Extractor) Extract(sql string) ParsedQuery {
	if e.opts.Clean {
		sql = Clean(sql)
	}
	if strings.TrimSpace(sql) == "" {
		return Empty()
	}

	st, err := sqlref.Parse(sql)
	if err != nil {
		e.logger.Warn("statement degraded to empty fragments",
			zap.String("sql", abbreviate(sql, 200)),
			zap.Error(err))
		return Empty()
	}

	refs := st.Refs()
	skeleton := st.Skeleton()

	return ParsedQuery{
		Projections:  e.norm.Set(refs.Columns),
		Clauses:      MatchClauses(skeleton),
		Selections:   NewSet(st.Predicates()...),
		Aggregations: MatchAggregations(skeleton),
		Tables:       e.norm.Set(refs.Tables),
	}
}

// ExtractAll parses each statement in order.
func (e *Extractor) ExtractAll(sqls []string) []ParsedQuery {
	out := make([]ParsedQuery, len(sqls))
	for i, sql := range sqls {
		out[i] = e.Extract(sql)
	}
	return out
}

func abbreviate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
