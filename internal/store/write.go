package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/qrecmetrics/internal/evaluator"
)

var insertSQL = buildInsert()

func buildInsert() string {
	cols := []string{"id", "run_id", "seq", "session", "log_path", "schema_path", "fragment_model"}
	for _, mc := range metricColumns {
		cols = append(cols, mc.column)
	}
	cols = append(cols, "errors")
	return fmt.Sprintf(`
		INSERT INTO session_metrics (%s)
		VALUES (%s)
		ON CONFLICT(id) DO NOTHING
	`, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
}

// WriteRecord inserts a session row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a row already stored
// under the same ID is left as it is.
// A metric missing from rec.Metrics is stored as NULL.
func (s *Store) WriteRecord(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = RecordID(rec.RunID, rec.LogPath)
	}

	errorsJSON, err := marshalErrors(rec.Errors)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	args := []any{rec.ID, rec.RunID, rec.Seq, rec.Session, rec.LogPath, rec.SchemaPath, rec.FragmentModel}
	for _, mc := range metricColumns {
		v, ok := rec.Metrics[mc.key]
		args = append(args, sql.NullFloat64{Float64: v, Valid: ok})
	}
	args = append(args, errorsJSON)

	if _, err := s.db.ExecContext(ctx, insertSQL, args...); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Save stores an evaluation result. It lets a Store serve as the
// evaluator's sink.
func (s *Store) Save(ctx context.Context, res evaluator.SessionResult) error {
	return s.WriteRecord(ctx, FromResult(res))
}

func marshalErrors(errs map[string]string) (string, error) {
	if len(errs) == 0 {
		return "{}", nil
	}
	// encoding/json sorts map keys, so equal maps encode identically.
	data, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(data), nil
}
