package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qrecmetrics/internal/metrics"
)

// ErrNotFound is returned by ReadRecord for an unknown ID.
var ErrNotFound = errors.New("record not found")

var selectColumns = buildSelect()

func buildSelect() string {
	cols := []string{"id", "run_id", "seq", "session", "log_path", "schema_path", "fragment_model"}
	for _, mc := range metricColumns {
		cols = append(cols, mc.column)
	}
	cols = append(cols, "errors")
	return strings.Join(cols, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var errorsJSON string
	values := make([]sql.NullFloat64, len(metricColumns))

	dest := []any{&rec.ID, &rec.RunID, &rec.Seq, &rec.Session, &rec.LogPath, &rec.SchemaPath, &rec.FragmentModel}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &errorsJSON)

	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}

	rec.Metrics = metrics.Record{}
	for i, mc := range metricColumns {
		if values[i].Valid {
			rec.Metrics[mc.key] = values[i].Float64
		}
	}
	if errorsJSON != "" && errorsJSON != "{}" {
		if err := json.Unmarshal([]byte(errorsJSON), &rec.Errors); err != nil {
			return Record{}, fmt.Errorf("unmarshal errors of %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// ReadRecord returns the row with the given ID, or ErrNotFound.
func (s *Store) ReadRecord(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM session_metrics WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("read record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read record %s: %w", id, err)
	}
	return rec, nil
}

// ListRun returns every row of a run ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the run has no rows.
func (s *Store) ListRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM session_metrics
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run %s: %w", runID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run %s: %w", runID, err)
	}
	return records, nil
}

// ListRuns summarizes every run in the store. Run IDs are UUIDv7, so
// ascending ID order is creation order.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id,
		       MIN(fragment_model),
		       COUNT(*),
		       SUM(CASE WHEN errors != '{}' THEN 1 ELSE 0 END)
		FROM session_metrics
		GROUP BY run_id
		ORDER BY run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.FragmentModel, &r.Sessions, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
