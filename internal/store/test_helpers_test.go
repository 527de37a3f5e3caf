package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/qrecmetrics/internal/metrics"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with every metric present.
func createTestRecord(runID, session string, seq int64) Record {
	m := metrics.Record{}
	for i, k := range metrics.AllKeys() {
		m[k] = float64(i) / 10
	}
	return Record{
		RunID:         runID,
		Seq:           seq,
		Session:       session,
		LogPath:       "logs/" + session + ".json",
		SchemaPath:    "spider/shop/schema.sql",
		FragmentModel: "clauses",
		Metrics:       m,
	}
}
