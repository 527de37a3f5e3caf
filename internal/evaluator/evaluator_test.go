package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/metrics"
	"github.com/roach88/qrecmetrics/internal/sessionlog"
)

var (
	shopSchema = filepath.Join("testdata", "spider", "shop", "schema.sql")
	shopLog    = filepath.Join("testdata", "logs", "shop_01.json")
)

type memorySink struct {
	mu      sync.Mutex
	results []SessionResult
	err     error
}

func (s *memorySink) Save(_ context.Context, res SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return s.err
}

func newEvaluator(t *testing.T, opts Options, sink Sink) *Evaluator {
	t.Helper()
	return New(opts, fragment.NewExtractor(fragment.Options{}, nil), sink, zap.NewNop())
}

func TestEvaluateSession(t *testing.T) {
	out := t.TempDir()
	e := newEvaluator(t, Options{OutputDir: out}, nil)

	res := e.EvaluateSession(context.Background(), shopLog, shopSchema)

	require.False(t, res.Failed(), "errors: %v", res.Errors)
	assert.Equal(t, "shop_01", res.Name)
	assert.Equal(t, fragment.ModelClauses, res.Model)
	assert.Equal(t, e.RunID(), res.RunID)
	require.True(t, res.Record.Has(metrics.AllKeys()...))

	assert.Equal(t, 1.0, res.Record[metrics.TableCoverage])
	assert.InDelta(t, 0.8, res.Record[metrics.ColumnCoverage], 1e-12)
	assert.InDelta(t, 0.4, res.Record[metrics.AggregationCoverage], 1e-12)
	assert.InDelta(t, 2.0/3.0, res.Record[metrics.ClauseCoverage], 1e-12)

	// Chosen: q, "", q WHERE city = 'Oslo'.
	assert.InDelta(t, 0.75, res.Record[metrics.EditIndex], 1e-12)
	assert.Equal(t, 0.0, res.Record[metrics.JaccardIndex])
	assert.Equal(t, 0.0, res.Record[metrics.CosineIndex])
	assert.Equal(t, 0.0, res.Record[metrics.CommonTablesIndex])

	assert.Equal(t, filepath.Join(out, "shop_01.txt"), res.ReportPath)
	data, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Column Coverage                    : 0.8000")
}

func TestEvaluateSession_MissingLogIsFatal(t *testing.T) {
	out := t.TempDir()
	sink := &memorySink{}
	e := newEvaluator(t, Options{OutputDir: out}, sink)
	path := filepath.Join("testdata", "logs", "absent.json")

	res := e.EvaluateSession(context.Background(), path, shopSchema)

	require.True(t, res.Fatal())
	var loadErr *sessionlog.LoadError
	require.ErrorAs(t, res.Errors[StageSession], &loadErr)
	assert.Equal(t, path, loadErr.Path)
	assert.Empty(t, res.Record)
	assert.Empty(t, res.ReportPath)
	assert.Len(t, sink.results, 1, "fatal sessions are still recorded")
}

func TestEvaluateSession_InvalidJSONIsFatal(t *testing.T) {
	e := newEvaluator(t, Options{}, nil)

	res := e.EvaluateSession(context.Background(), filepath.Join("testdata", "logs", "truncated.json"), shopSchema)

	assert.True(t, res.Fatal())
}

func TestEvaluateSession_EvaluatorIsolation(t *testing.T) {
	e := newEvaluator(t, Options{}, nil)

	res := e.EvaluateSession(context.Background(), filepath.Join("testdata", "logs", "bad_chosen.json"), shopSchema)

	require.True(t, res.Failed())
	assert.False(t, res.Fatal())
	assert.Equal(t, []string{StageCohesion}, res.Errors.Stages())
	var viewErr *sessionlog.ViewError
	require.ErrorAs(t, res.Errors[StageCohesion], &viewErr)

	assert.True(t, res.Record.Has(metrics.CoverageKeys...))
	for _, k := range metrics.CohesionKeys {
		assert.False(t, res.Record.Has(k), k)
	}
}

func TestEvaluateSession_MissingSchema(t *testing.T) {
	e := newEvaluator(t, Options{}, nil)

	res := e.EvaluateSession(context.Background(), shopLog, filepath.Join(t.TempDir(), "schema.sql"))

	require.False(t, res.Failed())
	assert.Equal(t, 0.0, res.Record[metrics.TableCoverage])
	assert.Equal(t, 0.0, res.Record[metrics.ColumnCoverage])
	assert.InDelta(t, 0.4, res.Record[metrics.AggregationCoverage], 1e-12)
}

func TestEvaluateSession_SchemaResolution(t *testing.T) {
	base := filepath.Join("testdata", "spider")

	t.Run("db id from log metadata", func(t *testing.T) {
		e := newEvaluator(t, Options{SchemaDir: base}, nil)
		res := e.EvaluateSession(context.Background(), shopLog, "")
		assert.Equal(t, shopSchema, res.SchemaPath)
		assert.Equal(t, 1.0, res.Record[metrics.TableCoverage])
	})

	t.Run("default db id", func(t *testing.T) {
		e := newEvaluator(t, Options{SchemaDir: base, DefaultDBID: "shop"}, nil)
		res := e.EvaluateSession(context.Background(), filepath.Join("testdata", "logs", "no_db.json"), "")
		assert.Equal(t, shopSchema, res.SchemaPath)
		assert.Equal(t, 0.5, res.Record[metrics.TableCoverage])
		assert.Equal(t, 1.0, res.Record[metrics.EditIndex])
	})
}

func TestEvaluateSession_SinkFailure(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	e := newEvaluator(t, Options{}, sink)

	res := e.EvaluateSession(context.Background(), shopLog, shopSchema)

	assert.Equal(t, []string{StageStore}, res.Errors.Stages())
	assert.True(t, res.Record.Has(metrics.AllKeys()...))
}

func TestGuard_RecoversPanic(t *testing.T) {
	rec, err := guard(StageCoverage, func() (metrics.Record, error) {
		var s fragment.Set
		s.Add("boom")
		return metrics.Record{metrics.TableCoverage: 1}, nil
	})

	assert.Nil(t, rec)
	require.ErrorIs(t, err, ErrEvaluatorPanic)
	assert.Contains(t, err.Error(), StageCoverage)
}

func TestRun_PanicLeavesOtherKeys(t *testing.T) {
	e := newEvaluator(t, Options{}, nil)
	res := SessionResult{Record: metrics.Record{}}

	e.run(&res, StageCoverage, e.logger, func() (metrics.Record, error) {
		return metrics.Record{metrics.TableCoverage: 0.5}, nil
	})
	e.run(&res, StageCohesion, e.logger, func() (metrics.Record, error) {
		panic("index out of range")
	})

	assert.Equal(t, metrics.Record{metrics.TableCoverage: 0.5}, res.Record)
	assert.ErrorIs(t, res.Errors[StageCohesion], ErrEvaluatorPanic)
}

func TestNew_Defaults(t *testing.T) {
	e := New(Options{}, nil, nil, nil)
	assert.Equal(t, DefaultWorkers, e.opts.Workers)
	assert.Equal(t, fragment.ModelClauses, e.opts.Model)
	assert.Len(t, e.RunID(), 36)

	other := New(Options{RunID: "fixed"}, nil, nil, nil)
	assert.Equal(t, "fixed", other.RunID())
}
