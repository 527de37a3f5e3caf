// Package evaluator runs the coverage and cohesion evaluators over session
// logs and collects their records.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/qrecmetrics/internal/cohesion"
	"github.com/roach88/qrecmetrics/internal/coverage"
	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/metrics"
	"github.com/roach88/qrecmetrics/internal/report"
	"github.com/roach88/qrecmetrics/internal/schema"
	"github.com/roach88/qrecmetrics/internal/sessionlog"
)

// DefaultWorkers is the batch concurrency when Options.Workers is unset.
const DefaultWorkers = 4

// Sink receives every evaluated session, failed ones included.
type Sink interface {
	Save(ctx context.Context, res SessionResult) error
}

// Options configures an Evaluator.
type Options struct {
	Model fragment.Model

	// Workers bounds concurrent sessions in EvaluateBatch.
	Workers int

	// OutputDir receives <stem>.txt reports. Empty skips report files.
	OutputDir string

	// SchemaDir and DefaultDBID resolve the schema of a job that has no
	// SchemaPath: <SchemaDir>/<db_id>/schema.sql, with db_id read from the
	// log's metadata and DefaultDBID as fallback.
	SchemaDir   string
	DefaultDBID string

	// RunID tags every result. Empty generates a UUIDv7.
	RunID string
}

// Job names one session to evaluate.
type Job struct {
	LogPath    string
	SchemaPath string
}

// Evaluator evaluates sessions. It is safe for concurrent use.
type Evaluator struct {
	opts      Options
	extractor *fragment.Extractor
	sink      Sink
	logger    *zap.Logger
}

// New creates an Evaluator. sink may be nil.
func New(opts Options, extractor *fragment.Extractor, sink Sink, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = fragment.NewExtractor(fragment.Options{}, logger)
	}
	if opts.Model == "" {
		opts.Model = fragment.ModelClauses
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.RunID == "" {
		opts.RunID = uuid.Must(uuid.NewV7()).String()
	}
	return &Evaluator{
		opts:      opts,
		extractor: extractor,
		sink:      sink,
		logger:    logger.Named("evaluator"),
	}
}

// RunID returns the identifier shared by every result of this Evaluator.
func (e *Evaluator) RunID() string {
	return e.opts.RunID
}

// EvaluateSession evaluates one session log against a schema file.
func (e *Evaluator) EvaluateSession(ctx context.Context, logPath, schemaPath string) SessionResult {
	return e.evaluate(ctx, 0, Job{LogPath: logPath, SchemaPath: schemaPath})
}

func (e *Evaluator) evaluate(ctx context.Context, seq int, job Job) SessionResult {
	start := time.Now()
	res := SessionResult{
		RunID:      e.opts.RunID,
		Seq:        seq,
		Name:       report.Stem(job.LogPath),
		LogPath:    job.LogPath,
		SchemaPath: job.SchemaPath,
		Model:      e.opts.Model,
		Record:     metrics.Record{},
	}
	logger := e.logger.With(zap.String("session", res.Name))

	if err := ctx.Err(); err != nil {
		res.fail(StageSession, err)
		return res
	}

	doc, err := sessionlog.Load(job.LogPath)
	if err != nil {
		logger.Error("session log unusable", zap.Error(err))
		res.fail(StageSession, err)
		e.save(ctx, &res)
		return res
	}

	if res.SchemaPath == "" {
		res.SchemaPath = e.resolveSchema(doc, logger)
	}
	sch := schema.Load(res.SchemaPath, logger).Normalize(e.extractor.Normalizer())

	s := &session{extractor: e.extractor, parsed: make(map[string]fragment.ParsedQuery)}

	e.run(&res, StageCoverage, logger, func() (metrics.Record, error) {
		recs, err := doc.Recommendations()
		if err != nil {
			return nil, err
		}
		turns := make([][]fragment.ParsedQuery, len(recs))
		for i, turn := range recs {
			turns[i] = s.extractAll(turn)
		}
		return coverage.Evaluate(turns, sch), nil
	})

	e.run(&res, StageCohesion, logger, func() (metrics.Record, error) {
		chosen, err := doc.ChosenQueries()
		if err != nil {
			return nil, err
		}
		return cohesion.Evaluate(s.extractAll(chosen), e.opts.Model), nil
	})

	if e.opts.OutputDir != "" {
		path, err := report.WriteFile(e.opts.OutputDir, res.Name, res.Record)
		if err != nil {
			logger.Error("report not written", zap.Error(err))
			res.fail(StageReport, err)
		} else {
			res.ReportPath = path
		}
	}

	e.save(ctx, &res)

	logger.Info("session evaluated",
		zap.Int("metrics", len(res.Record)),
		zap.Strings("failed", res.Errors.Stages()),
		zap.Duration("elapsed", time.Since(start)))
	return res
}

// run executes one evaluator and merges its keys into res.Record. An error
// or panic is recorded against stage and leaves the record untouched.
func (e *Evaluator) run(res *SessionResult, stage string, logger *zap.Logger, fn func() (metrics.Record, error)) {
	rec, err := guard(stage, fn)
	if err != nil {
		logger.Warn("evaluator failed", zap.String("evaluator", stage), zap.Error(err))
		res.fail(stage, err)
		return
	}
	if err := res.Record.Merge(rec); err != nil {
		res.fail(StageMerge, err)
	}
}

func guard(stage string, fn func() (metrics.Record, error)) (rec metrics.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %s: %v", ErrEvaluatorPanic, stage, r)
		}
	}()
	return fn()
}

func (e *Evaluator) resolveSchema(doc *sessionlog.Document, logger *zap.Logger) string {
	if e.opts.SchemaDir == "" {
		return ""
	}
	dbID, err := doc.DatabaseID()
	if err != nil {
		logger.Warn("log metadata unusable", zap.Error(err))
	}
	if dbID == "" {
		dbID = e.opts.DefaultDBID
	}
	if dbID == "" {
		logger.Warn("log names no database and no default is configured")
		return ""
	}
	return schema.ResolvePath(e.opts.SchemaDir, dbID)
}

func (e *Evaluator) save(ctx context.Context, res *SessionResult) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Save(ctx, *res); err != nil {
		e.logger.Error("record not stored", zap.String("session", res.Name), zap.Error(err))
		res.fail(StageStore, err)
	}
}

// session memoizes extraction so SQL shared by the chosen and recommended
// views is parsed once.
type session struct {
	extractor *fragment.Extractor
	parsed    map[string]fragment.ParsedQuery
}

func (s *session) extractAll(sqls []string) []fragment.ParsedQuery {
	out := make([]fragment.ParsedQuery, len(sqls))
	for i, sql := range sqls {
		q, ok := s.parsed[sql]
		if !ok {
			q = s.extractor.Extract(sql)
			s.parsed[sql] = q
		}
		out[i] = q
	}
	return out
}
