package evaluator

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EvaluateBatch evaluates jobs with at most Options.Workers sessions in
// flight. Results are in job order. A failing session never stops the
// others; jobs that have not started when ctx is done fail with ctx.Err().
func (e *Evaluator) EvaluateBatch(ctx context.Context, jobs []Job) []SessionResult {
	return e.EvaluateBatchProgress(ctx, jobs, nil)
}

// EvaluateBatchProgress is EvaluateBatch with a callback invoked after each
// session completes. onProgress is called from one goroutine at a time.
func (e *Evaluator) EvaluateBatchProgress(ctx context.Context, jobs []Job, onProgress func(completed, total int, res SessionResult)) []SessionResult {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]SessionResult, len(jobs))
	done := make(chan int, len(jobs))
	sem := make(chan struct{}, e.opts.Workers)

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = e.cancelled(ctx, i, job)
				done <- i
				return
			}

			results[i] = e.evaluate(ctx, i, job)
			done <- i
		}(i, job)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for i := range done {
		completed++
		if onProgress != nil {
			onProgress(completed, len(jobs), results[i])
		}
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	e.logger.Info("batch finished",
		zap.String("run_id", e.opts.RunID),
		zap.Int("sessions", len(jobs)),
		zap.Int("failed", failed))
	return results
}

func (e *Evaluator) cancelled(ctx context.Context, seq int, job Job) SessionResult {
	res := e.evaluate(ctx, seq, job)
	if !res.Fatal() {
		res.fail(StageSession, ctx.Err())
	}
	return res
}
