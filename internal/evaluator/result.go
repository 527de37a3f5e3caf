package evaluator

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/roach88/qrecmetrics/internal/fragment"
	"github.com/roach88/qrecmetrics/internal/metrics"
)

// ErrEvaluatorPanic marks an evaluator that panicked. The panic is confined
// to that evaluator's keys.
var ErrEvaluatorPanic = errors.New("evaluator panicked")

// Failure stages recorded in SessionResult.Errors.
const (
	StageSession  = "session"
	StageCoverage = "coverage"
	StageCohesion = "cohesion"
	StageMerge    = "merge"
	StageReport   = "report"
	StageStore    = "store"
)

// Failures maps a stage to the error it ended with.
type Failures map[string]error

// Stages returns the failed stages in sorted order.
func (f Failures) Stages() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes each error as its message.
func (f Failures) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(f))
	for k, err := range f {
		m[k] = err.Error()
	}
	return json.Marshal(m)
}

// SessionResult is the outcome of evaluating one session log.
type SessionResult struct {
	RunID      string         `json:"run_id"`
	Seq        int            `json:"seq"`
	Name       string         `json:"session"`
	LogPath    string         `json:"log_path"`
	SchemaPath string         `json:"schema_path,omitempty"`
	Model      fragment.Model `json:"fragment_model"`
	Record     metrics.Record `json:"metrics"`
	ReportPath string         `json:"report_path,omitempty"`
	Errors     Failures       `json:"errors,omitempty"`
}

// Failed reports whether any stage failed.
func (r SessionResult) Failed() bool {
	return len(r.Errors) > 0
}

// Fatal reports whether the session produced no metrics at all.
func (r SessionResult) Fatal() bool {
	_, ok := r.Errors[StageSession]
	return ok
}

func (r *SessionResult) fail(stage string, err error) {
	if r.Errors == nil {
		r.Errors = make(Failures)
	}
	r.Errors[stage] = err
}
