package dep

import (
	"github.com/hybrid-depletion/hybrid-depletion/dep/trace"
)

// ResultStore archives committed coarse steps. Called exactly once per
// step from the integrator's Advance phase, append-only.
type ResultStore interface {
	Record(step int, result *StepResult, timeDays, power float64, compositions [][]float64) error
}

// TraceStore archives into an in-memory RunTrace, the default store
// behind CLI runs and tests.
type TraceStore struct {
	Trace *trace.RunTrace
}

// NewTraceStore creates a store with an empty trace.
func NewTraceStore() *TraceStore {
	return &TraceStore{Trace: trace.NewRunTrace()}
}

// Record appends one committed step.
func (ts *TraceStore) Record(step int, result *StepResult, timeDays, power float64, compositions [][]float64) error {
	ts.Trace.Append(trace.StepRecord{
		Step:         step,
		TimeDays:     timeDays,
		Keff:         result.Keff,
		KeffStd:      result.KeffStd,
		Power:        power,
		RunTime:      result.RunTime,
		Compositions: compositions,
	})
	return nil
}

// discardStore drops everything; used when no store is configured.
type discardStore struct{}

func (discardStore) Record(int, *StepResult, float64, float64, [][]float64) error { return nil }
