// Package trace collects per-step results of a coupled depletion run.
// It has no dependency on dep/; it stores pure data types, so result
// consumers do not pull in the engine.
package trace

import "time"

// StepRecord captures one committed coarse step.
type StepRecord struct {
	Step         int
	TimeDays     float64 // end-of-step exposure
	Keff         float64
	KeffStd      float64
	Power        float64         // W
	RunTime      time.Duration   // wall time of the transport solves
	Compositions [][]float64     // end-of-step atom densities per region
}
