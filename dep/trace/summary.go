package trace

import "time"

// Summary aggregates a RunTrace.
type Summary struct {
	Steps        int
	TotalDays    float64
	InitialKeff  float64
	FinalKeff    float64
	DeltaKeff    float64
	TotalRunTime time.Duration
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *Summary {
	s := &Summary{}
	if rt == nil || len(rt.Records) == 0 {
		return s
	}
	s.Steps = len(rt.Records)
	s.InitialKeff = rt.Records[0].Keff
	last := rt.Records[len(rt.Records)-1]
	s.FinalKeff = last.Keff
	s.DeltaKeff = s.FinalKeff - s.InitialKeff
	s.TotalDays = last.TimeDays
	for _, rec := range rt.Records {
		s.TotalRunTime += rec.RunTime
	}
	return s
}
