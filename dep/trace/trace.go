package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// RunTrace is the append-only archive of committed coarse steps.
type RunTrace struct {
	Records []StepRecord
}

// NewRunTrace creates an empty trace.
func NewRunTrace() *RunTrace {
	return &RunTrace{Records: make([]StepRecord, 0)}
}

// Append stores one committed step record.
func (rt *RunTrace) Append(rec StepRecord) {
	rt.Records = append(rt.Records, rec)
}

// WriteCSV emits one row per committed step: index, exposure time,
// eigenvalue with uncertainty, power, and solve wall time.
func (rt *RunTrace) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "time_days", "keff", "keff_std", "power_w", "solve_seconds"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range rt.Records {
		row := []string{
			strconv.Itoa(rec.Step),
			strconv.FormatFloat(rec.TimeDays, 'g', -1, 64),
			strconv.FormatFloat(rec.Keff, 'g', -1, 64),
			strconv.FormatFloat(rec.KeffStd, 'g', -1, 64),
			strconv.FormatFloat(rec.Power, 'g', -1, 64),
			strconv.FormatFloat(rec.RunTime.Seconds(), 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", rec.Step, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
