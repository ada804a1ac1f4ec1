package dep

import "fmt"

// SecondsPerDay converts schedule boundaries given in days to the
// seconds used everywhere inside the engine.
const SecondsPerDay = 86400.0

// CoarseStep is one high-fidelity-bounded interval of the schedule.
// Times are seconds of simulated exposure since start of run.
type CoarseStep struct {
	Start    float64
	End      float64
	Power    float64 // W, constant across the step
	Substeps int     // interior division count, >= 1
}

// Duration returns the step length in seconds.
func (cs CoarseStep) Duration() float64 { return cs.End - cs.Start }

// Interval is one substep of a coarse step.
type Interval struct {
	Start float64
	End   float64
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 { return iv.End - iv.Start }

// Schedule owns the coarse/substep time grid and per-step power. It is
// the single source of truth for "what simulated time are we at": every
// component timestamps rate samples and depletion intervals from it.
// Immutable after construction except for the cursor, which only the
// integrator's Advance step moves (single writer).
type Schedule struct {
	steps       []CoarseStep
	cursor      int
	preliminary int
}

// NewSchedule builds a schedule from coarse-step boundaries in days,
// strictly increasing from (an implicit) zero. Power is either one
// value broadcast to all steps or one per step. Substep counts follow
// the same rule with a default of one. The first numPreliminary steps
// run high-fidelity-only with no substep division, for approaching
// equilibrium before coupled behavior engages.
// All violations wrap ErrScheduleConfig.
func NewSchedule(boundaryDays []float64, powers []float64, substeps []int, numPreliminary int) (*Schedule, error) {
	n := len(boundaryDays)
	if n == 0 {
		return nil, fmt.Errorf("%w: no coarse steps given", ErrScheduleConfig)
	}
	prev := 0.0
	for i, d := range boundaryDays {
		if d <= prev {
			return nil, fmt.Errorf("%w: boundaries must increase strictly from zero, step %d is %g d after %g d", ErrScheduleConfig, i, d, prev)
		}
		prev = d
	}
	switch len(powers) {
	case 1:
		p := powers[0]
		powers = make([]float64, n)
		for i := range powers {
			powers[i] = p
		}
	case n:
	default:
		return nil, fmt.Errorf("%w: %d powers for %d steps", ErrScheduleConfig, len(powers), n)
	}
	for i, p := range powers {
		if p <= 0 {
			return nil, fmt.Errorf("%w: power for step %d is %g W", ErrScheduleConfig, i, p)
		}
	}
	switch len(substeps) {
	case 0:
		substeps = make([]int, n)
		for i := range substeps {
			substeps[i] = 1
		}
	case 1:
		s := substeps[0]
		substeps = make([]int, n)
		for i := range substeps {
			substeps[i] = s
		}
	case n:
	default:
		return nil, fmt.Errorf("%w: %d substep counts for %d steps", ErrScheduleConfig, len(substeps), n)
	}
	for i, s := range substeps {
		if s < 1 {
			return nil, fmt.Errorf("%w: substep count for step %d is %d", ErrScheduleConfig, i, s)
		}
	}
	if numPreliminary < 0 || numPreliminary >= n {
		return nil, fmt.Errorf("%w: %d preliminary steps for %d total", ErrScheduleConfig, numPreliminary, n)
	}

	sched := &Schedule{preliminary: numPreliminary}
	start := 0.0
	for i, d := range boundaryDays {
		end := d * SecondsPerDay
		sched.steps = append(sched.steps, CoarseStep{
			Start:    start,
			End:      end,
			Power:    powers[i],
			Substeps: substeps[i],
		})
		start = end
	}
	return sched, nil
}

// Len returns the number of coarse steps.
func (s *Schedule) Len() int { return len(s.steps) }

// Current returns the cursor: the index of the coarse step about to run.
func (s *Schedule) Current() int { return s.cursor }

// Done reports whether the schedule is exhausted.
func (s *Schedule) Done() bool { return s.cursor >= len(s.steps) }

// Advance moves the cursor to the next coarse step.
func (s *Schedule) Advance() { s.cursor++ }

// Step returns the coarse step at index i.
func (s *Schedule) Step(i int) CoarseStep { return s.steps[i] }

// Power returns the power of coarse step i in watts.
func (s *Schedule) Power(i int) float64 { return s.steps[i].Power }

// IsPreliminary reports whether step i runs before coupled behavior
// engages: no substep division and no correction pass.
func (s *Schedule) IsPreliminary(i int) bool { return i < s.preliminary }

// SubstepsOf divides coarse step i into its equal substep intervals.
// Preliminary steps always yield a single interval.
func (s *Schedule) SubstepsOf(i int) []Interval {
	cs := s.steps[i]
	n := cs.Substeps
	if s.IsPreliminary(i) {
		n = 1
	}
	dt := cs.Duration() / float64(n)
	out := make([]Interval, n)
	for k := 0; k < n; k++ {
		out[k] = Interval{Start: cs.Start + float64(k)*dt, End: cs.Start + float64(k+1)*dt}
	}
	// avoid accumulated rounding at the step boundary
	out[n-1].End = cs.End
	return out
}

// TotalDays returns the full schedule span in days.
func (s *Schedule) TotalDays() float64 {
	return s.steps[len(s.steps)-1].End / SecondsPerDay
}
