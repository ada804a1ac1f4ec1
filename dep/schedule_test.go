package dep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule_RejectsNonMonotonicBoundaries(t *testing.T) {
	cases := [][]float64{
		{},
		{0},
		{-5, 10},
		{5, 5},
		{10, 5},
	}
	for _, boundaries := range cases {
		_, err := NewSchedule(boundaries, []float64{1e6}, nil, 0)
		if !errors.Is(err, ErrScheduleConfig) {
			t.Errorf("NewSchedule(%v) error = %v, want ErrScheduleConfig", boundaries, err)
		}
	}
}

func TestNewSchedule_RejectsPowerMismatch(t *testing.T) {
	_, err := NewSchedule([]float64{5, 10}, []float64{1e6, 2e6, 3e6}, nil, 0)
	if !errors.Is(err, ErrScheduleConfig) {
		t.Errorf("NewSchedule error = %v, want ErrScheduleConfig", err)
	}

	_, err = NewSchedule([]float64{5, 10}, []float64{1e6, -2e6}, nil, 0)
	if !errors.Is(err, ErrScheduleConfig) {
		t.Errorf("NewSchedule with negative power error = %v, want ErrScheduleConfig", err)
	}
}

func TestNewSchedule_RejectsBadSubstepsAndPreliminary(t *testing.T) {
	if _, err := NewSchedule([]float64{5, 10}, []float64{1e6}, []int{2, 0}, 0); !errors.Is(err, ErrScheduleConfig) {
		t.Errorf("zero substeps error = %v, want ErrScheduleConfig", err)
	}
	if _, err := NewSchedule([]float64{5, 10}, []float64{1e6}, []int{2, 2, 2}, 0); !errors.Is(err, ErrScheduleConfig) {
		t.Errorf("substep list mismatch error = %v, want ErrScheduleConfig", err)
	}
	if _, err := NewSchedule([]float64{5, 10}, []float64{1e6}, nil, 2); !errors.Is(err, ErrScheduleConfig) {
		t.Errorf("preliminary >= steps error = %v, want ErrScheduleConfig", err)
	}
}

func TestSchedule_BroadcastAndGrid(t *testing.T) {
	// GIVEN scalar power and substeps broadcast over three steps
	sched, err := NewSchedule([]float64{2, 5, 10}, []float64{4e6}, []int{4}, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, sched.Len())
	assert.Equal(t, 4e6, sched.Power(2))
	assert.Equal(t, 10.0, sched.TotalDays())

	// step 1 spans days 2..5
	step := sched.Step(1)
	assert.Equal(t, 2*SecondsPerDay, step.Start)
	assert.Equal(t, 5*SecondsPerDay, step.End)

	// WHEN the step is divided
	ivs := sched.SubstepsOf(1)

	// THEN the four substeps tile the step exactly
	require.Len(t, ivs, 4)
	assert.Equal(t, step.Start, ivs[0].Start)
	assert.Equal(t, step.End, ivs[3].End)
	for k := 1; k < 4; k++ {
		assert.Equal(t, ivs[k-1].End, ivs[k].Start)
	}
}

func TestSchedule_PreliminaryStepsSkipDivision(t *testing.T) {
	sched, err := NewSchedule([]float64{1, 2, 10}, []float64{1e6}, []int{8}, 2)
	require.NoError(t, err)

	assert.True(t, sched.IsPreliminary(0))
	assert.True(t, sched.IsPreliminary(1))
	assert.False(t, sched.IsPreliminary(2))

	assert.Len(t, sched.SubstepsOf(0), 1)
	assert.Len(t, sched.SubstepsOf(1), 1)
	assert.Len(t, sched.SubstepsOf(2), 8)
}

func TestSchedule_CursorLifecycle(t *testing.T) {
	sched, err := NewSchedule([]float64{5, 10}, []float64{1e6}, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, sched.Current())
	assert.False(t, sched.Done())
	sched.Advance()
	assert.Equal(t, 1, sched.Current())
	assert.False(t, sched.Done())
	sched.Advance()
	assert.True(t, sched.Done())
}
