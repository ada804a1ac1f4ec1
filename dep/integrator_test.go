package dep

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSolver is a high-fidelity stand-in returning fixed flux and a
// caller-supplied rate function of the current compositions.
type stubSolver struct {
	index    *RateIndex
	keff     float64
	rateFunc func(regions []*Region, rates *RateArray)
	calls    int
	fail     error
}

func (s *stubSolver) Features() FeatureSet {
	return NewFeatureSet(FeatureLocalRates, FeatureLocalFlux)
}

func (s *stubSolver) Solve(ctx context.Context, regions []*Region, power float64) (*StepResult, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	rates := NewRateArray(s.index, len(regions))
	if s.rateFunc != nil {
		s.rateFunc(regions, rates)
	}
	flux := make([]float64, len(regions))
	for i := range flux {
		flux[i] = 1e14
	}
	return &StepResult{Keff: s.keff, Flux: flux, Rates: rates}, nil
}

// needyROM declares a need the stub high-fidelity solver cannot cover.
type needyROM struct{ stubSolver }

func (r *needyROM) Needs() FeatureSet { return NewFeatureSet(FeatureFissionSource) }

func decaySetup(t *testing.T, chain *Chain, boundaries []float64, substeps []int, policy CorrectionPolicy, hf HighFidelitySolver, store ResultStore) IntegratorSetup {
	t.Helper()
	sched, err := NewSchedule(boundaries, []float64{1e6}, substeps, 0)
	require.NoError(t, err)
	density := make([]float64, chain.Len())
	density[0] = 1e20
	return IntegratorSetup{
		Chain:    chain,
		Schedule: sched,
		Geometry: &StaticGeometry{Regions: []*Region{
			{Name: "fuel", Volume: 100, Temperature: 900, Density: density},
		}},
		HighFidelity:  hf,
		Store:         store,
		CRAMOrder:     16,
		FittingOrder:  1,
		FittingPoints: 3,
		Policy:        policy,
	}
}

func TestIntegrator_PureDecayMatchesAnalytic(t *testing.T) {
	// GIVEN lambda = 0.1/day, one 10-day coarse step, one substep,
	// and a transport solver scoring no reactions
	lambda := 0.1 / SecondsPerDay
	chain := singleDecayChain(t, lambda)
	hf := &stubSolver{index: chain.RateIndex(), keff: 1.0}

	it, err := NewIntegrator(decaySetup(t, chain, []float64{10}, nil, PolicyPredictor, hf, nil))
	require.NoError(t, err)

	// WHEN the schedule runs to exhaustion
	require.NoError(t, it.Run(context.Background()))

	// THEN the final density is initial * exp(-1)
	got := it.Regions()[0].Density[0]
	assert.InEpsilon(t, 1e20*math.Exp(-1), got, 1e-10)
	assert.True(t, it.Schedule().Done())
}

func TestIntegrator_TwoStepsCommitAndExhaust(t *testing.T) {
	// two coarse steps of 5 days each, predictor only, constant power
	lambda := 0.05 / SecondsPerDay
	chain := singleDecayChain(t, lambda)
	hf := &stubSolver{index: chain.RateIndex(), keff: 1.02}
	store := NewTraceStore()

	it, err := NewIntegrator(decaySetup(t, chain, []float64{5, 10}, nil, PolicyPredictor, hf, store))
	require.NoError(t, err)
	require.NoError(t, it.Run(context.Background()))

	// total elapsed simulated time is 10 days and the cursor reports
	// exhaustion
	require.Len(t, store.Trace.Records, 2)
	assert.InDelta(t, 10.0, store.Trace.Records[1].TimeDays, 1e-12)
	assert.True(t, it.Schedule().Done())
	assert.Equal(t, 2, hf.calls, "predictor runs one transport solve per step")

	// committed composition decayed across the full 10 days
	assert.InEpsilon(t, 1e20*math.Exp(-0.5), it.Regions()[0].Density[0], 1e-9)
}

// feedbackChain models a single absorber with a capture rate
// proportional to its own density: n' = -r0 n^2 / n0, whose exact
// solution n0/(1 + r0 t) exposes time-discretization error.
func feedbackChain(t *testing.T) (*Chain, *RateIndex) {
	t.Helper()
	chain, err := NewChain([]Nuclide{
		{
			Name:      "absorber",
			ZAI:       ZAI(10010),
			Reactions: []ReactionChannel{{MT: MTCapture, Target: ZAI(20040), Branch: 1}},
		},
	})
	require.NoError(t, err)
	return chain, chain.RateIndex()
}

func feedbackHF(idx *RateIndex, r0, n0 float64) *stubSolver {
	return &stubSolver{
		index: idx,
		keff:  1.0,
		rateFunc: func(regions []*Region, rates *RateArray) {
			for i, reg := range regions {
				rates.Row(i)[0] = r0 * reg.Density[0] / n0
			}
		},
	}
}

func TestIntegrator_CorrectorBeatsPredictor(t *testing.T) {
	const (
		n0   = 1e20
		span = 5.0 // days
	)
	r0 := 0.5 / (span * SecondsPerDay) // r0 * span = 0.5

	chain, idx := feedbackChain(t)

	run := func(boundaries []float64, policy CorrectionPolicy) float64 {
		it, err := NewIntegrator(decaySetup(t, chain, boundaries, nil, policy, feedbackHF(idx, r0, n0), nil))
		require.NoError(t, err)
		require.NoError(t, it.Run(context.Background()))
		return it.Regions()[0].Density[0]
	}

	// fine-substep reference: 100 coarse steps over the same span
	fineBoundaries := make([]float64, 100)
	for i := range fineBoundaries {
		fineBoundaries[i] = span * float64(i+1) / 100
	}
	reference := run(fineBoundaries, PolicyPredictor)

	predicted := run([]float64{span}, PolicyPredictor)
	corrected := run([]float64{span}, PolicyPredictorCorrector)

	errPredict := math.Abs(predicted - reference)
	errCorrect := math.Abs(corrected - reference)
	if errCorrect >= errPredict {
		t.Errorf("corrector error %g not smaller than predictor error %g", errCorrect, errPredict)
	}

	// sanity: the reference tracks the exact solution n0/(1 + r0 t)
	exact := n0 / (1 + r0*span*SecondsPerDay)
	assert.InEpsilon(t, exact, reference, 5e-3)
}

func TestIntegrator_CorrectorCostsOneExtraSolve(t *testing.T) {
	chain, idx := feedbackChain(t)
	hf := feedbackHF(idx, 1e-7, 1e20)

	it, err := NewIntegrator(decaySetup(t, chain, []float64{5, 10}, nil, PolicyPredictorCorrector, hf, nil))
	require.NoError(t, err)
	require.NoError(t, it.Run(context.Background()))

	assert.Equal(t, 4, hf.calls, "two steps, two solves each")
}

func TestIntegrator_SubstepsUseFittedRates(t *testing.T) {
	// with substep division enabled and no reduced-order solver, the
	// engine still runs: interior substeps draw on the fitting window
	lambda := 0.1 / SecondsPerDay
	chain := singleDecayChain(t, lambda)
	hf := &stubSolver{index: chain.RateIndex(), keff: 1.0}

	it, err := NewIntegrator(decaySetup(t, chain, []float64{5, 10}, []int{4}, PolicyPredictor, hf, nil))
	require.NoError(t, err)
	require.NoError(t, it.Run(context.Background()))

	// decay-only problem: substep division cannot change the answer
	assert.InEpsilon(t, 1e20*math.Exp(-1), it.Regions()[0].Density[0], 1e-9)
	assert.Equal(t, 2, hf.calls)
}

func TestIntegrator_SolverFailureAbortsRun(t *testing.T) {
	chain := singleDecayChain(t, 1e-6)
	hf := &stubSolver{index: chain.RateIndex(), fail: errors.New("lost cross-section server")}
	store := NewTraceStore()

	it, err := NewIntegrator(decaySetup(t, chain, []float64{5}, nil, PolicyPredictor, hf, store))
	require.NoError(t, err)

	err = it.Run(context.Background())
	if !errors.Is(err, ErrSolverFailed) {
		t.Errorf("Run error = %v, want ErrSolverFailed", err)
	}
	// nothing was committed
	assert.Empty(t, store.Trace.Records)
	assert.False(t, it.Schedule().Done())
}

func TestIntegrator_ContextCancelStopsBetweenSteps(t *testing.T) {
	chain := singleDecayChain(t, 1e-6)
	hf := &stubSolver{index: chain.RateIndex(), keff: 1.0}

	it, err := NewIntegrator(decaySetup(t, chain, []float64{5, 10}, nil, PolicyPredictor, hf, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = it.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, hf.calls)
}

func TestNewIntegrator_Validation(t *testing.T) {
	chain := singleDecayChain(t, 1e-6)
	hf := &stubSolver{index: chain.RateIndex()}

	// missing volume
	setup := decaySetup(t, chain, []float64{5}, nil, PolicyPredictor, hf, nil)
	setup.Geometry.(*StaticGeometry).Regions[0].Volume = 0
	_, err := NewIntegrator(setup)
	assert.ErrorContains(t, err, "volume")

	// incompatible reduced-order solver
	setup = decaySetup(t, chain, []float64{5}, nil, PolicyPredictor, hf, nil)
	setup.ReducedOrder = &needyROM{stubSolver{index: chain.RateIndex()}}
	_, err = NewIntegrator(setup)
	assert.ErrorIs(t, err, ErrIncompatibleSolvers)

	// bad policy
	setup = decaySetup(t, chain, []float64{5}, nil, CorrectionPolicy("euler"), hf, nil)
	_, err = NewIntegrator(setup)
	assert.ErrorContains(t, err, "policy")
}

func TestIntegrator_ReducedOrderSolverServesSubsteps(t *testing.T) {
	// a compatible reduced-order solver is invoked at interior
	// substeps instead of the fitting engine
	chain, idx := feedbackChain(t)
	hf := feedbackHF(idx, 1e-7, 1e20)
	rom := &plainROM{feedbackHF(idx, 1e-7, 1e20)}

	setup := decaySetup(t, chain, []float64{5}, []int{3}, PolicyPredictor, hf, nil)
	setup.ReducedOrder = rom
	it, err := NewIntegrator(setup)
	require.NoError(t, err)
	require.NoError(t, it.Run(context.Background()))

	assert.Equal(t, 1, hf.calls)
	assert.Equal(t, 2, rom.calls, "one reduced-order solve per interior substep")
}

// plainROM wraps a stub as a reduced-order solver with modest needs.
type plainROM struct{ *stubSolver }

func (r *plainROM) Needs() FeatureSet { return NewFeatureSet(FeatureLocalFlux) }
