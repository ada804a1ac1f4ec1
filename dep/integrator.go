package dep

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Integrator drives the coupled transport-depletion sequence. Per
// coarse step it runs the fixed state machine
//
//	AwaitHighFidelity -> DistributeSubsteps -> DepleteAll -> Corrected? -> Advance
//
// Coarse steps are strictly sequential: substep rates depend on the
// previous step's final composition. Within DepleteAll the per-region
// solves fan out in parallel, joining before Corrected?/Advance.
type Integrator struct {
	chain    *Chain
	schedule *Schedule
	hf       HighFidelitySolver
	rom      ReducedOrderSolver // nil: substep rates come from the fitting engine
	regions  []*Region
	index    *RateIndex
	history  *RateHistory
	cram     *CRAMSolver
	policy   CorrectionPolicy
	store    ResultStore
}

// IntegratorSetup wires the integrator's collaborators. ReducedOrder
// and Store are optional; everything else is required.
type IntegratorSetup struct {
	Chain        *Chain
	Schedule     *Schedule
	Geometry     MaterialProvider
	HighFidelity HighFidelitySolver
	ReducedOrder ReducedOrderSolver
	Store        ResultStore

	CRAMOrder     int // 16 or 48
	FittingOrder  int
	FittingPoints int
	Policy        CorrectionPolicy
}

// NewIntegrator validates the geometry, checks solver compatibility,
// and assembles the run. All configuration errors surface here, before
// any expensive transport work.
func NewIntegrator(setup IntegratorSetup) (*Integrator, error) {
	if setup.Chain == nil || setup.Schedule == nil || setup.Geometry == nil || setup.HighFidelity == nil {
		return nil, fmt.Errorf("chain, schedule, geometry, and high-fidelity solver are all required")
	}
	regions := setup.Geometry.BurnableRegions()
	if err := validateRegions(setup.Chain, regions); err != nil {
		return nil, err
	}

	needs := make(FeatureSet, len(integratorNeeds))
	for f := range integratorNeeds {
		needs[f] = true
	}
	if setup.ReducedOrder != nil {
		for f := range setup.ReducedOrder.Needs() {
			needs[f] = true
		}
	}
	if err := CheckCompatibility(setup.HighFidelity, needs); err != nil {
		return nil, err
	}

	cramSolver, err := NewCRAMSolver(setup.CRAMOrder)
	if err != nil {
		return nil, err
	}
	index := setup.Chain.RateIndex()
	history, err := NewRateHistory(index, len(regions), setup.FittingPoints, setup.FittingOrder)
	if err != nil {
		return nil, err
	}
	store := setup.Store
	if store == nil {
		store = discardStore{}
	}
	policy := setup.Policy
	if policy == "" {
		policy = PolicyPredictor
	}
	if !ValidCorrectionPolicies[policy] {
		return nil, fmt.Errorf("unknown integrator policy %q", policy)
	}

	return &Integrator{
		chain:    setup.Chain,
		schedule: setup.Schedule,
		hf:       setup.HighFidelity,
		rom:      setup.ReducedOrder,
		regions:  regions,
		index:    index,
		history:  history,
		cram:     cramSolver,
		policy:   policy,
		store:    store,
	}, nil
}

// NewIntegratorFromConfig assembles the integrator from a validated
// RunConfig plus its collaborators.
func NewIntegratorFromConfig(cfg *RunConfig, chain *Chain, geom MaterialProvider, hf HighFidelitySolver, rom ReducedOrderSolver, store ResultStore) (*Integrator, error) {
	sched, err := cfg.BuildSchedule()
	if err != nil {
		return nil, err
	}
	return NewIntegrator(IntegratorSetup{
		Chain:         chain,
		Schedule:      sched,
		Geometry:      geom,
		HighFidelity:  hf,
		ReducedOrder:  rom,
		Store:         store,
		CRAMOrder:     ValidCRAMOrders[cfg.Depletion.Solver],
		FittingOrder:  cfg.Depletion.FittingOrder,
		FittingPoints: cfg.Depletion.FittingPoints,
		Policy:        CorrectionPolicy(cfg.Integrator.Policy),
	})
}

// Schedule exposes the schedule, mostly so callers can inspect the
// cursor after a run.
func (it *Integrator) Schedule() *Schedule { return it.schedule }

// Regions exposes the ordered burnable regions.
func (it *Integrator) Regions() []*Region { return it.regions }

// Run executes the whole schedule. Any solver or depletion error
// aborts the run: transport results are load-bearing for every
// downstream depletion, so there is no continuation with stale data.
// The context is honored between coarse steps only; an in-flight
// transport solve is never interrupted.
func (it *Integrator) Run(ctx context.Context) error {
	for !it.schedule.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run aborted before step %d: %w", it.schedule.Current(), err)
		}
		if err := it.runStep(ctx, it.schedule.Current()); err != nil {
			return err
		}
	}
	logrus.Infof("[day %8.3f] schedule exhausted after %d steps", it.schedule.TotalDays(), it.schedule.Len())
	return nil
}

func (it *Integrator) runStep(ctx context.Context, stepIdx int) error {
	step := it.schedule.Step(stepIdx)

	// AwaitHighFidelity
	bos, err := it.hf.Solve(ctx, it.regions, step.Power)
	if err != nil {
		return fmt.Errorf("%w: high-fidelity solve at step %d: %v", ErrSolverFailed, stepIdx, err)
	}
	if err := it.history.Record(step.Start, bos.Rates); err != nil {
		return fmt.Errorf("recording rates at step %d: %w", stepIdx, err)
	}
	logrus.Infof("[day %8.3f] step %d begin: keff = %.5f +/- %.5f, power = %.4g W",
		step.Start/SecondsPerDay, stepIdx, bos.Keff, bos.KeffStd, step.Power)

	// DistributeSubsteps + DepleteAll
	comps := it.snapshot()
	if err := it.predictorSweep(ctx, stepIdx, step, bos, comps); err != nil {
		return err
	}

	// Corrected?
	result := bos
	solveTime := bos.RunTime
	if it.policy.corrects() && !it.schedule.IsPreliminary(stepIdx) {
		eos, err := it.hf.Solve(ctx, it.cloneWith(comps), step.Power)
		if err != nil {
			return fmt.Errorf("%w: corrector solve at step %d: %v", ErrSolverFailed, stepIdx, err)
		}
		avg, err := it.policy.combineRates(bos.Rates, eos.Rates)
		if err != nil {
			return fmt.Errorf("combining rates at step %d: %w", stepIdx, err)
		}
		// second sweep restarts from the committed begin-of-step state;
		// with rates held constant one advance spans the whole step
		comps = it.snapshot()
		if err := it.depleteAll(ctx, avg, step.Duration(), comps); err != nil {
			return fmt.Errorf("corrector depletion at step %d: %w", stepIdx, err)
		}
		result = eos
		solveTime += eos.RunTime
		logrus.Debugf("[day %8.3f] step %d corrected: keff(eos) = %.5f", step.End/SecondsPerDay, stepIdx, eos.Keff)
	}

	// Advance
	it.commit(comps)
	result.RunTime = solveTime
	if err := it.store.Record(stepIdx, result, step.End/SecondsPerDay, step.Power, it.snapshot()); err != nil {
		return fmt.Errorf("storing step %d: %w", stepIdx, err)
	}
	it.schedule.Advance()
	return nil
}

// predictorSweep depletes every region across the step's substeps,
// mutating comps in place. Substep zero uses the fresh high-fidelity
// rates; interior substeps use the reduced-order solver when one is
// configured, otherwise the fitting engine's extrapolation. That
// choice is a configuration policy fixed for the run, never improvised
// per call.
func (it *Integrator) predictorSweep(ctx context.Context, stepIdx int, step CoarseStep, bos *StepResult, comps [][]float64) error {
	for k, iv := range it.schedule.SubstepsOf(stepIdx) {
		rates := bos.Rates
		if k > 0 {
			var err error
			rates, err = it.substepRates(ctx, iv.Start, step.Power, comps)
			if err != nil {
				return fmt.Errorf("substep %d of step %d: %w", k, stepIdx, err)
			}
		}
		logrus.Debugf("[day %8.3f] step %d substep %d: dt = %.4g s", iv.Start/SecondsPerDay, stepIdx, k, iv.Duration())
		if err := it.depleteAll(ctx, rates, iv.Duration(), comps); err != nil {
			return fmt.Errorf("substep %d of step %d: %w", k, stepIdx, err)
		}
	}
	return nil
}

func (it *Integrator) substepRates(ctx context.Context, t, power float64, comps [][]float64) (*RateArray, error) {
	if it.rom != nil {
		res, err := it.rom.Solve(ctx, it.cloneWith(comps), power)
		if err != nil {
			return nil, fmt.Errorf("%w: reduced-order solve: %v", ErrSolverFailed, err)
		}
		return res.Rates, nil
	}
	return it.history.At(t)
}

// depleteAll advances every region independently across one interval:
// operator build and CRAM solve fan out one goroutine per region, with
// no shared mutable state and a single join point.
func (it *Integrator) depleteAll(ctx context.Context, rates *RateArray, dt float64, comps [][]float64) error {
	g, _ := errgroup.WithContext(ctx)
	for i := range it.regions {
		i := i
		g.Go(func() error {
			op, err := it.chain.BuildOperator(it.index, rates.Row(i))
			if err != nil {
				return fmt.Errorf("region %q: %w", it.regions[i].Name, err)
			}
			next, err := it.cram.Advance(op, comps[i], dt)
			if err != nil {
				return fmt.Errorf("region %q: %w", it.regions[i].Name, err)
			}
			comps[i] = next
			return nil
		})
	}
	return g.Wait()
}

// snapshot copies the committed region densities.
func (it *Integrator) snapshot() [][]float64 {
	out := make([][]float64, len(it.regions))
	for i, reg := range it.regions {
		out[i] = append([]float64(nil), reg.Density...)
	}
	return out
}

// cloneWith builds trial regions carrying the given densities, leaving
// the committed state untouched.
func (it *Integrator) cloneWith(comps [][]float64) []*Region {
	out := make([]*Region, len(it.regions))
	for i, reg := range it.regions {
		c := reg.Clone()
		copy(c.Density, comps[i])
		out[i] = c
	}
	return out
}

// commit installs depleted densities as the new region state.
func (it *Integrator) commit(comps [][]float64) {
	for i, reg := range it.regions {
		copy(reg.Density, comps[i])
	}
}
