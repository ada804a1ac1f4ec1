package dep

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Feature names a capability a transport solver computes, or a
// consumer requires. Coupling is checked once before the run starts.
type Feature string

const (
	// FeatureLocalRates: per-region, per-nuclide reaction rates.
	FeatureLocalRates Feature = "reactionrates.local"
	// FeatureLocalFlux: per-region one-group scalar flux.
	FeatureLocalFlux Feature = "flux.local"
	// FeatureFissionSource: per-region fission source, for reduced-order
	// solvers that rebalance the flux shape between transport solves.
	FeatureFissionSource Feature = "fissionsource.local"
)

// FeatureSet is an unordered collection of features.
type FeatureSet map[Feature]bool

// NewFeatureSet builds a set from its members.
func NewFeatureSet(features ...Feature) FeatureSet {
	fs := make(FeatureSet, len(features))
	for _, f := range features {
		fs[f] = true
	}
	return fs
}

// Difference returns the members of fs missing from other.
func (fs FeatureSet) Difference(other FeatureSet) FeatureSet {
	out := make(FeatureSet)
	for f := range fs {
		if !other[f] {
			out[f] = true
		}
	}
	return out
}

func (fs FeatureSet) String() string {
	names := make([]string, 0, len(fs))
	for f := range fs {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// StepResult is the outcome of one transport solve: eigenvalue, flux,
// and reaction rates for every burnable region. Owned by the
// integrator for the duration of one coarse step, then archived.
type StepResult struct {
	Keff    float64
	KeffStd float64       // statistical uncertainty, zero for deterministic solvers
	Flux    []float64     // n/cm2/s per region
	Rates   *RateArray    // reactions/atom/s per (region, zai, mt)
	RunTime time.Duration // wall time of the external solve
}

// TransportSolver is the single contract both solver classes satisfy:
// given the current burnable compositions and the step power, return
// flux, eigenvalue, and reaction rates. Invocations are blocking and
// potentially hours long; there are no partial results, and any error
// is fatal to the run.
type TransportSolver interface {
	Solve(ctx context.Context, regions []*Region, power float64) (*StepResult, error)
}

// HighFidelitySolver is a transport solver expensive enough that the
// schedule rations its invocations to coarse-step boundaries. It
// advertises the features it can compute.
type HighFidelitySolver interface {
	TransportSolver
	Features() FeatureSet
}

// ReducedOrderSolver is a cheap approximate solver usable at interior
// substeps. It declares the features it needs from the high-fidelity
// side, typically because it reuses homogenized data from the last
// full solve.
type ReducedOrderSolver interface {
	TransportSolver
	Needs() FeatureSet
}

// CheckCompatibility verifies that the high-fidelity solver covers
// every need before any expensive work starts.
func CheckCompatibility(hf HighFidelitySolver, needs FeatureSet) error {
	missing := needs.Difference(hf.Features())
	if len(missing) > 0 {
		return fmt.Errorf("%w: high-fidelity solver lacks %s (has %s)", ErrIncompatibleSolvers, missing, hf.Features())
	}
	return nil
}

// integratorNeeds is what the coupling engine itself requires from the
// high-fidelity solver regardless of reduced-order configuration.
var integratorNeeds = NewFeatureSet(FeatureLocalRates, FeatureLocalFlux)
