package dep

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// barn in cm2.
const barn = 1e-24

// TabulatedSolver is a file-driven stand-in for an external Monte
// Carlo code: per-call eigenvalues, a fixed per-region flux shape at
// nominal power, and a one-group microscopic cross-section table. It
// makes CLI runs and regression tests self-contained while honoring
// the same contract a subprocess-backed solver would.
//
// Rates scale linearly with step power through the flux; the cross
// sections are composition-independent, so this solver cannot model
// spectral feedback.
type TabulatedSolver struct {
	index *RateIndex

	keff        []float64 // consumed per call, last value repeats
	keffStd     float64
	fluxNominal []float64 // per region at nominalPower
	xs          *RateArray
	nominal     float64

	calls int
}

// tabulatedFile is the YAML schema of a solver table.
type tabulatedFile struct {
	NominalPower float64                 `yaml:"nominal_power"` // W
	Keff         []float64               `yaml:"keff"`
	KeffStd      float64                 `yaml:"keff_std"`
	Flux         []float64               `yaml:"flux"` // n/cm2/s per region at nominal power
	XS           map[int]map[int]float64 `yaml:"xs"`   // zai -> mt -> barns
}

// LoadTabulatedSolver reads a solver table and lays its cross sections
// out on the given rate index (normally Chain.RateIndex). Table
// entries for pairs outside the index are rejected so silent rate
// loss cannot happen.
func LoadTabulatedSolver(path string, index *RateIndex, nregions int) (*TabulatedSolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading solver table: %w", err)
	}
	var tf tabulatedFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing solver table: %w", err)
	}
	if len(tf.Keff) == 0 {
		return nil, fmt.Errorf("solver table %s has no keff values", path)
	}
	if len(tf.Flux) != nregions {
		return nil, fmt.Errorf("solver table has %d fluxes for %d regions", len(tf.Flux), nregions)
	}
	if tf.NominalPower <= 0 {
		return nil, fmt.Errorf("solver table nominal_power must be positive, got %g", tf.NominalPower)
	}

	xs := NewRateArray(index, nregions)
	for zai, byMT := range tf.XS {
		for mt, barns := range byMT {
			if _, ok := index.Locate(ZAI(zai), mt); !ok {
				return nil, fmt.Errorf("solver table scores %s MT=%d, which the chain does not define", ZAI(zai), mt)
			}
			for r := 0; r < nregions; r++ {
				xs.Set(r, ZAI(zai), mt, barns*barn)
			}
		}
	}
	return &TabulatedSolver{
		index:       index,
		keff:        tf.Keff,
		keffStd:     tf.KeffStd,
		fluxNominal: tf.Flux,
		xs:          xs,
		nominal:     tf.NominalPower,
	}, nil
}

// Features advertises local flux and reaction rates.
func (ts *TabulatedSolver) Features() FeatureSet {
	return NewFeatureSet(FeatureLocalRates, FeatureLocalFlux)
}

// Solve returns the next tabulated eigenvalue and rates = xs * flux,
// with flux scaled to the requested power.
func (ts *TabulatedSolver) Solve(ctx context.Context, regions []*Region, power float64) (*StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if len(regions) != len(ts.fluxNominal) {
		return nil, fmt.Errorf("table built for %d regions, asked to solve %d", len(ts.fluxNominal), len(regions))
	}

	k := ts.keff[min(ts.calls, len(ts.keff)-1)]
	ts.calls++

	scale := power / ts.nominal
	flux := make([]float64, len(regions))
	rates := ts.xs.Clone()
	for r := range regions {
		flux[r] = ts.fluxNominal[r] * scale
		row := rates.Row(r)
		for c := range row {
			row[c] *= flux[r]
		}
	}
	return &StepResult{
		Keff:    k,
		KeffStd: ts.keffStd,
		Flux:    flux,
		Rates:   rates,
		RunTime: time.Since(start),
	}, nil
}
