package dep

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// timeMatchTol is the absolute tolerance for treating a query time as
// one of the stored sample times, in seconds.
const timeMatchTol = 1e-9

// RateHistory is the reaction-rate fitting engine: a bounded window of
// historical rate arenas at increasing times, with least-squares
// polynomial extrapolation to arbitrary times. Capacity equals the
// configured fitting-points count; recording at capacity evicts the
// oldest sample.
//
// Extrapolation beyond the newest sample is permitted but unguarded:
// high orders with widely spaced coarse steps can oscillate. That
// trade-off belongs to the caller choosing order and capacity.
//
// Only the integrator writes between solver calls, never during the
// parallel depletion phase, so no locking is needed.
type RateHistory struct {
	index    *RateIndex
	regions  int
	capacity int
	order    int

	times []float64
	snaps [][]float64 // one flat regions*reactions block per time
}

// NewRateHistory creates an empty window. Capacity must cover at least
// order+1 samples, or the configured order could never be reached.
func NewRateHistory(index *RateIndex, regions, capacity, order int) (*RateHistory, error) {
	if order < 0 {
		return nil, fmt.Errorf("fitting order must be non-negative, got %d", order)
	}
	if capacity < order+1 {
		return nil, fmt.Errorf("fitting window of %d cannot support order %d", capacity, order)
	}
	return &RateHistory{
		index:    index,
		regions:  regions,
		capacity: capacity,
		order:    order,
	}, nil
}

// Len returns the number of samples currently stored.
func (h *RateHistory) Len() int { return len(h.times) }

// Record appends a rate arena sampled at time t [s]. Times must be
// recorded in increasing order; the oldest sample is evicted once the
// window is full.
func (h *RateHistory) Record(t float64, rates *RateArray) error {
	if !rates.Index.Equal(h.index) || rates.Regions != h.regions {
		return fmt.Errorf("rate array does not conform to history layout")
	}
	if n := len(h.times); n > 0 && t <= h.times[n-1] {
		return fmt.Errorf("sample at %g s is not after last sample at %g s", t, h.times[n-1])
	}
	snap := append([]float64(nil), rates.data...)
	if len(h.times) == h.capacity {
		copy(h.times, h.times[1:])
		copy(h.snaps, h.snaps[1:])
		h.times[h.capacity-1] = t
		h.snaps[h.capacity-1] = snap
		return nil
	}
	h.times = append(h.times, t)
	h.snaps = append(h.snaps, snap)
	return nil
}

// At fits each stored reaction independently and evaluates the fits at
// time t [s]. The fit order is min(configured order, samples-1): the
// window will not attempt a quadratic until three samples are stored,
// and with a single sample the estimate is that sample unchanged.
func (h *RateHistory) At(t float64) (*RateArray, error) {
	k := len(h.times)
	if k == 0 {
		return nil, fmt.Errorf("no rate samples recorded")
	}
	out := NewRateArray(h.index, h.regions)
	for i, st := range h.times {
		if math.Abs(st-t) < timeMatchTol {
			copy(out.data, h.snaps[i])
			return out, nil
		}
	}
	if k == 1 {
		copy(out.data, h.snaps[0])
		return out, nil
	}

	ord := h.order
	if ord > k-1 {
		ord = k - 1
	}

	// one shared Vandermonde solve covers every (region, reaction) column
	ncols := h.regions * h.index.Len()
	vand := mat.NewDense(k, ord+1, nil)
	for i, st := range h.times {
		p := 1.0
		for j := 0; j <= ord; j++ {
			vand.Set(i, j, p)
			p *= st
		}
	}
	obs := mat.NewDense(k, ncols, nil)
	for i := range h.snaps {
		obs.SetRow(i, h.snaps[i])
	}

	var qr mat.QR
	qr.Factorize(vand)
	coeffs := mat.NewDense(ord+1, ncols, nil)
	if err := qr.SolveTo(coeffs, false, obs); err != nil {
		return nil, fmt.Errorf("rate fit failed: %w", err)
	}

	p := 1.0
	for j := 0; j <= ord; j++ {
		row := coeffs.RawRowView(j)
		for c := 0; c < ncols; c++ {
			out.data[c] += row[c] * p
		}
		p *= t
	}
	return out, nil
}

// Estimate fits and evaluates a single (region, nuclide, reaction)
// rate at time t [s].
func (h *RateHistory) Estimate(region int, zai ZAI, mt int, t float64) (float64, error) {
	fitted, err := h.At(t)
	if err != nil {
		return 0, err
	}
	return fitted.Get(region, zai, mt), nil
}

// RatesAt projects the stored data to time t and weights each region's
// row by that region's flux. Used when the window stores microscopic
// cross sections rather than already-weighted rates.
func (h *RateHistory) RatesAt(t float64, flux []float64) (*RateArray, error) {
	if len(flux) != h.regions {
		return nil, fmt.Errorf("got %d fluxes for %d regions", len(flux), h.regions)
	}
	fitted, err := h.At(t)
	if err != nil {
		return nil, err
	}
	for r := 0; r < h.regions; r++ {
		row := fitted.Row(r)
		for c := range row {
			row[c] *= flux[r]
		}
	}
	return fitted, nil
}
