package dep

import (
	"fmt"
	"sort"
)

// RateIndex locates (ZAI, reaction MT) pairs in the flat rate arenas.
// Reactions of nuclide zais[i] occupy offsets ptr[i]..ptr[i+1]. The
// index is assigned once at model load and shared by every solver,
// history window, and operator build, so the parallel depletion phase
// never does name lookup.
type RateIndex struct {
	zais []ZAI
	mts  []int
	ptr  []int
}

func newRateIndex(zais []ZAI, mtsByZAI map[ZAI][]int) *RateIndex {
	ix := &RateIndex{
		zais: append([]ZAI(nil), zais...),
		ptr:  make([]int, 1, len(zais)+1),
	}
	for _, zai := range ix.zais {
		ix.mts = append(ix.mts, mtsByZAI[zai]...)
		ix.ptr = append(ix.ptr, len(ix.mts))
	}
	return ix
}

// NewRateIndex builds an index from sorted ZAIs and their reaction MT
// lists. Mostly useful for tests and standalone solvers; the integrator
// takes its index from Chain.RateIndex.
func NewRateIndex(mtsByZAI map[ZAI][]int) *RateIndex {
	zais := make([]ZAI, 0, len(mtsByZAI))
	for zai := range mtsByZAI {
		zais = append(zais, zai)
	}
	sort.Slice(zais, func(a, b int) bool { return zais[a] < zais[b] })
	return newRateIndex(zais, mtsByZAI)
}

// Len returns the number of indexed (ZAI, MT) pairs.
func (ix *RateIndex) Len() int { return len(ix.mts) }

// NumNuclides returns the number of distinct nuclides indexed.
func (ix *RateIndex) NumNuclides() int { return len(ix.zais) }

// At returns the (ZAI, MT) pair stored at flat offset k.
func (ix *RateIndex) At(k int) (ZAI, int) {
	z := sort.Search(len(ix.ptr)-1, func(i int) bool { return ix.ptr[i+1] > k })
	return ix.zais[z], ix.mts[k]
}

// Locate returns the flat offset of (zai, mt), or false if the pair is
// not indexed.
func (ix *RateIndex) Locate(zai ZAI, mt int) (int, bool) {
	z := sort.Search(len(ix.zais), func(i int) bool { return ix.zais[i] >= zai })
	if z == len(ix.zais) || ix.zais[z] != zai {
		return 0, false
	}
	for k := ix.ptr[z]; k < ix.ptr[z+1]; k++ {
		if ix.mts[k] == mt {
			return k, true
		}
	}
	return 0, false
}

// Equal reports whether two indexes describe the same layout.
func (ix *RateIndex) Equal(other *RateIndex) bool {
	if ix == other {
		return true
	}
	if other == nil || len(ix.zais) != len(other.zais) || len(ix.mts) != len(other.mts) {
		return false
	}
	for i := range ix.zais {
		if ix.zais[i] != other.zais[i] || ix.ptr[i+1] != other.ptr[i+1] {
			return false
		}
	}
	for k := range ix.mts {
		if ix.mts[k] != other.mts[k] {
			return false
		}
	}
	return true
}

// RateArray holds one value per (region, indexed reaction) in a single
// contiguous block, row per region. Used both for microscopic cross
// sections and for flux-weighted reaction rates.
type RateArray struct {
	Index   *RateIndex
	Regions int
	data    []float64
}

// NewRateArray allocates a zeroed nregions-by-index.Len() arena.
func NewRateArray(index *RateIndex, nregions int) *RateArray {
	return &RateArray{
		Index:   index,
		Regions: nregions,
		data:    make([]float64, nregions*index.Len()),
	}
}

// Row returns the mutable rate vector of one region.
func (ra *RateArray) Row(region int) []float64 {
	n := ra.Index.Len()
	return ra.data[region*n : (region+1)*n]
}

// Get returns the rate for (region, zai, mt), zero if not indexed.
func (ra *RateArray) Get(region int, zai ZAI, mt int) float64 {
	k, ok := ra.Index.Locate(zai, mt)
	if !ok {
		return 0
	}
	return ra.Row(region)[k]
}

// Set stores the rate for (region, zai, mt); no-op if not indexed.
func (ra *RateArray) Set(region int, zai ZAI, mt int, v float64) {
	if k, ok := ra.Index.Locate(zai, mt); ok {
		ra.Row(region)[k] = v
	}
}

// Clone returns a deep copy sharing the (immutable) index.
func (ra *RateArray) Clone() *RateArray {
	out := &RateArray{Index: ra.Index, Regions: ra.Regions}
	out.data = append([]float64(nil), ra.data...)
	return out
}

// Scale multiplies every stored value in place.
func (ra *RateArray) Scale(s float64) {
	for i := range ra.data {
		ra.data[i] *= s
	}
}

// Combine computes wa*a + wb*b into a new array. Used by the corrector
// to average begin- and end-of-step rates. Indices must conform.
func Combine(wa float64, a *RateArray, wb float64, b *RateArray) (*RateArray, error) {
	if !a.Index.Equal(b.Index) || a.Regions != b.Regions {
		return nil, fmt.Errorf("rate arrays do not conform")
	}
	out := NewRateArray(a.Index, a.Regions)
	for i := range out.data {
		out.data[i] = wa*a.data[i] + wb*b.data[i]
	}
	return out, nil
}
