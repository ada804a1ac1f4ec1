package dep

import "fmt"

// Region is one burnable material: an atom-density vector aligned to
// the chain's nuclide order, plus volume and temperature. Density is
// mutated exactly once per substep by the depletion phase and read by
// transport solvers between steps; no two goroutines ever touch the
// same region concurrently.
type Region struct {
	Name        string
	Index       int       // arena index assigned at setup, stable for the run
	Volume      float64   // cm3, must be positive before any depletion
	Temperature float64   // K
	Density     []float64 // atoms/cm3 per chain nuclide
}

// Clone returns a deep copy. Used by the corrector to trial-solve
// end-of-step compositions without committing them.
func (r *Region) Clone() *Region {
	out := *r
	out.Density = append([]float64(nil), r.Density...)
	return &out
}

// MaterialProvider supplies the ordered burnable regions. The
// integrator never mutates the structure of the geometry, only the
// density vectors of the regions it is handed.
type MaterialProvider interface {
	BurnableRegions() []*Region
}

// StaticGeometry is the trivial provider: a fixed region list.
type StaticGeometry struct {
	Regions []*Region
}

// BurnableRegions returns the fixed region list.
func (g *StaticGeometry) BurnableRegions() []*Region { return g.Regions }

// validateRegions checks the invariants every region must satisfy
// before the first depletion call.
func validateRegions(chain *Chain, regions []*Region) error {
	if len(regions) == 0 {
		return fmt.Errorf("no burnable regions")
	}
	for i, reg := range regions {
		if reg.Volume <= 0 {
			return fmt.Errorf("region %q has no positive volume", reg.Name)
		}
		if len(reg.Density) != chain.Len() {
			return fmt.Errorf("region %q has %d densities for %d chain nuclides", reg.Name, len(reg.Density), chain.Len())
		}
		for _, d := range reg.Density {
			if d < 0 {
				return fmt.Errorf("region %q has negative density", reg.Name)
			}
		}
		reg.Index = i
	}
	return nil
}
