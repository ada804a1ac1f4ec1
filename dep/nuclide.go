package dep

import (
	"fmt"
	"math"
)

// ZAI identifies a nuclide as Z*10000 + A*10 + M, where Z is the proton
// count, A the mass number, and M the metastable flag (0 = ground state).
// Example: 922350 is U235, 952421 is Am242m.
type ZAI int

// Z returns the atomic number of the nuclide.
func (z ZAI) Z() int { return int(z) / 10000 }

// A returns the mass number of the nuclide.
func (z ZAI) A() int { return (int(z) / 10) % 1000 }

// M returns the metastable state (0 for ground state).
func (z ZAI) M() int { return int(z) % 10 }

func (z ZAI) String() string {
	if z.M() == 0 {
		return fmt.Sprintf("%d-%d", z.Z(), z.A())
	}
	return fmt.Sprintf("%d-%dm%d", z.Z(), z.A(), z.M())
}

// Common ENDF reaction MT numbers scored by transport solvers.
const (
	MTN2N     = 16  // (n,2n)
	MTN3N     = 17  // (n,3n)
	MTFission = 18  // total fission
	MTCapture = 102 // (n,gamma)
	MTNP      = 103 // (n,p)
	MTNAlpha  = 107 // (n,alpha)
)

// ln2, for half-life to decay-constant conversion.
var ln2 = math.Ln2

// DecayMode is one spontaneous-decay branch of a nuclide.
type DecayMode struct {
	Target ZAI     // daughter; 0 or absent from the chain means a stable sink
	Branch float64 // branching fraction, sums to 1 across a nuclide's modes
}

// ReactionChannel is one neutron-induced transmutation branch. For
// fission (MT 18) the products come from the nuclide's fission yields
// instead of Target.
type ReactionChannel struct {
	MT     int
	Target ZAI
	Branch float64
}

// Nuclide is one species in the transmutation chain. Immutable once the
// chain is loaded; shared read-only across all regions and time steps.
type Nuclide struct {
	Name          string
	ZAI           ZAI
	HalfLife      float64 // seconds; 0 means stable
	DecayModes    []DecayMode
	Reactions     []ReactionChannel
	FissionYields map[ZAI]float64 // cumulative product yields, fissile nuclides only
}

// DecayConst returns the decay constant lambda [1/s], zero for stable
// nuclides.
func (n *Nuclide) DecayConst() float64 {
	if n.HalfLife <= 0 {
		return 0
	}
	return ln2 / n.HalfLife
}
