package dep

import "testing"

// Nuclides used across the package tests.
const (
	zaiU235  = ZAI(922350)
	zaiU236  = ZAI(922360)
	zaiI135  = ZAI(531350)
	zaiXe135 = ZAI(541350)
	zaiXe136 = ZAI(541360)
	zaiCs135 = ZAI(551350)
)

// iodineXenonChain builds a small but physical chain: U235 fission
// feeding the I135 -> Xe135 -> Cs135 decay sequence, with Xe135
// capture to Xe136.
func iodineXenonChain(t *testing.T) *Chain {
	t.Helper()
	chain, err := NewChain([]Nuclide{
		{
			Name:     "U235",
			ZAI:      zaiU235,
			HalfLife: 2.221e16,
			DecayModes: []DecayMode{
				{Target: ZAI(902310), Branch: 1}, // Th231, outside the chain
			},
			Reactions: []ReactionChannel{
				{MT: MTCapture, Target: zaiU236, Branch: 1},
				{MT: MTFission, Branch: 1},
			},
			FissionYields: map[ZAI]float64{
				zaiI135:  0.0629,
				zaiXe135: 0.0026,
			},
		},
		{Name: "U236", ZAI: zaiU236, HalfLife: 7.39e14},
		{
			Name:       "I135",
			ZAI:        zaiI135,
			HalfLife:   23652,
			DecayModes: []DecayMode{{Target: zaiXe135, Branch: 1}},
		},
		{
			Name:       "Xe135",
			ZAI:        zaiXe135,
			HalfLife:   32904,
			DecayModes: []DecayMode{{Target: zaiCs135, Branch: 1}},
			Reactions: []ReactionChannel{
				{MT: MTCapture, Target: zaiXe136, Branch: 1},
			},
		},
		{Name: "Xe136", ZAI: zaiXe136},
		{Name: "Cs135", ZAI: zaiCs135, HalfLife: 4.2e13},
	})
	if err != nil {
		t.Fatalf("building test chain: %v", err)
	}
	return chain
}

// singleDecayChain is the smallest possible model: one unstable
// nuclide with a given decay constant [1/s], daughter outside the
// chain.
func singleDecayChain(t *testing.T, lambda float64) *Chain {
	t.Helper()
	chain, err := NewChain([]Nuclide{
		{
			Name:       "X",
			ZAI:        ZAI(10010),
			HalfLife:   ln2 / lambda,
			DecayModes: []DecayMode{{Target: ZAI(20040), Branch: 1}},
		},
	})
	if err != nil {
		t.Fatalf("building decay chain: %v", err)
	}
	return chain
}
