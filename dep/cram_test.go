package dep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCRAMSolver_Orders(t *testing.T) {
	for _, order := range []int{16, 48} {
		s, err := NewCRAMSolver(order)
		require.NoError(t, err)
		assert.Equal(t, order, s.Order())
	}
	_, err := NewCRAMSolver(32)
	assert.Error(t, err)
}

func TestCRAM_AnalyticDecay(t *testing.T) {
	// GIVEN a single isotope with lambda = 0.1/day and no reaction rate
	lambda := 0.1 / SecondsPerDay
	chain := singleDecayChain(t, lambda)
	op, err := chain.BuildOperator(chain.RateIndex(), nil)
	require.NoError(t, err)

	for _, order := range []int{16, 48} {
		solver, err := NewCRAMSolver(order)
		require.NoError(t, err)

		// WHEN advancing 10 days
		x, err := solver.Advance(op, []float64{1.0}, 10*SecondsPerDay)
		require.NoError(t, err)

		// THEN the density matches exp(-1) to solver tolerance
		assert.InEpsilon(t, math.Exp(-1), x[0], 1e-12, "order %d", order)
	}
}

func TestCRAM_DecayChainConservesAtoms(t *testing.T) {
	// I135 -> Xe135 -> Cs135 with no reactions: atoms only move down
	// the chain, so the I+Xe+Cs total is conserved
	chain := iodineXenonChain(t)
	idx := chain.RateIndex()
	op, err := chain.BuildOperator(idx, make([]float64, idx.Len()))
	require.NoError(t, err)

	solver, err := NewCRAMSolver(16)
	require.NoError(t, err)

	x0 := make([]float64, chain.Len())
	iI, _ := chain.Index(zaiI135)
	iXe, _ := chain.Index(zaiXe135)
	iCs, _ := chain.Index(zaiCs135)
	x0[iI] = 1e15

	x, err := solver.Advance(op, x0, 2*SecondsPerDay)
	require.NoError(t, err)

	total := x[iI] + x[iXe] + x[iCs]
	assert.InEpsilon(t, 1e15, total, 1e-10)
	// after two days (several I135 half-lives) most atoms moved on
	assert.Less(t, x[iI], 1e13)
	assert.Greater(t, x[iXe], 0.0)
}

func TestCRAM_StiffSpectrumStaysFinite(t *testing.T) {
	// decay constants 14 orders of magnitude apart in one system
	chain, err := NewChain([]Nuclide{
		{Name: "fast", ZAI: ZAI(10010), HalfLife: 1e-3, DecayModes: []DecayMode{{Target: ZAI(10020), Branch: 1}}},
		{Name: "slow", ZAI: ZAI(10020), HalfLife: 1e11, DecayModes: []DecayMode{{Target: ZAI(10030), Branch: 1}}},
		{Name: "sink", ZAI: ZAI(10030)},
	})
	require.NoError(t, err)
	op, err := chain.BuildOperator(chain.RateIndex(), nil)
	require.NoError(t, err)

	solver, err := NewCRAMSolver(48)
	require.NoError(t, err)
	x, err := solver.Advance(op, []float64{1e20, 1e20, 0}, 100*SecondsPerDay)
	require.NoError(t, err)

	// the fast isotope is fully gone into the slow one, which then
	// decays only slightly over the interval
	assert.Less(t, math.Abs(x[0]), 1.0)
	assert.InEpsilon(t, 2e20*math.Exp(-math.Ln2*100*SecondsPerDay/1e11), x[1], 1e-9)
}

func TestCRAM_ZeroDurationIsIdentity(t *testing.T) {
	chain := singleDecayChain(t, 1e-5)
	op, err := chain.BuildOperator(chain.RateIndex(), nil)
	require.NoError(t, err)
	solver, err := NewCRAMSolver(16)
	require.NoError(t, err)

	x, err := solver.Advance(op, []float64{42}, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, x[0])

	_, err = solver.Advance(op, []float64{42}, -1)
	assert.Error(t, err)

	_, err = solver.Advance(op, []float64{1, 2}, 1)
	assert.Error(t, err)
}
