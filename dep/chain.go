package dep

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// branchTol is the allowed deviation from unity for the branching
// fractions of a single channel type (decay modes, or the channels of
// one reaction MT).
const branchTol = 1e-4

// Chain is the nuclide transmutation model: a directed graph of decay
// and reaction channels with rate constants and branching fractions.
// Loaded once per run and shared read-only across concurrent region
// solves. Channel targets absent from the chain are treated as stable
// sinks: atoms leave the tracked system and are not produced anywhere.
type Chain struct {
	nuclides []Nuclide
	index    map[ZAI]int

	// decay triplets of the Bateman generator, fixed at load time and
	// copied into every per-region operator
	decayRows []int
	decayCols []int
	decayVals []float64
}

// NewChain validates the nuclide set and assembles the chain.
// Branching fractions of each channel type must sum to one within
// tolerance, else the error wraps ErrInconsistentYield.
func NewChain(nuclides []Nuclide) (*Chain, error) {
	c := &Chain{
		nuclides: nuclides,
		index:    make(map[ZAI]int, len(nuclides)),
	}
	for i, nuc := range nuclides {
		if _, dup := c.index[nuc.ZAI]; dup {
			return nil, fmt.Errorf("duplicate nuclide %s in chain", nuc.ZAI)
		}
		c.index[nuc.ZAI] = i
	}
	for i := range nuclides {
		if err := validateBranching(&nuclides[i]); err != nil {
			return nil, err
		}
	}
	c.buildDecayTriplets()
	return c, nil
}

func validateBranching(nuc *Nuclide) error {
	if len(nuc.DecayModes) > 0 {
		sum := 0.0
		for _, mode := range nuc.DecayModes {
			sum += mode.Branch
		}
		if math.Abs(sum-1) > branchTol {
			return fmt.Errorf("%w: decay branches of %s sum to %g", ErrInconsistentYield, nuc.Name, sum)
		}
	}
	// branches are per reaction MT: capture may split between ground and
	// metastable daughters, each MT's set must close on its own
	byMT := make(map[int]float64)
	for _, rx := range nuc.Reactions {
		byMT[rx.MT] += rx.Branch
	}
	for mt, sum := range byMT {
		if math.Abs(sum-1) > branchTol {
			return fmt.Errorf("%w: MT=%d branches of %s sum to %g", ErrInconsistentYield, mt, nuc.Name, sum)
		}
	}
	return nil
}

func (c *Chain) buildDecayTriplets() {
	for i := range c.nuclides {
		nuc := &c.nuclides[i]
		lambda := nuc.DecayConst()
		if lambda == 0 {
			continue
		}
		c.decayRows = append(c.decayRows, i)
		c.decayCols = append(c.decayCols, i)
		c.decayVals = append(c.decayVals, -lambda)
		for _, mode := range nuc.DecayModes {
			j, ok := c.index[mode.Target]
			if !ok {
				continue // daughter outside the chain: sink
			}
			c.decayRows = append(c.decayRows, j)
			c.decayCols = append(c.decayCols, i)
			c.decayVals = append(c.decayVals, lambda*mode.Branch)
		}
	}
}

// Len returns the number of nuclides in the chain.
func (c *Chain) Len() int { return len(c.nuclides) }

// Index returns the arena index assigned to a nuclide at load time.
func (c *Chain) Index(zai ZAI) (int, bool) {
	i, ok := c.index[zai]
	return i, ok
}

// Nuclide returns the nuclide at arena index i.
func (c *Chain) Nuclide(i int) *Nuclide { return &c.nuclides[i] }

// RateIndex builds the canonical (ZAI, MT) index over every reaction
// channel the chain defines. All solvers and the fitting engine share
// this one index so reaction rates live in flat arenas.
func (c *Chain) RateIndex() *RateIndex {
	zais := make([]ZAI, 0, len(c.nuclides))
	for _, nuc := range c.nuclides {
		if len(nuc.Reactions) > 0 {
			zais = append(zais, nuc.ZAI)
		}
	}
	sort.Slice(zais, func(a, b int) bool { return zais[a] < zais[b] })

	mtsByZAI := make(map[ZAI][]int, len(zais))
	for _, zai := range zais {
		nuc := &c.nuclides[c.index[zai]]
		seen := make(map[int]bool)
		for _, rx := range nuc.Reactions {
			if !seen[rx.MT] {
				seen[rx.MT] = true
				mtsByZAI[zai] = append(mtsByZAI[zai], rx.MT)
			}
		}
		sort.Ints(mtsByZAI[zai])
	}
	return newRateIndex(zais, mtsByZAI)
}

// BuildOperator assembles the Bateman generator A for one region, so
// that n' = A n. Decay terms come from the chain; reaction terms are
// the supplied flux-weighted rates [reactions/atom/s] laid out by idx.
// A rate whose ZAI is not in the chain yields ErrUndefinedNuclide.
// Safe for concurrent use: the chain is only read.
func (c *Chain) BuildOperator(idx *RateIndex, rates []float64) (*Operator, error) {
	if len(rates) != idx.Len() {
		return nil, fmt.Errorf("rate vector has %d entries, index describes %d", len(rates), idx.Len())
	}
	op := &Operator{
		Dim:  len(c.nuclides),
		rows: append([]int(nil), c.decayRows...),
		cols: append([]int(nil), c.decayCols...),
		vals: append([]float64(nil), c.decayVals...),
	}
	for k := 0; k < idx.Len(); k++ {
		zai, mt := idx.At(k)
		rate := rates[k]
		if rate == 0 {
			continue
		}
		i, ok := c.index[zai]
		if !ok {
			return nil, fmt.Errorf("%w: reaction rate for %s (MT=%d) not in chain", ErrUndefinedNuclide, zai, mt)
		}
		nuc := &c.nuclides[i]

		// loss from the parent
		op.add(i, i, -rate)

		// production in daughters
		if mt == MTFission {
			for product, yield := range nuc.FissionYields {
				if j, ok := c.index[product]; ok {
					op.add(j, i, rate*yield)
				}
			}
			continue
		}
		for _, rx := range nuc.Reactions {
			if rx.MT != mt {
				continue
			}
			if j, ok := c.index[rx.Target]; ok {
				op.add(j, i, rate*rx.Branch)
			}
		}
	}
	return op, nil
}

// Operator is the sparse Bateman generator for a single region,
// stored as COO triplets. Built fresh per region per substep; consumed
// by the CRAM solver.
type Operator struct {
	Dim  int
	rows []int
	cols []int
	vals []float64
}

func (op *Operator) add(i, j int, v float64) {
	op.rows = append(op.rows, i)
	op.cols = append(op.cols, j)
	op.vals = append(op.vals, v)
}

// NNZ returns the number of stored triplets. Duplicate (i, j) entries
// are additive.
func (op *Operator) NNZ() int { return len(op.vals) }

// Scatter adds scale*A into dst, a dense matrix indexed with a row
// offset and column offset. Used by the CRAM solver to place dt*A in
// the blocks of the augmented real system.
func (op *Operator) Scatter(set func(i, j int, v float64), scale float64) {
	for k := range op.vals {
		set(op.rows[k], op.cols[k], scale*op.vals[k])
	}
}

// chainFile is the YAML schema of a chain file.
type chainFile struct {
	Nuclides []chainNuclide `yaml:"nuclides"`
}

type chainNuclide struct {
	Name      string          `yaml:"name"`
	ZAI       int             `yaml:"zai"`
	HalfLife  float64         `yaml:"half_life"` // seconds; omit for stable
	Decay     []chainDecay    `yaml:"decay"`
	Reactions []chainReaction `yaml:"reactions"`
	Yields    map[int]float64 `yaml:"fission_yields"`
}

type chainDecay struct {
	Target int     `yaml:"target"`
	Branch float64 `yaml:"branch"`
}

type chainReaction struct {
	MT     int     `yaml:"mt"`
	Target int     `yaml:"target"`
	Branch float64 `yaml:"branch"`
}

// LoadChainFile reads and validates a YAML transmutation chain.
func LoadChainFile(path string) (*Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain file: %w", err)
	}
	var cf chainFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing chain file: %w", err)
	}
	if len(cf.Nuclides) == 0 {
		return nil, fmt.Errorf("chain file %s defines no nuclides", path)
	}

	nuclides := make([]Nuclide, 0, len(cf.Nuclides))
	for _, cn := range cf.Nuclides {
		nuc := Nuclide{
			Name:     cn.Name,
			ZAI:      ZAI(cn.ZAI),
			HalfLife: cn.HalfLife,
		}
		for _, d := range cn.Decay {
			nuc.DecayModes = append(nuc.DecayModes, DecayMode{Target: ZAI(d.Target), Branch: d.Branch})
		}
		for _, r := range cn.Reactions {
			branch := r.Branch
			if branch == 0 {
				branch = 1 // single-branch channels may omit the fraction
			}
			nuc.Reactions = append(nuc.Reactions, ReactionChannel{MT: r.MT, Target: ZAI(r.Target), Branch: branch})
		}
		if len(cn.Yields) > 0 {
			nuc.FissionYields = make(map[ZAI]float64, len(cn.Yields))
			for product, yield := range cn.Yields {
				nuc.FissionYields[ZAI(product)] = yield
			}
		}
		nuclides = append(nuclides, nuc)
	}
	return NewChain(nuclides)
}
