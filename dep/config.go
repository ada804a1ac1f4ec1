package dep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig is the full engine configuration, loadable from one YAML
// file. Zero values take the documented defaults during Validate.
type RunConfig struct {
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Depletion  DepletionConfig  `yaml:"depletion"`
	Integrator IntegratorConfig `yaml:"integrator"`
}

// ScheduleConfig mirrors Schedule construction: boundaries in days,
// powers in watts, substep division counts.
type ScheduleConfig struct {
	BoundaryDays []float64 `yaml:"daysteps"`          // coarse boundaries, strictly increasing from zero
	Power        float64   `yaml:"power"`             // constant power, W (exclusive with powers)
	Powers       []float64 `yaml:"powers"`            // per-step power, W
	Substeps     []int     `yaml:"substeps"`          // per-step division counts (scalar broadcast if length 1)
	Preliminary  int       `yaml:"preliminary_steps"` // HF-only steps before coupled behavior
}

// DepletionConfig selects the matrix-exponential order and the fitting
// window shape.
type DepletionConfig struct {
	Solver        string `yaml:"solver"`         // "cram16" (default) or "cram48"
	FittingOrder  int    `yaml:"fitting_order"`  // polynomial order, default 1
	FittingPoints int    `yaml:"fitting_points"` // window capacity, default 3
}

// IntegratorConfig selects the correction policy.
type IntegratorConfig struct {
	Policy string `yaml:"policy"` // "predictor" (default) or "predictor-corrector"
}

// LoadRunConfig reads and parses a YAML run configuration.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// Validate applies defaults and checks every field cross-constraint
// that does not need the chain or geometry.
func (c *RunConfig) Validate() error {
	if c.Depletion.Solver == "" {
		c.Depletion.Solver = "cram16"
	}
	if _, ok := ValidCRAMOrders[c.Depletion.Solver]; !ok {
		return fmt.Errorf("unknown depletion solver %q", c.Depletion.Solver)
	}
	if c.Depletion.FittingOrder == 0 {
		c.Depletion.FittingOrder = 1
	}
	if c.Depletion.FittingOrder < 0 {
		return fmt.Errorf("fitting_order must be non-negative, got %d", c.Depletion.FittingOrder)
	}
	if c.Depletion.FittingPoints == 0 {
		c.Depletion.FittingPoints = 3
	}
	if c.Depletion.FittingPoints < c.Depletion.FittingOrder+1 {
		return fmt.Errorf("fitting_points=%d cannot support fitting_order=%d", c.Depletion.FittingPoints, c.Depletion.FittingOrder)
	}
	if _, err := parsePolicy(c.Integrator.Policy); err != nil {
		return err
	}
	if len(c.Schedule.Powers) > 0 && c.Schedule.Power != 0 {
		return fmt.Errorf("give either power or powers, not both")
	}
	return nil
}

// powerList resolves the scalar-vs-list power setting into the form
// NewSchedule takes.
func (c *ScheduleConfig) powerList() []float64 {
	if len(c.Powers) > 0 {
		return c.Powers
	}
	return []float64{c.Power}
}

// BuildSchedule constructs the validated Schedule.
func (c *RunConfig) BuildSchedule() (*Schedule, error) {
	return NewSchedule(c.Schedule.BoundaryDays, c.Schedule.powerList(), c.Schedule.Substeps, c.Schedule.Preliminary)
}
