package dep

import "fmt"

// CorrectionPolicy selects how a coarse step finishes. The state
// machine is identical for every variant; only the Corrected? branch
// differs, so the policy is a tagged value, not a subclass.
type CorrectionPolicy string

const (
	// PolicyPredictor commits the substep-depleted composition directly.
	PolicyPredictor CorrectionPolicy = "predictor"
	// PolicyPredictorCorrector re-solves transport at the predicted
	// end-of-step composition, averages begin- and end-of-step rates,
	// and repeats the depletion sweep once before committing. One extra
	// expensive solve per coarse step buys a smaller time-discretization
	// error.
	PolicyPredictorCorrector CorrectionPolicy = "predictor-corrector"
)

// ValidCorrectionPolicies is the set of recognized policy names.
// Empty defaults to predictor.
var ValidCorrectionPolicies = map[CorrectionPolicy]bool{
	"":                       true,
	PolicyPredictor:          true,
	PolicyPredictorCorrector: true,
}

// parsePolicy normalizes and validates a configured policy name.
func parsePolicy(name string) (CorrectionPolicy, error) {
	p := CorrectionPolicy(name)
	if !ValidCorrectionPolicies[p] {
		return "", fmt.Errorf("unknown integrator policy %q", name)
	}
	if p == "" {
		p = PolicyPredictor
	}
	return p, nil
}

// corrects reports whether the policy runs the correction pass.
func (p CorrectionPolicy) corrects() bool { return p == PolicyPredictorCorrector }

// combineRates merges begin- and end-of-step rates for the correction
// sweep. Equal weights: the classic CE/CM average.
func (p CorrectionPolicy) combineRates(bos, eos *RateArray) (*RateArray, error) {
	return Combine(0.5, bos, 0.5, eos)
}
