package dep

import "errors"

// Sentinel errors for the coupling engine. Callers match with errors.Is;
// sites that raise them wrap with fmt.Errorf("...: %w", ...) to attach
// the offending nuclide, step, or region.
var (
	// ErrScheduleConfig marks invalid step boundaries, power lists, or
	// substep counts. Detected at schedule construction, never later.
	ErrScheduleConfig = errors.New("invalid schedule configuration")

	// ErrUndefinedNuclide marks a reaction rate that references a nuclide
	// absent from the transmutation chain.
	ErrUndefinedNuclide = errors.New("undefined nuclide")

	// ErrInconsistentYield marks branching fractions that do not sum to
	// one within tolerance. Detected at chain load, before any run.
	ErrInconsistentYield = errors.New("inconsistent branching fractions")

	// ErrDepletionDiverged marks a non-finite or significantly negative
	// density out of the matrix-exponential solve. Fatal to the run.
	ErrDepletionDiverged = errors.New("depletion solve diverged")

	// ErrSolverFailed wraps any failure of an external transport solver.
	// Fatal to the run; there is no retry.
	ErrSolverFailed = errors.New("transport solver failed")

	// ErrIncompatibleSolvers marks a reduced-order solver or integrator
	// whose needs exceed the high-fidelity solver's features.
	ErrIncompatibleSolvers = errors.New("incompatible solvers")
)
