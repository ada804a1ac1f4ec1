// Package dep provides the transport-depletion coupling engine.
//
// # Reading Guide
//
// Start with these three files to understand the coupling kernel:
//   - chain.go: the nuclide transmutation model and Bateman operator build
//   - schedule.go: the coarse/substep time grid and per-step power
//   - integrator.go: the per-step state machine driving both solvers
//
// # Architecture
//
// The engine alternates between a high-fidelity transport solver
// (expensive, invoked at coarse-step boundaries) and cheap substep
// estimates (a reduced-order solver, or polynomial extrapolation of
// stored reaction rates in history.go). Each substep, every burnable
// region's composition advances through exp(A dt) with a fixed-order
// Chebyshev rational approximation (cram.go), in parallel across
// regions.
//
// Reaction rates live in flat arenas (rates.go) indexed by integer
// (nuclide, reaction) offsets assigned once at chain load, so the
// parallel depletion phase does no name lookup and no allocation
// beyond its own result vectors.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - TransportSolver / HighFidelitySolver / ReducedOrderSolver: the
//     solve contract plus the feature-compatibility handshake
//   - MaterialProvider: ordered burnable regions with volumes
//   - ResultStore: append-only archive of committed coarse steps
//
// Sub-package dep/trace holds the result records and run summary.
package dep
