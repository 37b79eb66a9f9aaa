// Package gate implements the three-gate validation state machine: smoke,
// contract, and integration checkpoints that must each observably pass before
// the build may author its next increment.
package gate

// Gate identifies one validation checkpoint.
type Gate string

const (
	// Smoke is a minimal single-assertion check of the primary happy path.
	Smoke Gate = "smoke"

	// Contract checks input/output boundary behavior: error exit codes and
	// output format validity.
	Contract Gate = "contract"

	// Integration checks edge cases, scale, and end-to-end scenarios.
	Integration Gate = "integration"
)

// AllGates returns the gates in execution order.
func AllGates() []Gate {
	return []Gate{Smoke, Contract, Integration}
}

// Valid reports whether g is a known gate.
func (g Gate) Valid() bool {
	switch g {
	case Smoke, Contract, Integration:
		return true
	}
	return false
}

// Index returns the gate's position in execution order, or -1 if unknown.
func (g Gate) Index() int {
	for i, other := range AllGates() {
		if g == other {
			return i
		}
	}
	return -1
}

// Next returns the following gate. ok is false for the last gate or an
// unknown gate.
func (g Gate) Next() (next Gate, ok bool) {
	idx := g.Index()
	if idx < 0 || idx+1 >= len(AllGates()) {
		return "", false
	}
	return AllGates()[idx+1], true
}
