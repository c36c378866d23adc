// Package boundary defines the three B-spline boundary conditions
// shared by the basis tables, octree and solver (spec.md §4.1).
package boundary

import "github.com/pkg/errors"

// Mode selects how basis functions behave at the domain boundary.
type Mode int

const (
	// Free leaves the basis unconstrained; the effective max depth is
	// incremented by one and an inner-support mask (IsInset) is used
	// to tell which functions are unaffected by the extra depth.
	Free Mode = iota
	// Dirichlet pins the function value to zero at the boundary.
	Dirichlet
	// Neumann pins the function's normal derivative to zero at the boundary.
	Neumann
)

func (m Mode) String() string {
	switch m {
	case Free:
		return "free"
	case Dirichlet:
		return "Dirichlet"
	case Neumann:
		return "Neumann"
	default:
		return "unknown"
	}
}

// Parse parses the --boundary flag value.
func Parse(s string) (Mode, error) {
	switch s {
	case "free", "":
		return Free, nil
	case "Dirichlet", "dirichlet":
		return Dirichlet, nil
	case "Neumann", "neumann":
		return Neumann, nil
	default:
		return 0, errors.Errorf("unknown boundary mode %q", s)
	}
}
