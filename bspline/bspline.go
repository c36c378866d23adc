// Package bspline tabulates the 1D quadratic B-spline basis used by
// the octree solver (spec.md §4.1): per-depth value/derivative
// evaluation and the ⟨φ,φ⟩, ⟨φ′,φ⟩, ⟨φ′,φ′⟩ cross-integrals between a
// node and its same-depth or parent-depth neighbors, for each of the
// three boundary modes.
//
// Standard-library note (see DESIGN.md): no library in the retrieval
// pack implements boundary-aware B-spline cross-integrals, so these
// tables are hand-built from the closed-form quadratic B-spline and a
// fixed-order Gauss-Legendre quadrature, computed once and cached —
// matching the "evaluation cost independent of tree size" guarantee.
package bspline

import (
	"math"

	"github.com/soypat/poissonrecon/boundary"
)

// Degree is the B-spline degree canonical runs use (spec.md §4.1).
const Degree = 2

// supportHalfWidth is the half-width, in integer index units, of a
// single degree-2 B-spline lobe: its support is [-1.5, 1.5].
const supportHalfWidth = 1.5

// maxOverlap is the largest |i-j| for which two same-depth degree-2
// B-splines can have overlapping support.
const maxOverlap = 2

// Value evaluates the canonical degree-2 B-spline N(t), support [-1.5,1.5].
func Value(t float64) float64 {
	at := math.Abs(t)
	switch {
	case at <= 0.5:
		return 0.75 - at*at
	case at <= 1.5:
		d := 1.5 - at
		return 0.5 * d * d
	default:
		return 0
	}
}

// Deriv evaluates N'(t).
func Deriv(t float64) float64 {
	switch {
	case t >= -0.5 && t <= 0.5:
		return -2 * t
	case t > 0.5 && t <= 1.5:
		return t - 1.5
	case t < -0.5 && t >= -1.5:
		return t + 1.5
	default:
		return 0
	}
}

// RefineCoef are the dyadic refinement weights expressing a depth
// (d-1) basis function as a combination of four depth-d basis
// functions: φ_{d-1,j} = Σ_k RefineCoef[k]·φ_{d,2j-1+k}. These are the
// standard order-3 B-spline subdivision mask coefficients
// (binomial(3,k)/4) and are the same 0.25/0.75 weights spec.md §4.5
// uses for up-sampling node coefficients between depths.
var RefineCoef = [4]float64{0.25, 0.75, 0.75, 0.25}

// ChildOffset returns the depth-d index contributing RefineCoef[k] to
// parent index j at depth d-1.
func ChildOffset(j, k int) int { return 2*j - 1 + k }

// Kind selects which cross-integral a Table query computes.
type Kind int

const (
	ValueValue Kind = iota
	DerivValue
	ValueDeriv
	DerivDeriv
)

// Table holds the precomputed same-depth cross-integral lookup and
// serves parent-depth queries by convolving it with RefineCoef, plus a
// boundary-aware fallback for indices near the domain edge.
type Table struct {
	mode     boundary.Mode
	maxDepth int
	// same[kind][offset+maxOverlap] is the scale-independent integral
	// of two canonical basis lobes offset by `offset` indices, i.e.
	// the depth-0-normalized ∫N_i N_j etc. Physical values are this
	// times a depth-dependent width scale (see scaleFor).
	same [4][2*maxOverlap + 1]float64
}

// NewTable builds the cross-integral tables for the given boundary
// mode, good for any depth up to maxDepth.
func NewTable(mode boundary.Mode, maxDepth int) *Table {
	t := &Table{mode: mode, maxDepth: maxDepth}
	for off := -maxOverlap; off <= maxOverlap; off++ {
		idx := off + maxOverlap
		t.same[ValueValue][idx] = quadCanonical(off, Value, Value)
		t.same[DerivValue][idx] = quadCanonical(off, Deriv, Value)
		t.same[ValueDeriv][idx] = quadCanonical(off, Value, Deriv)
		t.same[DerivDeriv][idx] = quadCanonical(off, Deriv, Deriv)
	}
	return t
}

// quadCanonical integrates f(t)*g(t-offset) over the real line via
// Gauss-Legendre quadrature on half-unit sub-intervals. Their ends fall
// on the B-spline breakpoints (the half-integers), so on each one the
// integrand is a single polynomial of degree <= 4 and the result is exact.
func quadCanonical(offset int, f, g func(float64) float64) float64 {
	lo := math.Floor(-supportHalfWidth)
	hi := math.Ceil(supportHalfWidth + float64(offset))
	if offset < 0 {
		lo = math.Floor(-supportHalfWidth + float64(offset))
	}
	sum := 0.0
	for a := lo; a < hi; a += 0.5 {
		sum += gauss5(a, a+0.5, func(t float64) float64 {
			return f(t) * g(t-float64(offset))
		})
	}
	return sum
}

// gauss5 nodes/weights for [-1,1], mapped onto [a,b]; exact for
// polynomials up to degree 9 (our integrands never exceed degree 4).
var gauss5Nodes = [5]float64{
	-0.9061798459386640, -0.5384693101056831, 0,
	0.5384693101056831, 0.9061798459386640,
}
var gauss5Weights = [5]float64{
	0.2369268850561891, 0.4786286704993665, 0.5688888888888889,
	0.4786286704993665, 0.2369268850561891,
}

func gauss5(a, b float64, f func(float64) float64) float64 {
	half := 0.5 * (b - a)
	mid := 0.5 * (b + a)
	sum := 0.0
	for i, n := range gauss5Nodes {
		sum += gauss5Weights[i] * f(mid+half*n)
	}
	return sum * half
}

// scaleFor returns the physical-units scale factor for kind at depth
// d, derived from the cell width w = 2^-d: value-value scales by w,
// value-deriv/deriv-value are scale-free, deriv-deriv scales by 1/w.
func scaleFor(kind Kind, d int) float64 {
	w := math.Exp2(-float64(d))
	switch kind {
	case ValueValue:
		return w
	case DerivDeriv:
		return 1 / w
	default:
		return 1
	}
}

// inRange reports whether offset is within the nonzero support
// range for same-depth products.
func inRange(offset int) bool { return offset >= -maxOverlap && offset <= maxOverlap }

// isBoundary reports whether index i at depth d lies close enough to
// the domain edge [0, 2^d] that its basis function's support is
// clipped or reflected by the boundary mode.
func isBoundary(mode boundary.Mode, d, i int) bool {
	if mode == boundary.Free {
		return false
	}
	n := 1 << d
	return i < 1 || i > n-1
}

// IsInset reports whether index i at depth d is unaffected by the
// extra depth free-boundary mode adds (spec.md §4.1's IsInset mask).
func (t *Table) IsInset(d, i int) bool {
	if t.mode != boundary.Free {
		return true
	}
	n := 1 << d
	return i >= 1 && i <= n-1
}

// mirror reflects (Neumann) or negates-and-reflects (Dirichlet) an
// out-of-range index back into [0, n] for the boundary fallback path.
func mirror(mode boundary.Mode, n, i int) (idx int, sign float64) {
	sign = 1
	if mode == boundary.Dirichlet {
		if i < 0 {
			return -i, -1
		}
		if i > n {
			return 2*n - i, -1
		}
	} else { // Neumann
		if i < 0 {
			return -i, 1
		}
		if i > n {
			return 2*n - i, 1
		}
	}
	return i, sign
}

// SameDepth returns the kind cross-integral of φ_{d,i} and φ_{d,j} in
// physical units: ValueValue is ⟨φ_{d,i}, φ_{d,j}⟩, DerivDeriv is
// ⟨φ′_{d,i}, φ′_{d,j}⟩, DerivValue is ⟨φ_{d,i}, φ′_{d,j}⟩ (derivative on
// the j operand) and ValueDeriv is ⟨φ′_{d,i}, φ_{d,j}⟩. It falls back to an explicit
// boundary-aware evaluation when i or j sits at the domain edge
// (spec.md §4.5's "fall back to explicit integration for cells near
// the boundary").
func (t *Table) SameDepth(kind Kind, d, i, j int) float64 {
	n := 1 << d
	if isBoundary(t.mode, d, i) || isBoundary(t.mode, d, j) {
		return t.boundarySameDepth(kind, d, n, i, j)
	}
	offset := i - j
	if !inRange(offset) {
		return 0
	}
	return t.same[kind][offset+maxOverlap] * scaleFor(kind, d)
}

// boundarySameDepth explicitly mirrors both indices per the boundary
// mode and recombines, rather than relying on the translation-invariant
// table (which assumes an infinite, unclipped basis).
func (t *Table) boundarySameDepth(kind Kind, d, n, i, j int) float64 {
	mi, si := mirror(t.mode, n, i)
	mj, sj := mirror(t.mode, n, j)
	offset := mi - mj
	if !inRange(offset) {
		return 0
	}
	return si * sj * t.same[kind][offset+maxOverlap] * scaleFor(kind, d)
}

// Parent returns the kind cross-integral of φ_{d,i} and φ_{d-1,j}
// (operands as in SameDepth) in physical units, via the dyadic
// refinement convolution described on RefineCoef.
func (t *Table) Parent(kind Kind, d, i, j int) float64 {
	if d == 0 {
		return 0
	}
	// Differentiation is linear, so it distributes over the refinement
	// sum regardless of which operand (i or j) it applies to.
	sum := 0.0
	for k := 0; k < 4; k++ {
		m := ChildOffset(j, k)
		sum += RefineCoef[k] * t.SameDepth(kind, d, i, m)
	}
	return sum
}

// Evaluate returns (value, derivative) of φ_{d,i} at physical-domain
// position x assuming the node's cell width is 2^-d; φ_{d,i} is centred
// on the cell centre (i+0.5)·2^-d. x is in the same normalized [0,1]
// domain the octree offsets live in.
func (t *Table) Evaluate(d, i int, x float64) (value, deriv float64) {
	w := math.Exp2(-float64(d))
	s := x/w - float64(i) - 0.5
	n := 1 << d
	if isBoundary(t.mode, d, i) {
		mi, sign := mirror(t.mode, n, i)
		s = x/w - float64(mi) - 0.5
		return sign * Value(s), sign * Deriv(s) / w
	}
	return Value(s), Deriv(s) / w
}
