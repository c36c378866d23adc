package bspline

import (
	"math"
	"testing"

	"github.com/soypat/poissonrecon/boundary"
)

func TestValuePartitionOfUnity(t *testing.T) {
	// Sum of shifted quadratic B-splines over integer offsets is 1
	// anywhere in the interior (spec.md §4.1's "forms a partition of
	// unity" guarantee).
	for _, x := range []float64{0, 0.1, 0.37, -0.25, 0.5} {
		sum := 0.0
		for i := -3; i <= 3; i++ {
			sum += Value(x - float64(i))
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("partition of unity failed at x=%v: sum=%v", x, sum)
		}
	}
}

func TestSameDepthSymmetric(t *testing.T) {
	table := NewTable(boundary.Free, 6)
	for off := -2; off <= 2; off++ {
		a := table.SameDepth(ValueValue, 4, 8, 8+off)
		b := table.SameDepth(ValueValue, 4, 8+off, 8)
		if math.Abs(a-b) > 1e-9 {
			t.Fatalf("value-value not symmetric at offset %d: %v vs %v", off, a, b)
		}
	}
}

func TestDerivValueAntisymmetric(t *testing.T) {
	table := NewTable(boundary.Free, 6)
	// <phi_i, phi_j'> should equal -<phi_j, phi_i'> by integration by
	// parts (compactly supported basis, no boundary term) when both
	// nodes are interior.
	a := table.SameDepth(DerivValue, 4, 8, 9)
	b := table.SameDepth(DerivValue, 4, 9, 8)
	if math.Abs(a+b) > 1e-9 {
		t.Fatalf("expected antisymmetry, got %v and %v", a, b)
	}
}

func TestParentRefinementMatchesDirectIntegral(t *testing.T) {
	table := NewTable(boundary.Free, 8)
	// phi_{d-1,j} = sum RefineCoef[k] phi_{d, ChildOffset(j,k)} exactly,
	// so <phi_{d,i}, phi_{d-1,j}> must match a direct numeric check
	// against that same expansion evaluated via the same-depth table,
	// confirming Parent() is just applying its own documented formula
	// consistently rather than silently drifting from it.
	const d, i, j = 5, 10, 4
	got := table.Parent(ValueValue, d, i, j)
	want := 0.0
	for k := 0; k < 4; k++ {
		want += RefineCoef[k] * table.SameDepth(ValueValue, d, i, ChildOffset(j, k))
	}
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEvaluateMatchesValueDeriv(t *testing.T) {
	table := NewTable(boundary.Free, 6)
	const d, i = 3, 3
	w := math.Exp2(-float64(d))
	x := (float64(i) + 0.2) * w
	v, dv := table.Evaluate(d, i, x)
	wantV := Value(x/w - float64(i) - 0.5)
	wantDv := Deriv(x/w-float64(i)-0.5) / w
	if math.Abs(v-wantV) > 1e-12 || math.Abs(dv-wantDv) > 1e-12 {
		t.Fatalf("got (%v,%v) want (%v,%v)", v, dv, wantV, wantDv)
	}
}

func TestIsInsetFreeBoundary(t *testing.T) {
	table := NewTable(boundary.Free, 6)
	const d = 4
	n := 1 << d
	if !table.IsInset(d, 1) || !table.IsInset(d, n-1) {
		t.Fatal("expected interior indices to be inset")
	}
	if table.IsInset(d, 0) || table.IsInset(d, n) {
		t.Fatal("expected boundary indices to not be inset in free mode")
	}
}

func TestIsInsetNonFreeAlwaysTrue(t *testing.T) {
	table := NewTable(boundary.Neumann, 6)
	if !table.IsInset(4, 0) {
		t.Fatal("non-free boundary modes have no inset restriction")
	}
}
