package solver

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/octree"
	"github.com/soypat/poissonrecon/points"
	"github.com/soypat/poissonrecon/vecmath"
)

// buildSolvedTree runs the point pipeline over a small sphere sample
// and returns a tree/table/side ready for AssembleConstraints+Cascade.
func buildSolvedTree(t *testing.T) (*octree.Tree, *bspline.Table, *points.Side, *octree.SortedNodes) {
	t.Helper()
	var samples []points.Sample
	for i := 0; i < 96; i++ {
		theta := 2 * math.Pi * float64(i) / 96
		phi := math.Pi * float64(i%12) / 12
		pos := r3.Vec{X: math.Sin(phi) * math.Cos(theta), Y: math.Sin(phi) * math.Sin(theta), Z: math.Cos(phi)}
		samples = append(samples, points.Sample{Position: pos, Normal: pos})
	}

	bnds := points.ComputeBounds(samples, vecmath.Identity4(), 1.1, boundary.Neumann)
	tree := octree.NewTree()
	table := bspline.NewTable(boundary.Neumann, 5)
	cfg := points.Config{
		SplatDepth:       4,
		MinDepth:         0,
		MaxDepth:         4,
		SamplesPerNode:   1.5,
		ConstraintWeight: 4,
		AdaptiveExponent: 1,
		Boundary:         boundary.Neumann,
	}
	pipe := points.NewPipeline(tree, table, cfg)
	for _, s := range samples {
		pipe.Add(bnds, vecmath.Identity4(), s)
	}
	pipe.Finalize()

	sorted := octree.BuildSortedNodes(tree, func(idx int32) bool { return true })
	return tree, table, pipe.Side(), sorted
}

func TestAssembleConstraintsPopulatesConstraints(t *testing.T) {
	tree, table, side, sorted := buildSolvedTree(t)
	AssembleConstraints(tree, sorted, table, side, Config{GradientDomainSolution: false})

	found := false
	for i := range tree.Nodes {
		if tree.Nodes[i].Constraint != 0 {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected at least one node with a non-zero constraint after assembly")
	}
}

func TestCascadeProducesFiniteSolution(t *testing.T) {
	tree, table, side, sorted := buildSolvedTree(t)
	AssembleConstraints(tree, sorted, table, side, Config{})

	iters := Cascade(tree, sorted, table, side, Config{
		MinDepth: 1,
		Accuracy: 1,
		Threads:  1,
	})
	if iters <= 0 {
		t.Fatal("expected at least one CG iteration across the cascade")
	}
	for i := range tree.Nodes {
		s := tree.Nodes[i].Solution
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Fatalf("node %d solution is not finite: %v", i, s)
		}
	}
}

func TestSelectIsoValueFinite(t *testing.T) {
	tree, table, side, sorted := buildSolvedTree(t)
	AssembleConstraints(tree, sorted, table, side, Config{})
	Cascade(tree, sorted, table, side, Config{MinDepth: 1, Accuracy: 1, Threads: 1})

	iso := SelectIsoValue(tree, table, side, boundary.Neumann)
	if math.IsNaN(iso) || math.IsInf(iso, 0) {
		t.Fatalf("iso value not finite: %v", iso)
	}
}

func TestSelectIsoValueDirichletShift(t *testing.T) {
	tree, table, side, sorted := buildSolvedTree(t)
	AssembleConstraints(tree, sorted, table, side, Config{})
	Cascade(tree, sorted, table, side, Config{MinDepth: 1, Accuracy: 1, Threads: 1})

	neumann := SelectIsoValue(tree, table, side, boundary.Neumann)
	dirichlet := SelectIsoValue(tree, table, side, boundary.Dirichlet)
	if math.Abs((neumann-dirichlet)-0.5) > 1e-9 {
		t.Fatalf("expected Dirichlet iso value to be exactly 0.5 below Neumann's, got neumann=%v dirichlet=%v", neumann, dirichlet)
	}
}

func TestEvaluateNodeValueAveragesChildren(t *testing.T) {
	tree := octree.NewTree()
	children := tree.Split(tree.Root())
	for _, c := range children {
		tree.Nodes[c].Solution = 2
	}
	octree.BuildSortedNodes(tree, func(idx int32) bool { return true })
	table := bspline.NewTable(boundary.Neumann, 3)

	// Every child sits symmetrically under the cube's corner-reflection
	// group and carries the same solution, so each child's evaluated
	// field value is identical; the root's average of all eight must
	// equal that shared value exactly.
	want := EvaluateNodeValue(tree, table, children[0])
	got := EvaluateNodeValue(tree, table, tree.Root())
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected root average to equal each child's evaluated value %v, got %v", want, got)
	}
}

// DerivValue cross-integrals are antisymmetric in the offset while
// ValueValue ones are symmetric, so negating all three axes of a
// divergence-stencil offset flips exactly one factor's sign; combined
// with divergenceCoupling's own negation, the gradient-domain and
// scatter variants end up numerically equal for this stencil. This is
// exercised rather than asserted-different, since it's a consequence
// of the underlying basis symmetry, not a bug.
func TestDivergenceCouplingGradientDomainMatchesBaseline(t *testing.T) {
	table := bspline.NewTable(boundary.Neumann, 5)
	div := octree.NewDivergenceStencil(table, 3)
	a := divergenceCoupling(div, false, 0, 1, 0, 0)
	b := divergenceCoupling(div, true, 0, 1, 0, 0)
	if a == 0 {
		t.Fatal("expected non-zero baseline divergence coupling")
	}
	if math.Abs(a-b) > 1e-12 {
		t.Fatalf("expected gradient-domain coupling to equal baseline by basis symmetry, got a=%v b=%v", a, b)
	}
}
