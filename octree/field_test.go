package octree

import (
	"math"
	"testing"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/bspline"
)

// TestEvaluateFieldSumsAllDepths guards against regressing to a
// same-depth-only evaluator: it gives the root (depth 0) and one of
// its children (depth 1) each a nonzero Solution, then checks that
// evaluating at the child's center picks up both contributions.
func TestEvaluateFieldSumsAllDepths(t *testing.T) {
	tree := NewTree()
	children := tree.Split(tree.Root())
	BuildSortedNodes(tree, func(idx int32) bool { return true })
	table := bspline.NewTable(boundary.Neumann, 3)

	tree.Nodes[tree.Root()].Solution = 1
	pos, _ := tree.CenterWidth(children[0])

	rootOnly, _ := EvaluateField(tree, table, pos, 0)
	if rootOnly == 0 {
		t.Fatal("expected a nonzero depth-0 contribution")
	}

	tree.Nodes[children[0]].Solution = 1
	both, _ := EvaluateField(tree, table, pos, 1)
	if math.Abs(both-rootOnly) < 1e-9 {
		t.Fatalf("depth-1 evaluation should add the child's own contribution on top of the root's: rootOnly=%v both=%v", rootOnly, both)
	}
}

func TestEvaluateFieldZeroTreeIsZero(t *testing.T) {
	tree := NewTree()
	BuildSortedNodes(tree, func(idx int32) bool { return true })
	table := bspline.NewTable(boundary.Neumann, 3)

	v, g := EvaluateField(tree, table, [3]float64{0.5, 0.5, 0.5}, 0)
	if v != 0 || g != ([3]float64{}) {
		t.Fatalf("expected zero field for an all-zero solution tree, got value=%v grad=%v", v, g)
	}
}
