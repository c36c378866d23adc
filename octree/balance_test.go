package octree

import "testing"

func TestBalanceEqualizesFaceAdjacentDepths(t *testing.T) {
	tree := NewTree()
	children := tree.Split(tree.Root())
	grandchildren := tree.Split(children[0])
	tree.Split(grandchildren[0])

	Balance(tree)

	faceAxis := [6]int{0, 0, 1, 1, 2, 2}
	faceSign := [6]int{-1, 1, -1, 1, -1, 1}
	for idx := tree.NextLeaf(NoIndex); idx != NoIndex; idx = tree.NextLeaf(idx) {
		depth := tree.Nodes[idx].Depth
		for f := 0; f < 6; f++ {
			neighbors := FaceNeighborLeaves(tree, idx, faceAxis[f], faceSign[f])
			for _, nb := range neighbors {
				nbDepth := tree.Nodes[nb].Depth
				if nbDepth != depth {
					t.Fatalf("leaf %d (depth %d) has face neighbor %d at depth %d after Balance", idx, depth, nb, nbDepth)
				}
			}
		}
	}
}

func TestBalanceIsIdempotentOnAnAlreadyBalancedTree(t *testing.T) {
	tree := NewTree()
	tree.Split(tree.Root())
	before := len(tree.Nodes)

	Balance(tree)
	Balance(tree)

	if len(tree.Nodes) != before {
		t.Fatalf("expected Balance to be a no-op on a uniform-depth tree, node count grew from %d to %d", before, len(tree.Nodes))
	}
}

func TestBalancePreservesLeafSolutionValues(t *testing.T) {
	tree := NewTree()
	children := tree.Split(tree.Root())
	grandchildren := tree.Split(children[0])
	deep := tree.Split(grandchildren[0])
	tree.Nodes[deep[0]].Solution = 42
	before := len(tree.Nodes)

	Balance(tree)

	if tree.Nodes[deep[0]].Solution != 42 {
		t.Fatalf("expected Balance to leave existing node Solution untouched, got %v", tree.Nodes[deep[0]].Solution)
	}
	for i := before; i < len(tree.Nodes); i++ {
		if tree.Nodes[i].Solution != 0 {
			t.Fatalf("expected every node Balance creates to start at Solution 0, node %d has %v", i, tree.Nodes[i].Solution)
		}
	}
}
