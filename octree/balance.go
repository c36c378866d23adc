package octree

// balanceFaceAxis and balanceFaceSign give the (axis, sign) pair
// FaceNeighborLeaves needs for each of a cube's 6 faces.
var balanceFaceAxis = [6]int{0, 0, 1, 1, 2, 2}
var balanceFaceSign = [6]int{-1, 1, -1, 1, -1, 1}

// Balance refines tree until every pair of face-adjacent leaves shares
// the same depth (spec.md §4.8 step 1's subdivision-boundary
// pre-refinement), the simplest way to make the iso-surface extractor
// watertight: a leaf never has to reconcile its own edge keys against a
// finer neighbor's, because no finer neighbor exists by the time
// extraction runs.
//
// Splitting a node during this pass never perturbs the already-solved
// field: a freshly split child starts with Solution 0, so
// EvaluateField's per-depth summation gains no extra contribution from
// it, while the split node's own Solution (now an interior node) still
// contributes exactly as before. Balance only adds resolution.
func Balance(tree *Tree) {
	for {
		var toSplit []int32
		seen := make(map[int32]bool)
		for idx := tree.NextLeaf(NoIndex); idx != NoIndex; idx = tree.NextLeaf(idx) {
			depth := tree.Nodes[idx].Depth
			for f := 0; f < 6; f++ {
				neighbors := FaceNeighborLeaves(tree, idx, balanceFaceAxis[f], balanceFaceSign[f])
				if len(neighbors) != 1 {
					continue
				}
				nb := neighbors[0]
				if tree.Nodes[nb].Depth < depth && !seen[nb] {
					seen[nb] = true
					toSplit = append(toSplit, nb)
				}
			}
		}
		if len(toSplit) == 0 {
			return
		}
		for _, idx := range toSplit {
			tree.Split(idx)
		}
	}
}
