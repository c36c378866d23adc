package octree

import "sort"

// SortedNodes is the contiguous, depth-then-offset array of node
// arena indices described in spec.md §3: nodes at depth d occupy
// indices [NodeCount[d], NodeCount[d+1]).
type SortedNodes struct {
	Nodes     []int32 // arena indices, dense per depth
	NodeCount []int   // NodeCount[d] is the first index at depth d; len == maxDepth+2
}

// Len returns the total indexed node count.
func (s *SortedNodes) Len() int { return len(s.Nodes) }

// DepthRange returns [lo, hi) into s.Nodes for the given depth.
func (s *SortedNodes) DepthRange(d int) (lo, hi int) {
	return s.NodeCount[d], s.NodeCount[d+1]
}

// BuildSortedNodes walks every leaf-carrying subtree of tree, assigns
// a fresh, dense SeqIndex to each node that should participate in the
// solve (include reports which nodes qualify — typically "has a
// normal splat or an indexed descendant", computed by the caller
// during tree clipping), and returns the resulting SortedNodes.
//
// Depths are laid out shallowest first; within a depth, nodes are
// ordered by offset (z, then y, then x).
func BuildSortedNodes(tree *Tree, include func(idx int32) bool) *SortedNodes {
	maxDepth := tree.MaxDepth()
	byDepth := make([][]int32, maxDepth+1)

	var walk func(idx int32)
	walk = func(idx int32) {
		n := &tree.Nodes[idx]
		if !n.IsLeaf() {
			for _, c := range n.Children {
				walk(c)
			}
		}
		if include(idx) {
			byDepth[n.Depth] = append(byDepth[n.Depth], idx)
		}
	}
	walk(tree.Root())

	sn := &SortedNodes{NodeCount: make([]int, maxDepth+2)}
	total := 0
	for d := 0; d <= maxDepth; d++ {
		sn.NodeCount[d] = total
		// Stable order within a depth: by offset, to make the sequence
		// deterministic across runs and goroutine-independent.
		sort.Slice(byDepth[d], func(i, j int) bool {
			return offsetLess(tree.Nodes[byDepth[d][i]].Offset, tree.Nodes[byDepth[d][j]].Offset)
		})
		for _, idx := range byDepth[d] {
			tree.Nodes[idx].SeqIndex = int32(total)
			sn.Nodes = append(sn.Nodes, idx)
			total++
		}
	}
	sn.NodeCount[maxDepth+1] = total
	return sn
}

func offsetLess(a, b [3]int) bool {
	if a[2] != b[2] {
		return a[2] < b[2]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[0] < b[0]
}
