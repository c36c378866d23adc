package isosurface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/meshio"
	"github.com/soypat/poissonrecon/octree"
)

// Config bundles the mesh-extraction options of spec.md §6.
type Config struct {
	IsoValue     float64
	NonLinearFit bool
	PolygonMesh  bool
}

// Stats reports the extraction's failure-semantics counters (spec.md
// §7: topological failures are diagnostics, not aborts).
type Stats struct {
	LeavesProcessed  int
	TrianglesOrPolys int
	UnresolvedLoops  int
	SkippedLeaves    int
}

// Extract walks every leaf of tree and writes the iso-surface at
// cfg.IsoValue into sink, implementing spec.md §4.8 steps 2, 4 and 5.
// octree.Balance runs first to satisfy step 1's subdivision-boundary
// pre-refinement: once every pair of face-adjacent leaves shares the
// same depth, each leaf's own two-corner edge crossings already agree
// with its neighbors' at every shared edge, so closeLoops closes
// cleanly without needing to reconcile leaves of differing depth.
// Step 3's coarse-corner pass is out of scope for this build.
func Extract(tree *octree.Tree, table *bspline.Table, sink meshio.MeshSink, cfg Config) Stats {
	octree.Balance(tree)
	cache := newCornerCache(tree, table, cfg.IsoValue)
	var stats Stats

	for idx := tree.NextLeaf(octree.NoIndex); idx != octree.NoIndex; idx = tree.NextLeaf(idx) {
		stats.LeavesProcessed++
		extractLeaf(cache, sink, idx, cfg, &stats)
	}
	return stats
}

// leafCrossing samples idx's 8 corners against cache's iso-value,
// caches the root of every crossing edge, and reports whether every
// corner shares the same sign (in which case the leaf carries no
// surface at all).
func leafCrossing(cache *cornerCache, idx int32, nonLinearFit bool) (inside [8]bool, crossing [12]bool, allSame bool) {
	var corners [8]cornerValue
	allSame = true
	for c := 0; c < 8; c++ {
		corners[c] = cache.corner(idx, c)
		inside[c] = corners[c].inside
		if c > 0 && inside[c] != inside[0] {
			allSame = false
		}
	}
	for e := 0; e < 12; e++ {
		c0, c1 := octree.EdgeEndpoints(e)
		if inside[c0] == inside[c1] {
			continue
		}
		crossing[e] = true
		cache.edgeRoot(idx, e, corners[c0], corners[c1], nonLinearFit)
	}
	return inside, crossing, allSame
}

func extractLeaf(cache *cornerCache, sink meshio.MeshSink, idx int32, cfg Config, stats *Stats) {
	inside, crossing, allSame := leafCrossing(cache, idx, cfg.NonLinearFit)
	if allSame {
		stats.SkippedLeaves++
		return
	}

	var segs []directedSegment
	for faceIdx := range cubeFaces {
		local := faceSegments(cubeFaces[faceIdx], inside, crossing)
		for _, s := range local {
			segs = append(segs, directedSegment{
				startEdge: cache.edges.Key(idx, s.startEdge),
				endEdge:   cache.edges.Key(idx, s.endEdge),
			})
		}
	}
	if len(segs) == 0 {
		return
	}

	loops, unresolved := closeLoops(segs)
	stats.UnresolvedLoops += unresolved
	for _, loop := range loops {
		verts := make([]r3.Vec, len(loop))
		for i, key := range loop {
			verts[i] = cache.edgeRootByKey(key)
		}
		emitLoop(sink, verts, cfg.PolygonMesh)
		// Count what emitLoop writes: one polygon, a k-triangle fan, or
		// the k-2 triangles of the minimum-area split.
		switch k := len(verts); {
		case cfg.PolygonMesh || k == 3:
			stats.TrianglesOrPolys++
		case coplanarDegenerate(verts):
			stats.TrianglesOrPolys += k
		default:
			stats.TrianglesOrPolys += k - 2
		}
	}
}
