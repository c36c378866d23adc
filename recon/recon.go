// Package recon wires the leaf packages (bspline, octree, points,
// solver, isosurface) into the end-to-end control flow of spec.md §2:
// build basis tables, stream points twice, clip the tree to cells
// carrying normals, assemble Laplacian constraints, solve the
// multigrid cascade, pick an iso-value, and extract a mesh. Every
// other package in this module is usable standalone; Run is the glue
// a CLI front end (cmd/poissonrecon) or a library caller needs.
package recon

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pkg/errors"

	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/internal/pipeerr"
	"github.com/soypat/poissonrecon/internal/pipelog"
	"github.com/soypat/poissonrecon/internal/reconconfig"
	"github.com/soypat/poissonrecon/isosurface"
	"github.com/soypat/poissonrecon/meshio"
	"github.com/soypat/poissonrecon/octree"
	"github.com/soypat/poissonrecon/points"
	"github.com/soypat/poissonrecon/solver"
)

// Result reports the outcome of a reconstruction run, beyond the
// mesh already written into the caller's sink.
type Result struct {
	Stats      isosurface.Stats
	IsoValue   float64
	CGIters    int
	SamplesRead int
	Bounds     points.Bounds
}

// Run executes the full pipeline of spec.md §2 against source,
// writing the extracted mesh into sink. log may be nil, in which case
// a default logger at cfg.Verbose level is created. Only input and
// configuration errors (spec.md §7) abort the run; solver/extraction
// diagnostics are logged and folded into Result.Stats instead.
func Run(cfg reconconfig.Config, source meshio.PointSource, sink meshio.MeshSink, log pipelog.Logger) (Result, error) {
	if log == nil {
		log = pipelog.New("recon", cfg.Verbose)
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if cfg.StartingDepth > 0 {
		log.Warnf("startingDepth=%d has no effect: subtree partitioning (spec.md §4.6) is not implemented, the whole tree is solved as one cascade", cfg.StartingDepth)
	}

	bounds, err := runBoundsPass(source, cfg, log)
	if err != nil {
		return Result{}, err
	}

	table := bspline.NewTable(cfg.Boundary, cfg.EffectiveMaxDepth())
	tree := octree.NewTree()
	pline := points.NewPipeline(tree, table, points.Config{
		SplatDepth:        cfg.FullDepth,
		MinDepth:          cfg.MinDepth,
		MaxDepth:          cfg.Depth,
		SamplesPerNode:    cfg.SamplesPerNode,
		ConstraintWeight:  effectiveConstraintWeight(cfg),
		UseNormalWeights:  cfg.NWeights,
		Confidence:        cfg.Confidence,
		AdaptiveExponent:  cfg.AdaptiveExponent,
		Boundary:          cfg.Boundary,
		ForceNeumannField: cfg.ForceNeumannField,
	})

	nRead, err := runSplatPass(source, cfg, bounds, pline, log)
	if err != nil {
		return Result{}, err
	}
	pline.Finalize()
	side := pline.Side()
	log.Infof("splat pass done: %d normals, %d screening points", len(side.Normals), len(side.ScreenPoints))

	carries := carryingNodes(tree)
	sorted := octree.BuildSortedNodes(tree, func(idx int32) bool { return carries[idx] })
	log.Infof("clipped tree: %d indexed nodes across %d depths", sorted.Len(), tree.MaxDepth()+1)

	scfg := solver.Config{
		MinDepth:               cfg.MinDepth,
		GradientDomainSolution: cfg.GradientDomainSolution,
		FixedIters:             cfg.Iters,
		Accuracy:               cfg.Accuracy,
		Threads:                cfg.Threads,
	}
	solver.AssembleConstraints(tree, sorted, table, side, scfg)
	iters := solver.Cascade(tree, sorted, table, side, scfg)
	log.Infof("multigrid cascade: %d CG iterations over %d nodes", iters, sorted.Len())

	isoValue := solver.SelectIsoValue(tree, table, side, cfg.Boundary)
	log.Infof("selected iso-value %.6g", isoValue)

	out := &denormalizingSink{
		sink:    sink,
		bounds:  bounds,
		tree:    tree,
		side:    side,
		density: cfg.Density,
	}
	stats := isosurface.Extract(tree, table, out, isosurface.Config{
		IsoValue:     isoValue,
		NonLinearFit: cfg.NonLinearFit,
		PolygonMesh:  cfg.PolygonMesh,
	})
	if stats.UnresolvedLoops > 0 {
		log.Warnf("%d unresolved loop closures during extraction (spec.md §7 topological diagnostic)", stats.UnresolvedLoops)
	}
	if stats.SkippedLeaves > 0 {
		log.Debugf("%d leaves skipped (uniformly inside/outside the iso-surface)", stats.SkippedLeaves)
	}
	log.Infof("extraction: %d leaves, %d polygons/triangles", stats.LeavesProcessed, stats.TrianglesOrPolys)

	return Result{
		Stats:       stats,
		IsoValue:    isoValue,
		CGIters:     iters,
		SamplesRead: nRead,
		Bounds:      bounds,
	}, nil
}

// effectiveConstraintWeight mirrors the original's --pointWeight
// semantics: a zero pointWeight always disables screening outright
// (spec.md §6), independent of --confidence/--nWeights, which only
// affect how a sample's normal length is used once screening is on.
func effectiveConstraintWeight(cfg reconconfig.Config) float64 {
	return cfg.PointWeight
}

// runBoundsPass implements spec.md §4.4 pass 1: read every sample
// once, accumulate the input-transformed bounding box, and derive the
// normalizing Bounds. The samples are buffered only to feed
// points.ComputeBounds; pass 2 (runSplatPass) reads the stream again
// through Reset/Next.
func runBoundsPass(source meshio.PointSource, cfg reconconfig.Config, log pipelog.Logger) (points.Bounds, error) {
	if err := source.Reset(); err != nil {
		return points.Bounds{}, pipeerr.New(pipeerr.KindInput, err, "reset point source for bounds pass")
	}
	var samples []points.Sample
	for {
		s, ok, err := source.Next()
		if err != nil {
			return points.Bounds{}, pipeerr.New(pipeerr.KindInput, err, "read sample during bounds pass")
		}
		if !ok {
			break
		}
		samples = append(samples, points.Sample{Position: s.Position, Normal: s.Normal})
	}
	if len(samples) == 0 {
		return points.Bounds{}, pipeerr.New(pipeerr.KindInput, errors.New("empty point stream"), "bounds pass")
	}
	bounds := points.ComputeBounds(samples, cfg.XForm, cfg.Scale, cfg.Boundary)
	log.Infof("bounds pass: %d samples, center=%v scale=%.6g", len(samples), bounds.Center, bounds.Scale)
	return bounds, nil
}

// runSplatPass implements spec.md §4.4 pass 2: re-read the stream
// (via a fresh Reset, per the PointSource contract of spec.md §6) and
// feed every sample through the splat+screen pipeline.
func runSplatPass(source meshio.PointSource, cfg reconconfig.Config, bounds points.Bounds, pline *points.Pipeline, log pipelog.Logger) (int, error) {
	if err := source.Reset(); err != nil {
		return 0, pipeerr.New(pipeerr.KindInput, err, "reset point source for splat pass")
	}
	n := 0
	for {
		s, ok, err := source.Next()
		if err != nil {
			return n, pipeerr.New(pipeerr.KindInput, err, "read sample during splat pass")
		}
		if !ok {
			break
		}
		pline.Add(bounds, cfg.XForm, points.Sample{Position: s.Position, Normal: s.Normal})
		n++
	}
	if n == 0 {
		return 0, pipeerr.New(pipeerr.KindInput, errors.New("empty point stream"), "splat pass")
	}
	return n, nil
}

// carryingNodes computes, bottom-up, which arena nodes carry a
// splatted normal or have a descendant that does — spec.md §3's
// tree lifecycle step "clipped to cells carrying normals". Only
// carrying nodes are assigned a solve-participating sequence index.
func carryingNodes(tree *octree.Tree) []bool {
	carries := make([]bool, len(tree.Nodes))
	var walk func(idx int32) bool
	walk = func(idx int32) bool {
		n := &tree.Nodes[idx]
		c := n.NormalIdx != octree.NoIndex
		if !n.IsLeaf() {
			for _, ch := range n.Children {
				if walk(ch) {
					c = true
				}
			}
		}
		carries[idx] = c
		return c
	}
	walk(tree.Root())
	return carries
}

// denormalizingSink wraps a caller's meshio.MeshSink so the extractor
// (which works entirely in the [0,1]^3 normalized domain) can stay
// ignorant of the input transform: every vertex is mapped back into
// the caller's coordinates, and a density scalar is attached when
// requested, before delegating to the wrapped sink (spec.md §4.8's
// "all per-vertex positions are finally de-normalized by scale and
// center").
type denormalizingSink struct {
	sink    meshio.MeshSink
	bounds  points.Bounds
	tree    *octree.Tree
	side    *points.Side
	density bool
}

func (d *denormalizingSink) prepare(v meshio.Vertex) meshio.Vertex {
	if d.density {
		v.Density = densityAt(d.tree, d.side, v.Position)
		v.HasDensity = true
	}
	v.Position = d.bounds.Denormalize(v.Position)
	return v
}

func (d *denormalizingSink) AddInCorePoint(v meshio.Vertex) int {
	return d.sink.AddInCorePoint(d.prepare(v))
}

func (d *denormalizingSink) AddOutOfCorePoint(v meshio.Vertex) int {
	return d.sink.AddOutOfCorePoint(d.prepare(v))
}

func (d *denormalizingSink) InCorePoint(i int) meshio.Vertex { return d.sink.InCorePoint(i) }

func (d *denormalizingSink) AddPolygon(vs []meshio.PolygonVertex) { d.sink.AddPolygon(vs) }

func (d *denormalizingSink) OutOfCorePointCount() int { return d.sink.OutOfCorePointCount() }

// densityAt estimates the local sample density at a normalized
// position by descending the (read-only, post-solve) tree to its
// containing leaf and climbing parents until a splatted weight is
// found, the same density estimator points.Pipeline uses internally
// during the splat pass (spec.md §6's --density output path, tested
// for non-negativity and local-sample-count monotonicity by E3).
func densityAt(tree *octree.Tree, side *points.Side, pos r3.Vec) float64 {
	idx := leafContaining(tree, pos)
	for idx != octree.NoIndex {
		n := &tree.Nodes[idx]
		if n.WeightIdx != octree.NoIndex {
			return side.WeightSamples[n.WeightIdx]
		}
		idx = n.Parent
	}
	return 0
}

// leafContaining descends from the root to the leaf containing pos
// without mutating the tree (unlike octree.Tree.DescendToDepth, which
// splits nodes on the way down).
func leafContaining(tree *octree.Tree, pos r3.Vec) int32 {
	idx := tree.Root()
	for {
		n := &tree.Nodes[idx]
		if n.IsLeaf() {
			return idx
		}
		d := n.Depth + 1
		size := 1 << d
		c := 0
		coords := [3]float64{pos.X, pos.Y, pos.Z}
		for axis := 0; axis < 3; axis++ {
			childOff := n.Offset[axis] * 2
			if coords[axis]*float64(size) >= float64(childOff+1) {
				c |= 1 << axis
			}
		}
		idx = n.Children[c]
	}
}
