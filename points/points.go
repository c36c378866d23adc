// Package points implements the setTree input pipeline (spec.md
// §4.4): two streaming passes over the oriented point cloud — a
// bounds pass that fits the unit cube, and a splat+screen pass that
// builds the octree, splats density weights and normals, and
// accumulates screening points — followed by finalization.
package points

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/bspline"
	"github.com/soypat/poissonrecon/octree"
	"github.com/soypat/poissonrecon/vecmath"
)

// Epsilon bounds the smallest normal length treated as non-degenerate
// (spec.md §4.4's failure case: "normal with length <= EPSILON ->
// skip sample").
const Epsilon = 1e-6

// Sample is one raw oriented point, in the caller's input coordinates.
type Sample struct {
	Position r3.Vec
	Normal   r3.Vec
}

// Bounds is the result of the bounds pass: the affine map from input
// coordinates into the reconstruction's unit cube.
type Bounds struct {
	Center r3.Vec
	Scale  float64
}

// Normalize maps a transformed input position into [0,1]^3.
func (b Bounds) Normalize(p r3.Vec) r3.Vec {
	return r3.Scale(1/b.Scale, r3.Sub(p, b.Center))
}

// Denormalize is Normalize's inverse, mapping a [0,1]^3 position back
// into the original input coordinates (spec.md §4.8's "all per-vertex
// positions are finally de-normalized by scale and center").
func (b Bounds) Denormalize(p r3.Vec) r3.Vec {
	return r3.Add(r3.Scale(b.Scale, p), b.Center)
}

// ComputeBounds runs pass 1 of spec.md §4.4: apply xform to every
// sample position, accumulate the axis-aligned bounding box, then set
// scale = maxAxisSpan*scaleFactor (doubled in free-boundary mode) and
// center = midpoint - (scale/2)*1.
func ComputeBounds(samples []Sample, xform vecmath.Mat4, scaleFactor float64, mode boundary.Mode) Bounds {
	if len(samples) == 0 {
		return Bounds{Scale: 1}
	}
	first := xform.TransformPoint(samples[0].Position)
	box := vecmath.Box{Min: first, Max: first}
	for _, s := range samples[1:] {
		box = box.Include(xform.TransformPoint(s.Position))
	}
	span := vecmath.MaxAxis(box.Size())
	scale := span * scaleFactor
	if mode == boundary.Free {
		scale *= 2
	}
	if scale <= 0 {
		scale = 1
	}
	center := r3.Sub(box.Center(), vecmath.Elem(scale/2))
	return Bounds{Center: center, Scale: scale}
}

// boundaryMargin is how far outside [0,1]^3 a sample may still land
// and be kept, per spec.md §4.4 ("margin 0.25 in free mode, 0 otherwise").
func boundaryMargin(mode boundary.Mode) float64 {
	if mode == boundary.Free {
		return 0.25
	}
	return 0
}

// Side holds the append-only per-node side arrays the octree's
// NormalIdx/PointIdx/WeightIdx fields index into (spec.md §3's
// "Per-node data").
type Side struct {
	Normals       []r3.Vec
	WeightSamples []float64
	ScreenPoints  []screenPoint
}

type screenPoint struct {
	Pos    r3.Vec
	Weight float64
}

// NewSide returns an empty side-array set.
func NewSide() *Side { return &Side{} }

// Config bundles the setTree-pass parameters.
type Config struct {
	SplatDepth       int
	MinDepth         int
	MaxDepth         int
	SamplesPerNode   float64
	ConstraintWeight float64 // 0 disables screening
	UseNormalWeights bool
	Confidence       bool // use input normal length as confidence instead of normalizing to unit length
	AdaptiveExponent float64
	Boundary         boundary.Mode
	// ForceNeumannField mirrors FORCE_NEUMANN_FIELD: zero boundary
	// normals even when Boundary isn't itself Neumann.
	ForceNeumannField bool
}

// Pipeline runs the splat+screen pass (spec.md §4.4 steps 1-4) over a
// normalized sample stream and returns the side arrays it populated.
// nRead counts the samples Add kept (samples it skipped are not
// counted) and is the N of the pointWeightSum/N finalization term.
type Pipeline struct {
	tree   *octree.Tree
	table  *bspline.Table
	side   *Side
	cfg    Config
	nd, md float64 // running average splat/topDepth, for the finalize exponent

	pointWeightSum float64
	nRead          int
}

// NewPipeline returns a Pipeline that builds into tree using table.
func NewPipeline(tree *octree.Tree, table *bspline.Table, cfg Config) *Pipeline {
	return &Pipeline{tree: tree, table: table, side: NewSide(), cfg: cfg}
}

// Side returns the side arrays populated so far.
func (p *Pipeline) Side() *Side { return p.side }

// Add processes one raw sample: it maps the position into [0,1]^3
// through xform and bnds, and carries the normal through xform's
// inverse-transpose. It implements spec.md §4.4 steps 1-4 for a single sample.
func (p *Pipeline) Add(bnds Bounds, xform vecmath.Mat4, raw Sample) {
	pos := bnds.Normalize(xform.TransformPoint(raw.Position))
	n := xform.InverseTranspose3().TransformDirection(raw.Normal)
	margin := boundaryMargin(p.cfg.Boundary)
	if pos.X < -margin || pos.Y < -margin || pos.Z < -margin ||
		pos.X > 1+margin || pos.Y > 1+margin || pos.Z > 1+margin {
		return
	}
	length := r3.Norm(n)
	if length <= Epsilon {
		return
	}
	if !p.cfg.Confidence {
		n = r3.Scale(1/length, n)
		length = 1
	}
	p.nRead++

	// Step 1: descend to splatDepth, splatting density weight along
	// the way via the tensor-product quadratic kernel Q = bspline.Value.
	leaf := p.tree.DescendToDepth(p.tree.Root(), [3]float64{pos.X, pos.Y, pos.Z}, p.cfg.SplatDepth)
	p.splatDensity(leaf, pos)

	// Step 2: estimate local density at splatDepth, then climb parents
	// until the accumulated weight reaches samplesPerNode, giving a
	// fractional target depth.
	topDepth, weight := p.sampleDepthAndWeight(leaf)
	topDepth = vecmath.Clamp(topDepth, float64(p.cfg.MinDepth), float64(p.cfg.MaxDepth))
	p.nd += topDepth
	intDepth := int(math.Ceil(topDepth))
	if intDepth < p.cfg.MinDepth {
		intDepth = p.cfg.MinDepth
	}
	if intDepth > p.cfg.MaxDepth {
		intDepth = p.cfg.MaxDepth
	}
	p.md += float64(intDepth)
	target := p.tree.DescendToDepth(p.tree.Root(), [3]float64{pos.X, pos.Y, pos.Z}, intDepth)

	// Step 3: splat the normal into the topDepth cell and its parent,
	// blended by the fractional part of topDepth.
	frac := topDepth - math.Floor(topDepth)
	p.splatNormal(target, n, 1-frac)
	if parent := p.tree.Nodes[target].Parent; parent != octree.NoIndex && frac > 0 {
		p.splatNormal(parent, n, frac)
	}

	// Step 4: screening accumulation.
	if p.cfg.ConstraintWeight > 0 {
		w := 1.0
		if p.cfg.UseNormalWeights {
			w = length
		}
		p.accumulateScreening(target, pos, w)
		p.pointWeightSum += weight
	}
}

// splatDensity adds the tensor-product kernel's contribution from a
// sample at pos into every node in the 3x3x3 same-depth neighborhood
// of leaf, descending from the root and touching every ancestor along
// the way (spec.md §4.4 step 1).
func (p *Pipeline) splatDensity(leaf int32, pos r3.Vec) {
	idx := leaf
	for idx != octree.NoIndex {
		p.splatDensityAtNode(idx, pos)
		idx = p.tree.Nodes[idx].Parent
	}
}

// splatDensityAtNode looks neighbors up directly rather than through a
// NeighborKey: no node has a SeqIndex yet during this pass, and a
// NeighborKey reports unindexed nodes as absent.
func (p *Pipeline) splatDensityAtNode(idx int32, pos r3.Vec) {
	d, o := p.tree.Nodes[idx].Depth, p.tree.Nodes[idx].Offset
	size := 1 << d
	_, width := p.tree.CenterWidth(idx)
	for i := 0; i < 27; i++ {
		off := [3]int{o[0] + i%3 - 1, o[1] + i/3%3 - 1, o[2] + i/9 - 1}
		nb := octree.NoIndex
		if off[0] >= 0 && off[1] >= 0 && off[2] >= 0 && off[0] < size && off[1] < size && off[2] < size {
			nb = p.tree.Lookup(d, off)
		}
		if nb == octree.NoIndex {
			continue
		}
		ncenter, _ := p.tree.CenterWidth(nb)
		sx := (pos.X - ncenter[0]) / width
		sy := (pos.Y - ncenter[1]) / width
		sz := (pos.Z - ncenter[2]) / width
		q := bspline.Value(sx) * bspline.Value(sy) * bspline.Value(sz)
		if q == 0 {
			continue
		}
		n := &p.tree.Nodes[nb]
		if n.WeightIdx == octree.NoIndex {
			n.WeightIdx = int32(len(p.side.WeightSamples))
			p.side.WeightSamples = append(p.side.WeightSamples, 0)
		}
		p.side.WeightSamples[n.WeightIdx] += q
	}
}

// sampleDepthAndWeight implements spec.md §4.4 step 2: weight is the
// reciprocal of the density estimate at leaf, and the fractional
// target depth is obtained by climbing parents until the local
// weight estimate reaches samplesPerNode.
func (p *Pipeline) sampleDepthAndWeight(leaf int32) (depth, weight float64) {
	n := &p.tree.Nodes[leaf]
	oldWeight := p.density(leaf)
	if oldWeight <= 0 {
		oldWeight = 1
	}
	weight = 1 / oldWeight
	d := float64(n.Depth)
	cur := leaf
	for p.tree.Nodes[cur].Parent != octree.NoIndex {
		parent := p.tree.Nodes[cur].Parent
		newWeight := p.density(parent)
		if newWeight <= 0 {
			cur = parent
			d--
			continue
		}
		if newWeight >= p.cfg.SamplesPerNode {
			ratio := math.Log(newWeight/p.cfg.SamplesPerNode) / math.Log(newWeight/oldWeight+1e-12)
			return d + ratio, weight
		}
		oldWeight = newWeight
		cur = parent
		d--
	}
	return d, weight
}

// density returns the accumulated splat-kernel weight at idx.
func (p *Pipeline) density(idx int32) float64 {
	n := &p.tree.Nodes[idx]
	if n.WeightIdx == octree.NoIndex {
		return 0
	}
	return p.side.WeightSamples[n.WeightIdx]
}

// splatNormal adds scale*n into idx's own normal side-array entry. It
// is a single-cell splat: the same-depth neighbors of idx receive
// nothing, and no kernel weight is applied.
func (p *Pipeline) splatNormal(idx int32, n r3.Vec, scale float64) {
	if scale == 0 {
		return
	}
	node := &p.tree.Nodes[idx]
	if node.NormalIdx == octree.NoIndex {
		node.NormalIdx = int32(len(p.side.Normals))
		p.side.Normals = append(p.side.Normals, r3.Vec{})
	}
	p.side.Normals[node.NormalIdx] = r3.Add(p.side.Normals[node.NormalIdx], r3.Scale(scale, n))
}

// accumulateScreening aggregates a weighted position/weight pair into
// idx's screening-point side-array entry (spec.md §4.4 step 4).
func (p *Pipeline) accumulateScreening(idx int32, pos r3.Vec, w float64) {
	node := &p.tree.Nodes[idx]
	if node.PointIdx == octree.NoIndex {
		node.PointIdx = int32(len(p.side.ScreenPoints))
		p.side.ScreenPoints = append(p.side.ScreenPoints, screenPoint{})
	}
	sp := &p.side.ScreenPoints[node.PointIdx]
	sp.Pos = r3.Add(sp.Pos, r3.Scale(w, pos))
	sp.Weight += w
}

// Finalize implements the post-pass normalization of spec.md §4.4:
// divide each screening point's position by its weight, then scale
// the weight by constraintWeight*(pointWeightSum/N)*2^e, with
// e = nd*A - md*(A-1) derived from the average fractional (nd) and
// integer (md) target depths seen during the pass. In Neumann mode, or
// whenever ForceNeumannField is set regardless of Boundary, any normal
// splatted onto a node touching the domain boundary has its
// boundary-normal component zeroed (the boundary itself carries no
// normal flux).
func (p *Pipeline) Finalize() {
	n := float64(p.nRead)
	if n == 0 {
		return
	}
	avgND, avgMD := p.nd/n, p.md/n
	e := avgND*p.cfg.AdaptiveExponent - avgMD*(p.cfg.AdaptiveExponent-1)
	scaleFactor := p.cfg.ConstraintWeight * (p.pointWeightSum / n) * math.Exp2(e)
	for i := range p.side.ScreenPoints {
		sp := &p.side.ScreenPoints[i]
		if sp.Weight <= 0 {
			continue
		}
		sp.Pos = r3.Scale(1/sp.Weight, sp.Pos)
		sp.Weight *= scaleFactor
	}
	if p.cfg.Boundary == boundary.Neumann || p.cfg.ForceNeumannField {
		p.zeroNeumannBoundaryNormals()
	}
}

// zeroNeumannBoundaryNormals zeros the component of every splatted
// normal that's perpendicular to a domain face the node touches.
func (p *Pipeline) zeroNeumannBoundaryNormals() {
	for idx := range p.tree.Nodes {
		n := &p.tree.Nodes[idx]
		if n.NormalIdx == octree.NoIndex {
			continue
		}
		size := 1 << n.Depth
		normal := &p.side.Normals[n.NormalIdx]
		if n.Offset[0] == 0 || n.Offset[0] == size-1 {
			normal.X = 0
		}
		if n.Offset[1] == 0 || n.Offset[1] == size-1 {
			normal.Y = 0
		}
		if n.Offset[2] == 0 || n.Offset[2] == size-1 {
			normal.Z = 0
		}
	}
}
