package recon

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/internal/pipelog"
	"github.com/soypat/poissonrecon/internal/reconconfig"
	"github.com/soypat/poissonrecon/meshio"
	"github.com/soypat/poissonrecon/vecmath"
)

// fibonacciSphere returns n oriented samples on the unit sphere via a
// Fibonacci lattice, the same construction spec.md §8's E6 end-to-end
// scenario names ("a perfect unit sphere sampled with ... Fibonacci
// points"), scaled down to a size a unit test can solve quickly.
func fibonacciSphere(n int) []meshio.Sample {
	out := make([]meshio.Sample, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		y := 1 - 2*float64(i)/float64(n-1)
		radius := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		pos := r3.Vec{X: math.Cos(theta) * radius, Y: y, Z: math.Sin(theta) * radius}
		out[i] = meshio.Sample{Position: pos, Normal: pos}
	}
	return out
}

func TestRunReconstructsSphere(t *testing.T) {
	samples := fibonacciSphere(2000)
	source := meshio.NewSliceSource(samples)
	sink := meshio.NewMemorySink()

	cfg := reconconfig.Default()
	cfg.Depth = 5
	cfg.FullDepth = 3
	cfg.PointWeight = 4
	cfg.Boundary = boundary.Neumann
	cfg.XForm = vecmath.Identity4()

	res, err := Run(cfg, source, sink, pipelog.New("test", false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SamplesRead != len(samples) {
		t.Fatalf("SamplesRead = %d, want %d", res.SamplesRead, len(samples))
	}
	if res.Stats.TrianglesOrPolys == 0 {
		t.Fatal("extraction produced no polygons")
	}
	if len(sink.Polygons) == 0 {
		t.Fatal("sink has no polygons")
	}

	// Every emitted mesh vertex should land roughly on the unit
	// sphere: far from the origin-degenerate center and not wildly
	// outside the input's bounding radius (a loose sanity bound, not
	// the tight inscribed/circumscribed-radius check of E6's full
	// depth-8/100k-point run).
	minR, maxR := math.Inf(1), math.Inf(-1)
	for _, poly := range sink.Polygons {
		for _, pv := range poly {
			v := sink.Resolve(pv)
			r := r3.Norm(v.Position)
			if r < minR {
				minR = r
			}
			if r > maxR {
				maxR = r
			}
		}
	}
	if minR < 0.5 || maxR > 1.5 {
		t.Fatalf("mesh radius range [%.3f, %.3f] far from unit sphere", minR, maxR)
	}
}

func TestRunRejectsEmptyStream(t *testing.T) {
	source := meshio.NewSliceSource(nil)
	sink := meshio.NewMemorySink()
	cfg := reconconfig.Default()
	cfg.Depth = 4

	_, err := Run(cfg, source, sink, pipelog.New("test", false))
	if err == nil {
		t.Fatal("expected an input error for an empty point stream")
	}
}

func TestRunValidatesConfig(t *testing.T) {
	source := meshio.NewSliceSource(fibonacciSphere(16))
	sink := meshio.NewMemorySink()
	cfg := reconconfig.Default()
	cfg.Depth = 0 // invalid per reconconfig.Validate

	_, err := Run(cfg, source, sink, pipelog.New("test", false))
	if err == nil {
		t.Fatal("expected a configuration error for depth 0")
	}
}

func TestRunEmitsDensityWhenRequested(t *testing.T) {
	samples := fibonacciSphere(1000)
	source := meshio.NewSliceSource(samples)
	sink := meshio.NewMemorySink()

	cfg := reconconfig.Default()
	cfg.Depth = 5
	cfg.FullDepth = 3
	cfg.Density = true

	if _, err := Run(cfg, source, sink, pipelog.New("test", false)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for i := 0; i < sink.InCorePointCount(); i++ {
		v := sink.InCorePoint(i)
		if !v.HasDensity {
			t.Fatalf("in-core vertex %d missing density", i)
		}
		if v.Density < 0 {
			t.Fatalf("in-core vertex %d has negative density %.6g", i, v.Density)
		}
		if v.Density > 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("no vertex reported a positive density estimate")
	}
}
