// Package reconconfig holds the reconstruction configuration shared by
// the library and the cmd/poissonrecon CLI front end (spec.md §6).
package reconconfig

import (
	"github.com/pkg/errors"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/internal/pipeerr"
	"github.com/soypat/poissonrecon/vecmath"
)

// Config bundles every reconstruction setting exposed by the CLI (spec.md §6).
type Config struct {
	Depth          int     // --depth
	MinDepth       int     // --minDepth
	FullDepth      int     // --fullDepth (the splat depth every sample descends to)
	SamplesPerNode float64 // --samplesPerNode
	PointWeight    float64 // --pointWeight (constraintWeight; 0 disables screening)
	Scale          float64 // --scale (scaleFactor)
	Confidence     bool    // --confidence (use input normal length as weight)
	NWeights       bool    // --nWeights (useNormalWeights for screening accumulation)
	Density        bool    // --density
	PolygonMesh    bool    // --polygonMesh
	NonLinearFit   bool    // --nonLinearFit
	Iters          int     // --iters (fixed CG iteration count; 0 = adaptive)
	Accuracy       float64 // --accuracy
	Threads        int     // --threads
	Verbose        bool    // --verbose
	XForm          vecmath.Mat4
	Boundary       boundary.Mode

	// GradientDomainSolution toggles the GRADIENT_DOMAIN_SOLUTION compile
	// time flag of the original into a runtime option (SPEC_FULL.md §5).
	GradientDomainSolution bool
	// ForceNeumannField mirrors FORCE_NEUMANN_FIELD. Default leaves it
	// false; cmd/poissonrecon sets it whenever Boundary == boundary.Neumann,
	// and the point pipeline zeroes boundary normals in Neumann mode either way.
	ForceNeumannField bool
	// AdaptiveExponent is the screening depth-adaptivity exponent A
	// from spec.md §4.4.
	AdaptiveExponent float64
	// StartingDepth enables subtree partitioning (spec.md §4.6) for
	// depths d > StartingDepth. 0 disables partitioning.
	StartingDepth int
}

// Default returns a Config populated with the numeric defaults implied
// by spec.md §6 and the original's behavior (SPEC_FULL.md §5).
func Default() Config {
	return Config{
		Depth:            8,
		MinDepth:         0,
		FullDepth:        5,
		SamplesPerNode:   1.5,
		PointWeight:      4,
		Scale:            1.1,
		NonLinearFit:     true,
		Accuracy:         1,
		Threads:          1,
		XForm:            vecmath.Identity4(),
		Boundary:         boundary.Neumann,
		AdaptiveExponent: 1,
	}
}

// Validate checks configuration consistency (spec.md §7's "configuration"
// error kind: boundary mode inconsistent with depth, and similar).
func (c Config) Validate() error {
	if c.Depth < 1 {
		return pipeerr.New(pipeerr.KindConfiguration, errors.Errorf("depth %d must be >= 1", c.Depth), "validate config")
	}
	if c.MinDepth < 0 || c.MinDepth > c.Depth {
		return pipeerr.New(pipeerr.KindConfiguration, errors.Errorf("minDepth %d out of range [0,%d]", c.MinDepth, c.Depth), "validate config")
	}
	if c.FullDepth < 0 || c.FullDepth > c.Depth {
		return pipeerr.New(pipeerr.KindConfiguration, errors.Errorf("fullDepth %d out of range [0,%d]", c.FullDepth, c.Depth), "validate config")
	}
	if c.SamplesPerNode <= 0 {
		return pipeerr.New(pipeerr.KindConfiguration, errors.New("samplesPerNode must be > 0"), "validate config")
	}
	if c.Threads < 1 {
		return pipeerr.New(pipeerr.KindConfiguration, errors.New("threads must be >= 1"), "validate config")
	}
	if c.Boundary == boundary.Dirichlet && c.Depth < 1 {
		return pipeerr.New(pipeerr.KindConfiguration, errors.New("Dirichlet boundary requires depth >= 1"), "validate config")
	}
	if c.StartingDepth < 0 || c.StartingDepth > c.Depth {
		return pipeerr.New(pipeerr.KindConfiguration, errors.Errorf("startingDepth %d out of range [0,%d]", c.StartingDepth, c.Depth), "validate config")
	}
	return nil
}

// EffectiveMaxDepth returns the max depth the tree is built to,
// incremented by one in free-boundary mode (spec.md §4.1).
func (c Config) EffectiveMaxDepth() int {
	if c.Boundary == boundary.Free {
		return c.Depth + 1
	}
	return c.Depth
}
