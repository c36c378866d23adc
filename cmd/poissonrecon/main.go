// Command poissonrecon is the reconstruct front end of spec.md §6's
// CLI contract, mirroring the original PoissonRecon binary: read an
// oriented point cloud, run the screened Poisson solve, write a mesh.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soypat/poissonrecon/boundary"
	"github.com/soypat/poissonrecon/internal/meshtext"
	"github.com/soypat/poissonrecon/internal/pipeerr"
	"github.com/soypat/poissonrecon/internal/pipelog"
	"github.com/soypat/poissonrecon/internal/reconconfig"
	"github.com/soypat/poissonrecon/meshio"
	"github.com/soypat/poissonrecon/recon"
	"github.com/soypat/poissonrecon/vecmath"
)

var (
	flagIn             string
	flagOut            string
	flagDepth          int
	flagMinDepth       int
	flagFullDepth      int
	flagSamplesPerNode float64
	flagPointWeight    float64
	flagScale          float64
	flagConfidence     bool
	flagNWeights       bool
	flagDensity        bool
	flagPolygonMesh    bool
	flagNonLinearFit   bool
	flagIters          int
	flagAccuracy       float64
	flagThreads        int
	flagVerbose        bool
	flagBoundary       string
	flagXForm          []float64
	flagForceNeumann   bool
)

var rootCmd = &cobra.Command{
	Use:   "poissonrecon",
	Short: "Screened Poisson Surface Reconstruction from an oriented point cloud",
}

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Reconstruct a watertight mesh from an oriented point cloud (spec.md §6's PoissonRecon command)",
	RunE:  runReconstruct,
}

func init() {
	rootCmd.AddCommand(reconstructCmd)

	f := reconstructCmd.Flags()
	f.StringVar(&flagIn, "in", "", "input point cloud path (required; meshtext format, see internal/meshtext)")
	f.StringVar(&flagOut, "out", "", "output mesh path (required; meshtext format)")
	f.IntVar(&flagDepth, "depth", 8, "maximum octree depth")
	f.IntVar(&flagMinDepth, "minDepth", 0, "minimum octree depth solved at")
	f.IntVar(&flagFullDepth, "fullDepth", 5, "depth each sample descends to for density splatting, before adaptive depth selection")
	f.Float64Var(&flagSamplesPerNode, "samplesPerNode", 1.5, "target sample density per leaf")
	f.Float64Var(&flagPointWeight, "pointWeight", 4, "screening constraint weight (0 disables screening)")
	f.Float64Var(&flagScale, "scale", 1.1, "bounding-cube scale factor")
	f.BoolVar(&flagConfidence, "confidence", false, "use input normal length as a confidence weight")
	f.BoolVar(&flagNWeights, "nWeights", false, "weight screening points by normal length")
	f.BoolVar(&flagDensity, "density", false, "emit a per-vertex density scalar")
	f.BoolVar(&flagPolygonMesh, "polygonMesh", false, "emit polygons instead of triangulating")
	f.BoolVar(&flagNonLinearFit, "nonLinearFit", true, "use Hermite-quadratic edge-root fitting")
	f.IntVar(&flagIters, "iters", 0, "fixed CG iteration count (0 = adaptive)")
	f.Float64Var(&flagAccuracy, "accuracy", 1, "CG accuracy factor")
	f.IntVar(&flagThreads, "threads", 1, "worker pool size")
	f.BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	f.StringVar(&flagBoundary, "boundary", "Neumann", "boundary mode: free|Dirichlet|Neumann")
	f.Float64SliceVar(&flagXForm, "xForm", []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}, "row-major 4x4 input transform applied before bounding-cube fitting (16 comma-separated values)")
	f.BoolVar(&flagForceNeumann, "forceNeumannField", false, "zero boundary normals even outside Neumann boundary mode")
	reconstructCmd.MarkFlagRequired("in")
	reconstructCmd.MarkFlagRequired("out")
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	mode, err := boundary.Parse(flagBoundary)
	if err != nil {
		return pipeerr.New(pipeerr.KindConfiguration, err, "parse --boundary")
	}
	if len(flagXForm) != 16 {
		return pipeerr.New(pipeerr.KindConfiguration, fmt.Errorf("want 16 values, got %d", len(flagXForm)), "parse --xForm")
	}
	var xForm vecmath.Mat4
	copy(xForm[:], flagXForm)

	cfg := reconconfig.Default()
	cfg.Depth = flagDepth
	cfg.MinDepth = flagMinDepth
	cfg.FullDepth = flagFullDepth
	cfg.SamplesPerNode = flagSamplesPerNode
	cfg.PointWeight = flagPointWeight
	cfg.Scale = flagScale
	cfg.Confidence = flagConfidence
	cfg.NWeights = flagNWeights
	cfg.Density = flagDensity
	cfg.PolygonMesh = flagPolygonMesh
	cfg.NonLinearFit = flagNonLinearFit
	cfg.Iters = flagIters
	cfg.Accuracy = flagAccuracy
	cfg.Threads = flagThreads
	cfg.Verbose = flagVerbose
	cfg.Boundary = mode
	cfg.ForceNeumannField = flagForceNeumann || mode == boundary.Neumann
	cfg.XForm = xForm

	log := pipelog.New("poissonrecon", flagVerbose)

	source, err := meshtext.OpenPoints(flagIn)
	if err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "open --in")
	}
	defer source.Close()

	sink := meshio.NewMemorySink()
	result, err := recon.Run(cfg, source, sink, log)
	if err != nil {
		return err
	}

	outFile, err := os.Create(flagOut)
	if err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "create --out")
	}
	defer outFile.Close()
	if err := meshtext.WriteMesh(outFile, sink); err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "write --out")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d polygons (%d CG iterations, iso-value %.6g)\n",
		result.Stats.TrianglesOrPolys, result.CGIters, result.IsoValue)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if pipeerr.As(err, pipeerr.KindInput) || pipeerr.As(err, pipeerr.KindConfiguration) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
