// Command surfacetrimmer is the trim front end of spec.md §6's CLI
// contract, mirroring the original SurfaceTrimmer binary. The
// original's trimming internals are an out-of-scope external
// collaborator per spec.md §1; this binary wires the CLI contract to
// internal/trimmer's simplified density-threshold component filter
// (spec.md §8's E4 scenario) rather than the original's hole-filling
// mode (E5), which is not implemented here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soypat/poissonrecon/internal/meshtext"
	"github.com/soypat/poissonrecon/internal/pipeerr"
	"github.com/soypat/poissonrecon/internal/trimmer"
)

var (
	flagIn      string
	flagOut     string
	flagTrim    float64
	flagARatio  float64
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "surfacetrimmer",
	Short: "Trim low-confidence regions from a reconstructed mesh",
}

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Remove low-density connected components from a density-annotated mesh (spec.md §6's SurfaceTrimmer command)",
	RunE:  runTrim,
}

func init() {
	rootCmd.AddCommand(trimCmd)

	f := trimCmd.Flags()
	f.StringVar(&flagIn, "in", "", "input mesh path (required; meshtext format with per-vertex density)")
	f.StringVar(&flagOut, "out", "", "output mesh path (required)")
	f.Float64Var(&flagTrim, "trim", 0, "density threshold below which a component is dropped")
	f.Float64Var(&flagARatio, "aRatio", 0, "if > 0, scales the threshold by the mesh's average density instead of using --trim directly")
	f.BoolVar(&flagVerbose, "verbose", false, "enable verbose output")
	trimCmd.MarkFlagRequired("in")
	trimCmd.MarkFlagRequired("out")
}

func runTrim(cmd *cobra.Command, args []string) error {
	inFile, err := os.Open(flagIn)
	if err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "open --in")
	}
	defer inFile.Close()

	mesh, err := meshtext.ReadMesh(inFile)
	if err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "parse --in")
	}

	trimmed, result := trimmer.Trim(mesh, trimmer.Config{Trim: flagTrim, ARatio: flagARatio})

	outFile, err := os.Create(flagOut)
	if err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "create --out")
	}
	defer outFile.Close()
	if err := meshtext.WriteMeshRaw(outFile, trimmed); err != nil {
		return pipeerr.New(pipeerr.KindInput, err, "write --out")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "dropped %d/%d components (%d -> %d triangles)\n",
		result.ComponentsDropped, result.ComponentsTotal, result.TrianglesBefore, result.TrianglesAfter)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
