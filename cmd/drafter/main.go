package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gobim/drafter"
)

var rootCmd = &cobra.Command{
	Use:   "drafter",
	Short: "Generate 2D architectural drawings from 3D meshes",
	Long: `drafter cuts triangle meshes with a section plane and produces
2D line drawings: floor plans, sections, and elevations with closed cut
polygons, hidden-line classification, and material hatching.
Input meshes are STL (ASCII or binary); output is SVG or DXF.`,
	Version: drafter.Version,
}

var verbose bool

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
