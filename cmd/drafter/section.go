package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gobim/drafter"
	"github.com/gobim/drafter/export"
	"github.com/gobim/drafter/internal/stl"

	// Enable GPU section cutting when a device is available.
	_ "github.com/gobim/drafter/gpu"
)

var (
	sectionAxis   string
	sectionOffset float64
	sectionFlip   bool
	sectionOutput string
	sectionScale  float64
	sectionSheet  string
	sectionDepth  float64
	sectionNoGPU  bool
)

var sectionCmd = &cobra.Command{
	Use:   "section [file...]",
	Short: "Cut STL meshes with a section plane and export a 2D drawing",
	Long: `Cut one or more STL meshes with an axis-aligned section plane and
write the resulting drawing. A horizontal plane (axis z) produces a floor
plan; vertical planes (axis x or y) produce sections. The output format
follows the output file extension: .svg or .dxf.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSection,
}

func init() {
	rootCmd.AddCommand(sectionCmd)

	sectionCmd.Flags().StringVarP(&sectionAxis, "axis", "a", "z", "Section plane axis (x, y, or z)")
	sectionCmd.Flags().Float64VarP(&sectionOffset, "offset", "o", 1.2, "Plane offset along the axis")
	sectionCmd.Flags().BoolVar(&sectionFlip, "flip", false, "Look down the negative axis direction")
	sectionCmd.Flags().StringVar(&sectionOutput, "out", "drawing.svg", "Output file (.svg or .dxf)")
	sectionCmd.Flags().Float64Var(&sectionScale, "scale", 0, "Drawing scale denominator (50 means 1:50, 0 fits)")
	sectionCmd.Flags().StringVar(&sectionSheet, "sheet", "a3", "Sheet size (a0-a4, SVG only)")
	sectionCmd.Flags().Float64Var(&sectionDepth, "depth", 5.0, "Projection depth beyond the cut plane")
	sectionCmd.Flags().BoolVar(&sectionNoGPU, "no-gpu", false, "Force CPU section cutting")
}

func runSection(cmd *cobra.Command, args []string) error {
	if verbose {
		drafter.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	axis, err := parseAxis(sectionAxis)
	if err != nil {
		return err
	}
	plane := drafter.SectionPlane{
		Axis:    axis,
		Offset:  sectionOffset,
		Negated: sectionFlip,
		Flipped: sectionFlip,
	}

	meshes := make([]*drafter.Mesh, 0, len(args))
	for i, file := range args {
		m, err := stl.Load(file)
		if err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
		m.EntityID = uint32(i + 1)
		m.ModelIndex = 0
		if m.IfcType == "" {
			m.IfcType = strings.ToUpper(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		}
		meshes = append(meshes, m)
	}

	cfg := drafter.DefaultConfig()
	cfg.Edge.MaxDepth = sectionDepth

	opts := []drafter.Option{drafter.WithConfig(cfg)}
	if sectionNoGPU {
		opts = append(opts, drafter.WithoutGPU())
	}
	if verbose {
		opts = append(opts, drafter.WithProgress(func(stage drafter.Stage, fraction float64) {
			fmt.Fprintf(os.Stderr, "  %-12s %3.0f%%\n", stage, fraction*100)
		}))
	}

	gen := drafter.NewGenerator(opts...)
	defer gen.Close()

	drawing, err := gen.Generate(context.Background(), plane, meshes, nil)
	if err != nil {
		return fmt.Errorf("generate drawing: %w", err)
	}

	fmt.Printf("Meshes: %d, triangles: %d\n", len(meshes), drawing.Stats.TriangleCount)
	fmt.Printf("Lines: %d, cut polygons: %d, hatch strokes: %d\n",
		len(drawing.Lines), len(drawing.CutPolygons), len(drawing.Hatches))
	fmt.Printf("Generated in %s (GPU: %v)\n", drawing.Stats.TotalTime, drawing.Stats.GPUUsed)

	return writeDrawing(drawing)
}

func parseAxis(s string) (drafter.Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return drafter.AxisX, nil
	case "y":
		return drafter.AxisY, nil
	case "z":
		return drafter.AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q: want x, y, or z", s)
}

func parseSheet(s string) (export.SheetSize, error) {
	switch strings.ToLower(s) {
	case "a0":
		return export.SheetA0, nil
	case "a1":
		return export.SheetA1, nil
	case "a2":
		return export.SheetA2, nil
	case "a3":
		return export.SheetA3, nil
	case "a4":
		return export.SheetA4, nil
	}
	return export.SheetSize{}, fmt.Errorf("invalid sheet size %q: want a0-a4", s)
}

func writeDrawing(d *drafter.Drawing2D) error {
	switch strings.ToLower(filepath.Ext(sectionOutput)) {
	case ".svg":
		sheet, err := parseSheet(sectionSheet)
		if err != nil {
			return err
		}
		opt := export.DefaultSheetOptions()
		opt.Size = sheet
		opt.Scale = sectionScale
		f, err := os.Create(sectionOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", sectionOutput, err)
		}
		defer f.Close()
		if err := export.WriteSVG(f, d, opt); err != nil {
			return err
		}
	case ".dxf":
		if err := export.SaveDXF(sectionOutput, d); err != nil {
			return fmt.Errorf("write %s: %w", sectionOutput, err)
		}
	default:
		return fmt.Errorf("unsupported output format %q: want .svg or .dxf", sectionOutput)
	}
	fmt.Printf("Wrote %s\n", sectionOutput)
	return nil
}
