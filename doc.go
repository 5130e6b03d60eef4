// Package drafter derives 2D architectural drawings (floor plans, sections,
// elevations) from 3D triangle-mesh building models.
//
// # Overview
//
// drafter cuts a set of meshes with an axis-aligned section plane and
// classifies the resulting geometry into publishable line-and-fill art:
// cut lines and closed cut polygons (with holes), feature and silhouette
// edges beyond the plane, hidden-line classification against a depth
// buffer, door/window opening subtraction, collinear line merging, and
// material hatch fills.
//
// # Quick Start
//
//	import "github.com/gobim/drafter"
//
//	gen := drafter.NewGenerator()
//	plane := drafter.SectionPlane{Axis: drafter.AxisZ, Offset: 1.2}
//	drawing, err := gen.Generate(context.Background(), plane, meshes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(drawing.Stats.CutLines, "cut lines")
//
// # GPU Acceleration
//
// The section cutter has a massively-parallel GPU formulation. Enable it
// with a blank import; when no GPU is available the CPU path is used with
// identical results within floating-point tolerance:
//
//	import _ "github.com/gobim/drafter/gpu"
//
// # Error Handling
//
// Imported building models are frequently imperfect, so the pipeline
// favors silent degradation over hard failure: degenerate segments are
// dropped, unclosable polygon loops are emitted as open polylines, and
// missing opening metadata falls back to documented defaults. Only
// malformed caller input (an unparseable entity key) and unrecoverable
// host failures (GPU device lost) surface as errors.
//
// # Output
//
// The resulting Drawing2D is a plain value. The export sub-package
// serializes it to SVG or DXF; rendering layers need only line geometry
// and the category/visibility/type tags.
package drafter

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
