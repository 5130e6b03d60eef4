package drafter

import (
	"math"
	"time"
)

// CutterConfig holds the section cutter tolerances.
type CutterConfig struct {
	// PlaneEpsilon is the on-plane distance below which a vertex is
	// treated as lying exactly on the section plane.
	PlaneEpsilon float64

	// MinLength2D discards projected segments shorter than this, which
	// near-degenerate triangles produce in quantity.
	MinLength2D float64
}

// DefaultCutterConfig returns the default cutter tolerances.
func DefaultCutterConfig() CutterConfig {
	return CutterConfig{
		PlaneEpsilon: 1e-9,
		MinLength2D:  1e-7,
	}
}

// PolygonConfig holds the polygon builder tolerances.
type PolygonConfig struct {
	// JoinTolerance is the endpoint distance within which two cut
	// segments are considered connected during loop walking.
	JoinTolerance float64
}

// DefaultPolygonConfig returns the default polygon builder tolerances.
func DefaultPolygonConfig() PolygonConfig {
	return PolygonConfig{JoinTolerance: 1e-4}
}

// EdgeConfig holds the feature-edge extractor parameters.
type EdgeConfig struct {
	// CreaseAngle is the dihedral angle (radians) above which an
	// interior edge becomes a crease.
	CreaseAngle float64

	// MaxDepth is the projection band depth beyond the cut plane.
	// Edges entirely outside the band are dropped.
	MaxDepth float64
}

// DefaultEdgeConfig returns the default edge extractor parameters.
func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		CreaseAngle: 30 * math.Pi / 180,
		MaxDepth:    5.0,
	}
}

// HiddenConfig holds the hidden-line classifier parameters.
type HiddenConfig struct {
	// Resolution is the depth buffer edge length in pixels. It is a
	// fixed constant, not adapted to model extent; very elongated plans
	// may alias and can raise it.
	Resolution int

	// DepthEpsilon avoids self-occlusion flicker where a line lies on
	// the surface that produced it.
	DepthEpsilon float64

	// MaxSamples caps the per-line sample count.
	MaxSamples int
}

// DefaultHiddenConfig returns the default hidden-line parameters.
func DefaultHiddenConfig() HiddenConfig {
	return HiddenConfig{
		Resolution:   1024,
		DepthEpsilon: 1e-2,
		MaxSamples:   256,
	}
}

// OpeningConfig holds the opening filter tolerances.
type OpeningConfig struct {
	// Tolerance pads the inside test when deciding whether a segment
	// endpoint falls within an opening rectangle.
	Tolerance float64
}

// DefaultOpeningConfig returns the default opening filter tolerances.
func DefaultOpeningConfig() OpeningConfig {
	return OpeningConfig{Tolerance: 1e-6}
}

// MergeConfig holds the line merger tolerances.
type MergeConfig struct {
	// AngleTolerance (radians) buckets lines by direction, mod pi.
	AngleTolerance float64

	// LineTolerance is the perpendicular distance within which two
	// parallel lines are treated as the same infinite line.
	LineTolerance float64

	// GapTolerance merges collinear intervals separated by less than
	// this gap.
	GapTolerance float64

	// DedupeTolerance is the endpoint distance within which two lines
	// count as duplicates.
	DedupeTolerance float64
}

// DefaultMergeConfig returns the default merger tolerances.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		AngleTolerance:  0.5 * math.Pi / 180,
		LineTolerance:   1e-4,
		GapTolerance:    1e-3,
		DedupeTolerance: 1e-6,
	}
}

// HatchConfig holds the hatch generator parameters.
type HatchConfig struct {
	// Scale multiplies every pattern's spacing, so one knob matches the
	// hatch density to the drawing scale.
	Scale float64

	// Patterns maps upper-case IFC type names to fill patterns. Types
	// without an entry get no hatch.
	Patterns map[string]HatchPattern
}

// DefaultHatchConfig returns the default hatch table.
func DefaultHatchConfig() HatchConfig {
	return HatchConfig{
		Scale:    1.0,
		Patterns: DefaultHatchTable(),
	}
}

// StreamConfig holds the streaming/batching knobs of the orchestrator.
type StreamConfig struct {
	// BatchSize is the number of meshes cut per batch before the
	// generator yields to the scheduler.
	BatchSize int

	// YieldInterval is how long the generator pauses between batches.
	// Zero yields the processor without sleeping. Cancelling the
	// context interrupts the pause.
	YieldInterval time.Duration

	// ArtifactFactor suppresses projection and silhouette lines longer
	// than this multiple of the cut-line bounding box diagonal.
	ArtifactFactor float64
}

// DefaultStreamConfig returns the default orchestrator knobs.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BatchSize:      256,
		ArtifactFactor: 1.5,
	}
}

// Config carries the per-stage configuration for one generation run.
// Tolerances live here rather than in package-level state so tests can
// vary them freely.
type Config struct {
	Cutter  CutterConfig
	Polygon PolygonConfig
	Edge    EdgeConfig
	Hidden  HiddenConfig
	Opening OpeningConfig
	Merge   MergeConfig
	Hatch   HatchConfig
	Stream  StreamConfig
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Cutter:  DefaultCutterConfig(),
		Polygon: DefaultPolygonConfig(),
		Edge:    DefaultEdgeConfig(),
		Hidden:  DefaultHiddenConfig(),
		Opening: DefaultOpeningConfig(),
		Merge:   DefaultMergeConfig(),
		Hatch:   DefaultHatchConfig(),
		Stream:  DefaultStreamConfig(),
	}
}
