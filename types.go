package drafter

import (
	"math"
	"time"
)

// LineCategory classifies a drawing line by its architectural meaning.
type LineCategory int

const (
	// CategoryCut marks geometry lying exactly on the section plane.
	CategoryCut LineCategory = iota

	// CategoryProjection marks visible geometry beyond the cut plane
	// within the projection depth band.
	CategoryProjection

	// CategoryHidden marks geometry occluded by nearer geometry.
	CategoryHidden

	// CategorySilhouette marks edges where adjacent faces face toward
	// vs. away from the viewer.
	CategorySilhouette

	// CategoryCrease marks edges whose adjacent faces meet at a sharp angle.
	CategoryCrease

	// CategoryBoundary marks open mesh edges with a single adjacent face.
	CategoryBoundary

	// CategoryAnnotation marks caller-supplied annotation geometry.
	CategoryAnnotation
)

// String returns the category name used for export layer ids.
func (c LineCategory) String() string {
	switch c {
	case CategoryCut:
		return "cut"
	case CategoryProjection:
		return "projection"
	case CategoryHidden:
		return "hidden"
	case CategorySilhouette:
		return "silhouette"
	case CategoryCrease:
		return "crease"
	case CategoryBoundary:
		return "boundary"
	case CategoryAnnotation:
		return "annotation"
	default:
		return "unknown"
	}
}

// Visibility tags the occlusion state of a drawing line.
type Visibility int

const (
	// VisibilityVisible means the whole line is unoccluded.
	VisibilityVisible Visibility = iota

	// VisibilityHidden means the whole line is occluded.
	VisibilityHidden

	// VisibilityPartial means occlusion varies along the line. The
	// hidden-line classifier splits such lines, so finished drawings
	// contain only visible and hidden lines.
	VisibilityPartial
)

// String returns the visibility name.
func (v Visibility) String() string {
	switch v {
	case VisibilityVisible:
		return "visible"
	case VisibilityHidden:
		return "hidden"
	case VisibilityPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// CutSegment is one plane/triangle intersection: a 3D line plus its 2D
// projection, tagged with the source mesh identity. At most one segment is
// produced per triangle.
type CutSegment struct {
	A3, B3 Vec3    // 3D endpoints on the section plane
	A, B   Point2D // projected drawing-plane endpoints

	EntityID   uint32
	IfcType    string
	ModelIndex int
}

// DrawingLine is a classified 2D line in the finished drawing.
type DrawingLine struct {
	Start, End Point2D

	Category   LineCategory
	Visibility Visibility

	EntityID   uint32
	IfcType    string
	ModelIndex int

	// Depth is the distance beyond the section plane, used for sorting
	// and occlusion tests. Cut lines have depth zero by construction.
	Depth float64
}

// Length returns the 2D length of the line.
func (l DrawingLine) Length() float64 {
	return l.Start.Distance(l.End)
}

// Polygon2D is one outer ring (counter-clockwise) plus zero or more hole
// rings (clockwise). Rings are closed by implicit wrap-around.
type Polygon2D struct {
	Outer []Point2D
	Holes [][]Point2D
}

// Area returns the enclosed area: the outer ring's area minus the holes'.
func (p Polygon2D) Area() float64 {
	a := math.Abs(ringArea(p.Outer))
	for _, h := range p.Holes {
		a -= math.Abs(ringArea(h))
	}
	return a
}

// Contains reports whether q lies inside the outer ring and outside
// every hole, using the even-odd rule.
func (p Polygon2D) Contains(q Point2D) bool {
	if !pointInRing(q, p.Outer) {
		return false
	}
	for _, h := range p.Holes {
		if pointInRing(q, h) {
			return false
		}
	}
	return true
}

// Bounds returns the bounding box of the outer ring.
func (p Polygon2D) Bounds() Bounds2 {
	b := EmptyBounds2()
	for _, pt := range p.Outer {
		b = b.ExtendPoint(pt)
	}
	return b
}

// DrawingPolygon is a Polygon2D with its source identity and role.
type DrawingPolygon struct {
	Polygon Polygon2D

	EntityID   uint32
	IfcType    string
	ModelIndex int

	// IsCut distinguishes true cross-section polygons from projection
	// polygons (reserved for future use).
	IsCut bool
}

// EdgeKind classifies a mesh edge by its face adjacency.
type EdgeKind int

const (
	// EdgeSmooth is an interior edge below the crease threshold.
	EdgeSmooth EdgeKind = iota

	// EdgeCrease is an interior edge whose faces meet at a sharp angle.
	EdgeCrease

	// EdgeBoundary is an open edge with exactly one adjacent face.
	EdgeBoundary
)

// EdgeData is a mesh edge with its adjacent face normals, the dihedral
// angle between them, and its classification. Boundary edges have exactly
// one adjacent face and an undefined second normal.
type EdgeData struct {
	A, B Vec3

	N0, N1    Vec3
	FaceCount int
	Dihedral  float64 // radians
	Kind      EdgeKind
}

// HatchLine is one stroke of a material fill pattern inside a cut polygon.
type HatchLine struct {
	Start, End Point2D

	EntityID   uint32
	IfcType    string
	ModelIndex int
}

// Bounds2 is a 2D axis-aligned bounding box.
type Bounds2 struct {
	Min, Max Point2D
}

// EmptyBounds2 returns an inverted box that extends to nothing.
func EmptyBounds2() Bounds2 {
	return Bounds2{
		Min: Point2D{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point2D{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// Valid reports whether the box contains at least one point.
func (b Bounds2) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

// ExtendPoint grows the box to include p. Non-finite points are ignored
// so one NaN coordinate cannot poison the whole drawing's bounds.
func (b Bounds2) ExtendPoint(p Point2D) Bounds2 {
	if !p.IsFinite() {
		return b
	}
	return Bounds2{
		Min: Point2D{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max: Point2D{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
	}
}

// Union returns the smallest box containing both boxes.
func (b Bounds2) Union(o Bounds2) Bounds2 {
	if !o.Valid() {
		return b
	}
	if !b.Valid() {
		return o
	}
	return b.ExtendPoint(o.Min).ExtendPoint(o.Max)
}

// Width returns the horizontal extent of the box.
func (b Bounds2) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the vertical extent of the box.
func (b Bounds2) Height() float64 { return b.Max.Y - b.Min.Y }

// Diagonal returns the length of the box diagonal, or zero for an
// empty box.
func (b Bounds2) Diagonal() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Max.Sub(b.Min).Length()
}

// Bounds3 is a 3D axis-aligned bounding box.
type Bounds3 struct {
	Min, Max Vec3
}

// Corners returns the eight corners of the box.
func (b Bounds3) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// Stats aggregates counts and timings for one generation run.
type Stats struct {
	MeshCount     int
	TriangleCount int
	Intersections int

	CutLines        int
	ProjectionLines int
	SilhouetteLines int
	CreaseLines     int
	BoundaryLines   int
	HiddenLines     int

	CutPolygons int
	OpenLoops   int
	HatchLines  int

	GPUUsed bool

	CutTime     time.Duration
	PolygonTime time.Duration
	EdgeTime    time.Duration
	HiddenTime  time.Duration
	MergeTime   time.Duration
	HatchTime   time.Duration
	TotalTime   time.Duration
}

// Drawing2D is the final artifact of one generation request. It is a
// plain value owned by the caller; the pipeline holds no state across
// calls except optionally-cached GPU buffers.
type Drawing2D struct {
	Config Config

	Lines              []DrawingLine
	CutPolygons        []DrawingPolygon
	ProjectionPolygons []DrawingPolygon // reserved
	Hatches            []HatchLine

	// OpenLoops holds cut chains that never closed into a polygon.
	// They are kept for diagnostics; export layers render them unfilled.
	OpenLoops [][]Point2D

	Bounds Bounds2
	Stats  Stats
}

// CountByCategory returns the number of lines in the given category.
func (d *Drawing2D) CountByCategory(c LineCategory) int {
	n := 0
	for _, l := range d.Lines {
		if l.Category == c {
			n++
		}
	}
	return n
}
