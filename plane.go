package drafter

// Axis identifies one of the three world axes.
type Axis int

const (
	// AxisX cuts perpendicular to the world X axis (a vertical section).
	AxisX Axis = iota

	// AxisY cuts perpendicular to the world Y axis (a vertical section).
	AxisY

	// AxisZ cuts perpendicular to the world Z axis (a floor plan).
	AxisZ
)

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "invalid"
	}
}

// SectionPlane defines the cutting plane used to generate a 2D drawing
// from 3D geometry: an axis-aligned normal (optionally negated), a signed
// offset along that axis, and a Flipped flag controlling the handedness of
// the 2D projection.
//
// The half-space test for a point p is SignedDistance(p) = dot(p, normal) - Offset.
type SectionPlane struct {
	Axis    Axis
	Offset  float64
	Negated bool // normal points toward the negative axis direction
	Flipped bool // mirror the horizontal projection axis
}

// Normal returns the plane normal as a unit vector.
func (s SectionPlane) Normal() Vec3 {
	var n Vec3
	switch s.Axis {
	case AxisX:
		n = Vec3{X: 1}
	case AxisY:
		n = Vec3{Y: 1}
	default:
		n = Vec3{Z: 1}
	}
	if s.Negated {
		n = n.Neg()
	}
	return n
}

// SignedDistance returns the signed distance from the plane to p.
// Positive values lie on the normal side of the plane.
func (s SectionPlane) SignedDistance(p Vec3) float64 {
	d := p.Component(s.Axis) - s.Offset
	if s.Negated {
		return -d
	}
	return d
}

// Project maps a 3D point into drawing-plane coordinates by dropping the
// plane's axis. The Flipped flag negates the horizontal projection axis so
// that sections viewed from either side read correctly.
func (s SectionPlane) Project(p Vec3) Point2D {
	var q Point2D
	switch s.Axis {
	case AxisX:
		q = Point2D{X: p.Y, Y: p.Z}
	case AxisY:
		q = Point2D{X: p.X, Y: p.Z}
	default:
		q = Point2D{X: p.X, Y: p.Y}
	}
	if s.Flipped {
		q.X = -q.X
	}
	return q
}

// Depth returns the on-axis offset of p from the plane, without the
// normal negation applied by SignedDistance. The edge depth band and
// the depth buffer both measure in this raw axis space.
func (s SectionPlane) Depth(p Vec3) float64 {
	return p.Component(s.Axis) - s.Offset
}

// ViewDirection returns the direction the section is viewed along: into
// the projection depth band beyond the plane.
func (s SectionPlane) ViewDirection() Vec3 {
	var n Vec3
	switch s.Axis {
	case AxisX:
		n = Vec3{X: 1}
	case AxisY:
		n = Vec3{Y: 1}
	default:
		n = Vec3{Z: 1}
	}
	if s.Flipped {
		n = n.Neg()
	}
	return n
}

// ViewDepth returns the distance of p beyond the plane measured along the
// view direction. Geometry at positive view depth lies inside the drawing's
// projection band; smaller values are nearer the viewer.
func (s SectionPlane) ViewDepth(p Vec3) float64 {
	d := s.Depth(p)
	if s.Flipped {
		return -d
	}
	return d
}
