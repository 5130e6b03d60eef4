package drafter

import (
	"math"
	"sort"
	"strings"
)

// HatchKind is the closed set of fill pattern families. Dispatch is by
// switch, not string lookup; the string-keyed IFC-type table in
// HatchConfig is plain configuration data mapping onto these variants.
type HatchKind int

const (
	// HatchNone produces no fill.
	HatchNone HatchKind = iota

	// HatchSolid fills the polygon solidly; it produces no hatch lines,
	// the rendering layer fills the polygon itself.
	HatchSolid

	// HatchDiagonal is a single family of parallel lines.
	HatchDiagonal

	// HatchCross repeats the diagonal family at a secondary angle.
	HatchCross

	// HatchConcrete adds a second, offset diagonal family as a
	// simplified dot-pattern approximation.
	HatchConcrete

	// HatchGlass is a sparse steep family used for glazing.
	HatchGlass

	// HatchSteel is a tight crosshatch used for structural steel.
	HatchSteel

	// HatchInsulation is rendered as a sparse diagonal family; a true
	// batt-insulation loop pattern is not generated yet.
	HatchInsulation
)

// String returns the pattern kind name.
func (k HatchKind) String() string {
	switch k {
	case HatchNone:
		return "none"
	case HatchSolid:
		return "solid"
	case HatchDiagonal:
		return "diagonal"
	case HatchCross:
		return "cross"
	case HatchConcrete:
		return "concrete"
	case HatchGlass:
		return "glass"
	case HatchSteel:
		return "steel"
	case HatchInsulation:
		return "insulation"
	default:
		return "unknown"
	}
}

// HatchPattern parameterizes one material fill: line spacing, primary
// angle, and for cross patterns, the secondary angle.
type HatchPattern struct {
	Kind       HatchKind
	Spacing    float64
	Angle      float64 // radians
	CrossAngle float64 // radians, cross patterns only
}

// DefaultHatchTable returns the IFC-type-to-pattern configuration used
// when the caller supplies none.
func DefaultHatchTable() map[string]HatchPattern {
	diag45 := HatchPattern{Kind: HatchDiagonal, Spacing: 0.08, Angle: math.Pi / 4}
	concrete := HatchPattern{Kind: HatchConcrete, Spacing: 0.12, Angle: math.Pi / 4}
	return map[string]HatchPattern{
		"IFCWALL":                 diag45,
		"IFCWALLSTANDARDCASE":     diag45,
		"IFCSLAB":                 concrete,
		"IFCROOF":                 concrete,
		"IFCCOLUMN":               concrete,
		"IFCBEAM":                 concrete,
		"IFCFOOTING":              concrete,
		"IFCSTAIR":                concrete,
		"IFCSTAIRFLIGHT":          concrete,
		"IFCMEMBER":               {Kind: HatchSteel, Spacing: 0.05, Angle: math.Pi / 4, CrossAngle: 3 * math.Pi / 4},
		"IFCPLATE":                {Kind: HatchSolid},
		"IFCWINDOW":               {Kind: HatchGlass, Spacing: 0.15, Angle: math.Pi / 3},
		"IFCCURTAINWALL":          {Kind: HatchGlass, Spacing: 0.15, Angle: math.Pi / 3},
		"IFCDOOR":                 {Kind: HatchNone},
		"IFCDOORSTANDARDCASE":     {Kind: HatchNone},
		"IFCOPENINGELEMENT":       {Kind: HatchNone},
		"IFCSPACE":                {Kind: HatchNone},
		"IFCCOVERING":             diag45,
		"IFCBUILDINGELEMENTPROXY": diag45,
	}
}

// PatternFor looks up the hatch pattern for an IFC type tag.
func (c HatchConfig) PatternFor(ifcType string) HatchPattern {
	if p, ok := c.Patterns[strings.ToUpper(ifcType)]; ok {
		return p
	}
	return HatchPattern{Kind: HatchNone}
}

// GenerateHatch fills one cut polygon with its pattern, clipping every
// candidate line against the outer ring and subtracting the holes.
func GenerateHatch(poly DrawingPolygon, pattern HatchPattern, cfg HatchConfig) []HatchLine {
	if len(poly.Polygon.Outer) < 3 {
		return nil
	}
	spacing := pattern.Spacing * cfg.Scale
	if spacing <= 0 {
		spacing = 0.1
	}

	var segs []hatchSeg
	switch pattern.Kind {
	case HatchNone, HatchSolid:
		return nil
	case HatchDiagonal, HatchGlass, HatchInsulation:
		segs = hatchFamily(poly.Polygon, pattern.Angle, spacing, 0)
	case HatchCross, HatchSteel:
		segs = hatchFamily(poly.Polygon, pattern.Angle, spacing, 0)
		segs = append(segs, hatchFamily(poly.Polygon, pattern.CrossAngle, spacing, 0)...)
	case HatchConcrete:
		segs = hatchFamily(poly.Polygon, pattern.Angle, spacing, 0)
		segs = append(segs, hatchFamily(poly.Polygon, pattern.Angle, spacing, spacing*0.35)...)
	default:
		return nil
	}

	out := make([]HatchLine, 0, len(segs))
	for _, s := range segs {
		out = append(out, HatchLine{
			Start:      s.a,
			End:        s.b,
			EntityID:   poly.EntityID,
			IfcType:    poly.IfcType,
			ModelIndex: poly.ModelIndex,
		})
	}
	return out
}

type hatchSeg struct {
	a, b Point2D
}

// hatchFamily generates one family of parallel lines spaced along the
// pattern's perpendicular direction, long enough to span the polygon's
// bounding-box diagonal, each clipped to the polygon.
func hatchFamily(poly Polygon2D, angle, spacing, phase float64) []hatchSeg {
	bounds := poly.Bounds()
	if !bounds.Valid() {
		return nil
	}
	diag := bounds.Diagonal()
	if diag == 0 {
		return nil
	}
	center := Point2D{
		X: (bounds.Min.X + bounds.Max.X) / 2,
		Y: (bounds.Min.Y + bounds.Max.Y) / 2,
	}
	dir := Point2D{X: math.Cos(angle), Y: math.Sin(angle)}
	perp := Point2D{X: -dir.Y, Y: dir.X}

	half := diag/2 + spacing
	count := int(math.Ceil(half / spacing))

	var out []hatchSeg
	for k := -count; k <= count; k++ {
		offset := float64(k)*spacing + phase
		mid := center.Add(perp.Mul(offset))
		a := mid.Sub(dir.Mul(half))
		b := mid.Add(dir.Mul(half))

		pieces := clipToRing(a, b, poly.Outer, true)
		for _, h := range poly.Holes {
			var next []hatchSeg
			for _, p := range pieces {
				next = append(next, clipToRing(p.a, p.b, h, false)...)
			}
			pieces = next
			if len(pieces) == 0 {
				break
			}
		}
		out = append(out, pieces...)
	}
	return out
}

// clipToRing clips the candidate segment against one ring, keeping the
// pieces inside it (keepInside) or outside it (for hole subtraction).
// The segment's intersection parameters with every ring edge are sorted
// and insideness alternates between consecutive crossings; with zero
// crossings the whole candidate survives only if its midpoint passes the
// containment test.
func clipToRing(a, b Point2D, ring []Point2D, keepInside bool) []hatchSeg {
	d := b.Sub(a)
	n := len(ring)

	var params []float64
	for i := 0; i < n; i++ {
		p := ring[i]
		q := ring[(i+1)%n]
		if t, ok := segmentParam(a, d, p, q); ok {
			params = append(params, t)
		}
	}

	if len(params) == 0 {
		mid := a.Lerp(b, 0.5)
		if pointInRing(mid, ring) == keepInside {
			return []hatchSeg{{a: a, b: b}}
		}
		return nil
	}

	params = append(params, 0, 1)
	sort.Float64s(params)
	params = uniqueParams(params, 1e-12)

	var out []hatchSeg
	for i := 0; i+1 < len(params); i++ {
		t0, t1 := params[i], params[i+1]
		if t1-t0 < 1e-12 {
			continue
		}
		mid := a.Lerp(b, (t0+t1)/2)
		if pointInRing(mid, ring) == keepInside {
			out = append(out, hatchSeg{a: a.Lerp(b, t0), b: a.Lerp(b, t1)})
		}
	}
	return out
}

// segmentParam returns the parameter t on segment a+t*d where it crosses
// edge p-q, when the crossing lies strictly within both segments.
func segmentParam(a, d, p, q Point2D) (float64, bool) {
	e := q.Sub(p)
	denom := d.Cross(e)
	if denom == 0 {
		return 0, false
	}
	ap := p.Sub(a)
	t := ap.Cross(e) / denom
	u := ap.Cross(d) / denom
	if t <= 0 || t >= 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
