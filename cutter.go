package drafter

import (
	"math"
	"time"
)

// CutResult reports the output of cutting a batch of meshes.
type CutResult struct {
	Segments []CutSegment

	Triangles     int
	Intersections int
	Elapsed       time.Duration
}

// CutMeshes intersects every triangle of every mesh against the plane and
// returns the resulting segments with per-batch counts and wall-clock
// timing. Malformed meshes never fail the batch: NaN coordinates produce
// degenerate segments that the 2D length filter discards.
func CutMeshes(plane SectionPlane, meshes []*Mesh, cfg CutterConfig) CutResult {
	start := time.Now()
	var res CutResult
	for _, m := range meshes {
		segs, tris := CutMesh(plane, m, cfg)
		res.Segments = append(res.Segments, segs...)
		res.Triangles += tris
		res.Intersections += len(segs)
	}
	res.Elapsed = time.Since(start)
	return res
}

// CutMesh cuts a single mesh, returning its segments and triangle count.
func CutMesh(plane SectionPlane, m *Mesh, cfg CutterConfig) ([]CutSegment, int) {
	tris := m.TriangleCount()
	var segs []CutSegment
	for t := 0; t < tris; t++ {
		v0, v1, v2 := m.Triangle(t)
		a, b, ok := CutTriangle(plane, v0, v1, v2, cfg)
		if !ok {
			continue
		}
		qa := plane.Project(a)
		qb := plane.Project(b)
		l := qa.Distance(qb)
		// The comparison is written so NaN lengths also fail it.
		if !(l >= cfg.MinLength2D) {
			continue
		}
		segs = append(segs, CutSegment{
			A3: a, B3: b, A: qa, B: qb,
			EntityID:   m.EntityID,
			IfcType:    m.IfcType,
			ModelIndex: m.ModelIndex,
		})
	}
	return segs, tris
}

// CutTriangle intersects one triangle with the plane. A triangle crosses
// a plane in at most one segment; triangles with no sign change among
// their vertex distances (all positive, all negative, or all exactly on
// the plane) are skipped.
func CutTriangle(plane SectionPlane, v0, v1, v2 Vec3, cfg CutterConfig) (Vec3, Vec3, bool) {
	d0 := plane.SignedDistance(v0)
	d1 := plane.SignedDistance(v1)
	d2 := plane.SignedDistance(v2)

	if (d0 > 0 && d1 > 0 && d2 > 0) || (d0 < 0 && d1 < 0 && d2 < 0) {
		return Vec3{}, Vec3{}, false
	}
	if d0 == 0 && d1 == 0 && d2 == 0 {
		// Degenerate on-plane triangle, intentionally not handled.
		return Vec3{}, Vec3{}, false
	}

	var pts [2]Vec3
	n := 0
	// Edges are tested in a fixed order so CPU and GPU paths agree.
	type edge struct {
		pa, pb Vec3
		da, db float64
	}
	for _, e := range [3]edge{
		{v0, v1, d0, d1},
		{v1, v2, d1, d2},
		{v2, v0, d2, d0},
	} {
		p, ok := edgeIntersection(e.pa, e.pb, e.da, e.db, cfg.PlaneEpsilon)
		if !ok {
			continue
		}
		pts[n] = p
		n++
		if n == 2 {
			break
		}
	}
	if n < 2 {
		return Vec3{}, Vec3{}, false
	}
	return pts[0], pts[1], true
}

// edgeIntersection returns the point where an edge crosses the plane: the
// exact endpoint when its distance is within epsilon of zero, otherwise
// the interpolated crossing when the endpoint distances have opposite
// signs.
func edgeIntersection(pa, pb Vec3, da, db, eps float64) (Vec3, bool) {
	if math.Abs(da) < eps {
		return pa, true
	}
	if math.Abs(db) < eps {
		return pb, true
	}
	if (da > 0) != (db > 0) {
		t := da / (da - db)
		return pa.Lerp(pb, t), true
	}
	return Vec3{}, false
}
