package drafter

import (
	"math"
	"sort"
)

// PolygonResult is the output of reconstructing one entity's cut segments.
type PolygonResult struct {
	// Polygons holds the closed loops, holes assigned to their outer
	// boundary and windings normalized (outer CCW, holes CW).
	Polygons []Polygon2D

	// OpenLoops holds chains that never closed. Section geometry from
	// adjacent, slightly misaligned triangles commonly produces these,
	// so they are emitted rather than dropped.
	OpenLoops [][]Point2D
}

// loop is an intermediate walked chain.
type loop struct {
	pts    []Point2D
	closed bool
	area   float64 // signed, zero for open chains
}

// BuildPolygons reconstructs closed 2D polygon loops from all cut
// segments of one entity. Segments are walked endpoint-to-endpoint
// within the join tolerance; every chain with at least three points is
// kept, closed or not.
func BuildPolygons(segments []CutSegment, cfg PolygonConfig) PolygonResult {
	tol := cfg.JoinTolerance
	used := make([]bool, len(segments))
	var loops []loop

	for i := range segments {
		if used[i] {
			continue
		}
		used[i] = true
		pts := []Point2D{segments[i].A, segments[i].B}
		closed := false

		for {
			end := pts[len(pts)-1]
			j, next, ok := nearestConnection(segments, used, end, tol)
			if !ok {
				break
			}
			used[j] = true
			pts = append(pts, next)
			if next.Distance(pts[0]) <= tol {
				// Drop the duplicated closing point.
				pts = pts[:len(pts)-1]
				closed = true
				break
			}
		}

		if len(pts) < 3 {
			continue
		}
		l := loop{pts: pts, closed: closed}
		if closed {
			l.area = ringArea(pts)
		}
		loops = append(loops, l)
	}

	return classifyLoops(loops)
}

// nearestConnection finds the unused segment whose endpoint lies nearest
// to end within tol, returning its index and far endpoint.
func nearestConnection(segments []CutSegment, used []bool, end Point2D, tol float64) (int, Point2D, bool) {
	best := -1
	bestDist := tol
	var far Point2D
	for j := range segments {
		if used[j] {
			continue
		}
		if d := segments[j].A.Distance(end); d <= bestDist {
			best, bestDist, far = j, d, segments[j].B
		}
		if d := segments[j].B.Distance(end); d <= bestDist {
			best, bestDist, far = j, d, segments[j].A
		}
	}
	if best < 0 {
		return 0, Point2D{}, false
	}
	return best, far, true
}

// classifyLoops assigns holes to outer boundaries. Loops are processed by
// descending absolute area; each unassigned loop becomes a candidate
// outer ring and swallows every later unassigned loop whose first point
// it contains.
func classifyLoops(loops []loop) PolygonResult {
	var res PolygonResult

	closed := loops[:0:0]
	for _, l := range loops {
		if l.closed {
			closed = append(closed, l)
		} else {
			res.OpenLoops = append(res.OpenLoops, l.pts)
		}
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return math.Abs(closed[i].area) > math.Abs(closed[j].area)
	})

	assigned := make([]bool, len(closed))
	for i := range closed {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		poly := Polygon2D{Outer: forceWinding(closed[i].pts, true)}
		for j := i + 1; j < len(closed); j++ {
			if assigned[j] {
				continue
			}
			if pointInRing(closed[j].pts[0], closed[i].pts) {
				assigned[j] = true
				poly.Holes = append(poly.Holes, forceWinding(closed[j].pts, false))
			}
		}
		res.Polygons = append(res.Polygons, poly)
	}
	return res
}

// ringArea returns the signed shoelace area of a ring closed by implicit
// wrap-around. Counter-clockwise rings have positive area.
func ringArea(ring []Point2D) float64 {
	if len(ring) < 3 {
		return 0
	}
	a := 0.0
	for i := range ring {
		j := (i + 1) % len(ring)
		a += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return a / 2
}

// pointInRing tests containment with the even-odd ray casting rule.
func pointInRing(p Point2D, ring []Point2D) bool {
	inside := false
	n := len(ring)
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// forceWinding returns the ring with the requested orientation, reversing
// it when necessary. Downstream fill-rule rendering relies on outer rings
// being CCW and holes CW.
func forceWinding(ring []Point2D, ccw bool) []Point2D {
	if (ringArea(ring) > 0) == ccw {
		return ring
	}
	out := make([]Point2D, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
