package drafter

import (
	"math"
	"testing"
)

func seg(ax, ay, bx, by float64) CutSegment {
	return CutSegment{A: P2(ax, ay), B: P2(bx, by)}
}

func TestBuildPolygons_SquareClosure(t *testing.T) {
	// Segments of a unit square, shuffled and with flipped endpoint
	// order; the walk must still close one loop.
	segs := []CutSegment{
		seg(1, 1, 0, 1),
		seg(0, 0, 1, 0),
		seg(1, 0, 1, 1),
		seg(0, 1, 0, 0),
	}
	res := BuildPolygons(segs, DefaultPolygonConfig())
	if len(res.Polygons) != 1 {
		t.Fatalf("polygons = %d, want 1", len(res.Polygons))
	}
	if len(res.OpenLoops) != 0 {
		t.Fatalf("open loops = %d, want 0", len(res.OpenLoops))
	}
	p := res.Polygons[0]
	if len(p.Outer) != 4 {
		t.Fatalf("outer ring has %d points, want 4", len(p.Outer))
	}
	if got := p.Area(); math.Abs(got-1) > 1e-9 {
		t.Errorf("Area = %v, want 1", got)
	}
	// Outer rings wind counterclockwise.
	if ringArea(p.Outer) <= 0 {
		t.Error("outer ring not counterclockwise")
	}
}

func TestBuildPolygons_JoinTolerance(t *testing.T) {
	// Endpoints off by less than the join tolerance still connect.
	segs := []CutSegment{
		seg(0, 0, 1, 0),
		seg(1, 1e-5, 1, 1),
		seg(1, 1, 0, 1),
		seg(0, 1, 0, 1e-5),
	}
	res := BuildPolygons(segs, DefaultPolygonConfig())
	if len(res.Polygons) != 1 {
		t.Fatalf("polygons = %d, want 1", len(res.Polygons))
	}
}

func TestBuildPolygons_HoleAssignment(t *testing.T) {
	// Outer 4x4 square with an inner unit square hole.
	segs := []CutSegment{
		seg(0, 0, 4, 0), seg(4, 0, 4, 4), seg(4, 4, 0, 4), seg(0, 4, 0, 0),
		seg(1, 1, 2, 1), seg(2, 1, 2, 2), seg(2, 2, 1, 2), seg(1, 2, 1, 1),
	}
	res := BuildPolygons(segs, DefaultPolygonConfig())
	if len(res.Polygons) != 1 {
		t.Fatalf("polygons = %d, want 1", len(res.Polygons))
	}
	p := res.Polygons[0]
	if len(p.Holes) != 1 {
		t.Fatalf("holes = %d, want 1", len(p.Holes))
	}
	// Net area excludes the hole.
	if got := p.Area(); math.Abs(got-15) > 1e-9 {
		t.Errorf("Area = %v, want 15", got)
	}
	// Holes wind clockwise.
	if ringArea(p.Holes[0]) >= 0 {
		t.Error("hole ring not clockwise")
	}
}

func TestBuildPolygons_TwoSeparate(t *testing.T) {
	segs := []CutSegment{
		seg(0, 0, 1, 0), seg(1, 0, 1, 1), seg(1, 1, 0, 1), seg(0, 1, 0, 0),
		seg(5, 5, 6, 5), seg(6, 5, 6, 6), seg(6, 6, 5, 6), seg(5, 6, 5, 5),
	}
	res := BuildPolygons(segs, DefaultPolygonConfig())
	if len(res.Polygons) != 2 {
		t.Fatalf("polygons = %d, want 2", len(res.Polygons))
	}
	for i, p := range res.Polygons {
		if len(p.Holes) != 0 {
			t.Errorf("polygon %d has %d holes, want 0", i, len(p.Holes))
		}
	}
}

func TestBuildPolygons_OpenChain(t *testing.T) {
	// Three sides of a square never close.
	segs := []CutSegment{
		seg(0, 0, 1, 0),
		seg(1, 0, 1, 1),
		seg(1, 1, 0, 1),
	}
	res := BuildPolygons(segs, DefaultPolygonConfig())
	if len(res.Polygons) != 0 {
		t.Fatalf("polygons = %d, want 0", len(res.Polygons))
	}
	if len(res.OpenLoops) != 1 {
		t.Fatalf("open loops = %d, want 1", len(res.OpenLoops))
	}
	if got := len(res.OpenLoops[0]); got != 4 {
		t.Errorf("open chain has %d points, want 4", got)
	}
}

func TestBuildPolygons_Empty(t *testing.T) {
	res := BuildPolygons(nil, DefaultPolygonConfig())
	if len(res.Polygons) != 0 || len(res.OpenLoops) != 0 {
		t.Errorf("unexpected output for empty input: %+v", res)
	}
}

func TestPolygon2D_Contains(t *testing.T) {
	p := Polygon2D{
		Outer: []Point2D{P2(0, 0), P2(4, 0), P2(4, 4), P2(0, 4)},
		Holes: [][]Point2D{{P2(1, 1), P2(1, 2), P2(2, 2), P2(2, 1)}},
	}
	tests := []struct {
		name string
		pt   Point2D
		want bool
	}{
		{"inside", P2(3, 3), true},
		{"outside", P2(5, 5), false},
		{"in hole", P2(1.5, 1.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Contains(tt.pt); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.pt, got, tt.want)
			}
		})
	}
}
