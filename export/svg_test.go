package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gobim/drafter"
)

func sampleDrawing() *drafter.Drawing2D {
	b := drafter.EmptyBounds2()
	b = b.ExtendPoint(drafter.P2(0, 0))
	b = b.ExtendPoint(drafter.P2(4, 3))

	return &drafter.Drawing2D{
		Lines: []drafter.DrawingLine{
			{Start: drafter.P2(0, 0), End: drafter.P2(4, 0),
				Category: drafter.CategoryCut, Visibility: drafter.VisibilityVisible, EntityID: 1},
			{Start: drafter.P2(0, 1), End: drafter.P2(4, 1),
				Category: drafter.CategoryProjection, Visibility: drafter.VisibilityHidden, EntityID: 2},
			{Start: drafter.P2(0, 2), End: drafter.P2(4, 2),
				Category: drafter.CategorySilhouette, Visibility: drafter.VisibilityVisible, EntityID: 3},
		},
		CutPolygons: []drafter.DrawingPolygon{
			{
				Polygon: drafter.Polygon2D{
					Outer: []drafter.Point2D{drafter.P2(0, 0), drafter.P2(4, 0), drafter.P2(4, 3), drafter.P2(0, 3)},
					Holes: [][]drafter.Point2D{{drafter.P2(1, 1), drafter.P2(1, 2), drafter.P2(2, 2), drafter.P2(2, 1)}},
				},
				EntityID: 1, IfcType: "IFCWALL", IsCut: true,
			},
		},
		Hatches: []drafter.HatchLine{
			{Start: drafter.P2(0.5, 0.5), End: drafter.P2(1, 1), EntityID: 1, IfcType: "IFCWALL"},
		},
		Bounds: b,
	}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, sampleDrawing(), DefaultSheetOptions()); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<svg", "</svg>",
		`id="cut"`, `id="hidden"`, `id="silhouette"`,
		`id="cut-fills"`, `id="hatching"`,
		`data-entity="1"`, `data-ifc="IFCWALL"`,
		"stroke-dasharray",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	// Hole rings ride in the same path via the even-odd rule.
	if !strings.Contains(out, "evenodd") && !strings.Contains(out, "even-odd") {
		t.Error("SVG missing even-odd fill rule")
	}
}

func TestWriteSVG_NilDrawing(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, nil, DefaultSheetOptions()); err == nil {
		t.Fatal("expected error for nil drawing")
	}
}

func TestWriteSVG_EmptyDrawing(t *testing.T) {
	var buf bytes.Buffer
	d := &drafter.Drawing2D{Bounds: drafter.EmptyBounds2()}
	if err := WriteSVG(&buf, d, DefaultSheetOptions()); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("empty drawing still produces a valid document")
	}
}

func TestTransform_FitAndFlip(t *testing.T) {
	b := drafter.EmptyBounds2()
	b = b.ExtendPoint(drafter.P2(0, 0))
	b = b.ExtendPoint(drafter.P2(10, 10))

	opt := DefaultSheetOptions()
	tr := newTransform(b, opt)

	x0, y0 := tr.apply(drafter.P2(0, 0))
	x1, y1 := tr.apply(drafter.P2(10, 10))

	// Y flips: larger drawing Y maps to smaller sheet Y.
	if y1 >= y0 {
		t.Errorf("Y not flipped: %v -> %v", y0, y1)
	}
	if x1 <= x0 {
		t.Errorf("X direction wrong: %v -> %v", x0, x1)
	}
	// Everything lands on the sheet.
	for _, v := range [][2]float64{{x0, y0}, {x1, y1}} {
		if v[0] < 0 || v[0] > opt.Size.Width || v[1] < 0 || v[1] > opt.Size.Height {
			t.Errorf("point %v off sheet", v)
		}
	}
}

func TestTransform_ExplicitScale(t *testing.T) {
	b := drafter.EmptyBounds2()
	b = b.ExtendPoint(drafter.P2(0, 0))
	b = b.ExtendPoint(drafter.P2(1, 1))

	opt := DefaultSheetOptions()
	opt.Scale = 50 // 1:50 with meter geometry: 1 m = 20 mm
	tr := newTransform(b, opt)

	x0, _ := tr.apply(drafter.P2(0, 0))
	x1, _ := tr.apply(drafter.P2(1, 0))
	if got := x1 - x0; got < 19.99 || got > 20.01 {
		t.Errorf("1 m at 1:50 spans %v mm, want 20", got)
	}
}
