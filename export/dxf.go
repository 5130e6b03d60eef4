package export

import (
	"fmt"
	"sort"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/entity"

	"github.com/gobim/drafter"
)

// dxfLayer pairs a layer name with its ACI color.
type dxfLayer struct {
	name  string
	color color.ColorNumber
}

func layerFor(l drafter.DrawingLine) dxfLayer {
	if l.Visibility == drafter.VisibilityHidden {
		return dxfLayer{"HIDDEN", color.Cyan}
	}
	switch l.Category {
	case drafter.CategoryCut:
		return dxfLayer{"CUT", color.White}
	case drafter.CategorySilhouette, drafter.CategoryBoundary, drafter.CategoryCrease:
		return dxfLayer{"FEATURE", color.Green}
	case drafter.CategoryAnnotation:
		return dxfLayer{"ANNOTATION", color.Magenta}
	default:
		return dxfLayer{"PROJECTION", color.Yellow}
	}
}

// SaveDXF writes the drawing to a DXF file. Cut polygons become closed
// lightweight polylines on CUT-FILL, lines go to a layer per category,
// hatch strokes land on HATCH. Coordinates stay in model space so the
// file measures true; the Y flip is left to the CAD viewport.
func SaveDXF(filename string, d *drafter.Drawing2D) error {
	if d == nil {
		return fmt.Errorf("save dxf: nil drawing")
	}
	dw := dxf.NewDrawing()
	dw.Header().LtScale = 1.0

	ensureLayer(dw, dxfLayer{"CUT-FILL", color.ColorNumber(8)})
	dw.ChangeLayer("CUT-FILL")
	for _, p := range d.CutPolygons {
		addRing(dw, p.Polygon.Outer)
		for _, h := range p.Polygon.Holes {
			addRing(dw, h)
		}
	}

	byLayer := map[string][]drafter.DrawingLine{}
	layers := map[string]dxfLayer{}
	for _, l := range d.Lines {
		lay := layerFor(l)
		byLayer[lay.name] = append(byLayer[lay.name], l)
		layers[lay.name] = lay
	}
	names := make([]string, 0, len(byLayer))
	for n := range byLayer {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		ensureLayer(dw, layers[n])
		dw.ChangeLayer(n)
		for _, l := range byLayer[n] {
			dw.Line(l.Start.X, l.Start.Y, 0, l.End.X, l.End.Y, 0)
		}
	}

	if len(d.Hatches) > 0 {
		ensureLayer(dw, dxfLayer{"HATCH", color.Red})
		dw.ChangeLayer("HATCH")
		for _, h := range d.Hatches {
			dw.Line(h.Start.X, h.Start.Y, 0, h.End.X, h.End.Y, 0)
		}
	}

	return dw.SaveAs(filename)
}

func ensureLayer(dw *drawing.Drawing, lay dxfLayer) {
	if _, err := dw.Layer(lay.name, false); err == nil {
		return
	}
	dw.AddLayer(lay.name, lay.color, dxf.DefaultLineType, true)
}

func addRing(dw *drawing.Drawing, ring []drafter.Point2D) {
	if len(ring) < 2 {
		return
	}
	lwp := entity.NewLwPolyline(len(ring))
	for j, pt := range ring {
		lwp.Vertices[j] = []float64{pt.X, pt.Y}
	}
	lwp.Close()
	dw.AddEntity(lwp)
}
