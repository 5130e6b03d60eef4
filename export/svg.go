package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	svg "github.com/ajstarks/svgo/float"

	"github.com/gobim/drafter"
)

// Line weights in millimeters, following common architectural pen
// conventions: cuts heavy, projections light, hidden dashed.
const (
	cutWeight        = 0.5
	projectionWeight = 0.18
	featureWeight    = 0.25
	hiddenWeight     = 0.13
	hatchWeight      = 0.1
)

// WriteSVG renders the drawing as layered SVG. Each line category gets
// its own <g> layer so viewers can toggle them; cut polygons carry
// data-entity and data-ifc attributes for pick support.
func WriteSVG(w io.Writer, d *drafter.Drawing2D, opt SheetOptions) error {
	if d == nil {
		return fmt.Errorf("write svg: nil drawing")
	}
	t := newTransform(d.Bounds, opt)

	canvas := svg.New(w)
	canvas.Startunit(opt.Size.Width, opt.Size.Height, "mm",
		fmt.Sprintf(`viewBox="0 0 %g %g"`, opt.Size.Width, opt.Size.Height))

	writeHatchLayer(canvas, d, t)
	writePolygonLayer(canvas, d, t)

	byCategory := map[drafter.LineCategory][]drafter.DrawingLine{}
	for _, l := range d.Lines {
		cat := l.Category
		if l.Visibility == drafter.VisibilityHidden {
			cat = drafter.CategoryHidden
		}
		byCategory[cat] = append(byCategory[cat], l)
	}
	cats := make([]drafter.LineCategory, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	// Hidden lines first so visible work sits on top.
	sort.SliceStable(cats, func(i, j int) bool {
		return layerRank(cats[i]) < layerRank(cats[j])
	})
	for _, cat := range cats {
		writeLineLayer(canvas, cat, byCategory[cat], t)
	}

	canvas.End()
	return nil
}

func layerRank(c drafter.LineCategory) int {
	switch c {
	case drafter.CategoryHidden:
		return 0
	case drafter.CategoryCut:
		return 2
	default:
		return 1
	}
}

func writeHatchLayer(canvas *svg.SVG, d *drafter.Drawing2D, t transform) {
	if len(d.Hatches) == 0 {
		return
	}
	canvas.Gid("hatching")
	canvas.Gstyle(fmt.Sprintf("stroke:#555555;stroke-width:%g;fill:none", hatchWeight))
	for _, h := range d.Hatches {
		x1, y1 := t.apply(h.Start)
		x2, y2 := t.apply(h.End)
		canvas.Line(x1, y1, x2, y2)
	}
	canvas.Gend()
	canvas.Gend()
}

func writePolygonLayer(canvas *svg.SVG, d *drafter.Drawing2D, t transform) {
	if len(d.CutPolygons) == 0 {
		return
	}
	canvas.Gid("cut-fills")
	canvas.Gstyle("fill:#f2f2f2;fill-rule:evenodd;stroke:none")
	for _, p := range d.CutPolygons {
		canvas.Path(polygonPath(p.Polygon, t),
			fmt.Sprintf(`data-entity="%d" data-ifc=%q data-model="%d"`,
				p.EntityID, p.IfcType, p.ModelIndex))
	}
	canvas.Gend()
	canvas.Gend()
}

func writeLineLayer(canvas *svg.SVG, cat drafter.LineCategory, lines []drafter.DrawingLine, t transform) {
	canvas.Gid(layerName(cat))
	canvas.Gstyle(lineStyle(cat))
	for _, l := range lines {
		x1, y1 := t.apply(l.Start)
		x2, y2 := t.apply(l.End)
		canvas.Line(x1, y1, x2, y2,
			fmt.Sprintf(`data-entity="%d"`, l.EntityID))
	}
	canvas.Gend()
	canvas.Gend()
}

func layerName(c drafter.LineCategory) string {
	return strings.ReplaceAll(strings.ToLower(c.String()), " ", "-")
}

func lineStyle(c drafter.LineCategory) string {
	switch c {
	case drafter.CategoryCut:
		return fmt.Sprintf("stroke:#000000;stroke-width:%g;fill:none", cutWeight)
	case drafter.CategoryHidden:
		return fmt.Sprintf("stroke:#888888;stroke-width:%g;stroke-dasharray:1.5,1;fill:none", hiddenWeight)
	case drafter.CategorySilhouette, drafter.CategoryBoundary, drafter.CategoryCrease:
		return fmt.Sprintf("stroke:#333333;stroke-width:%g;fill:none", featureWeight)
	default:
		return fmt.Sprintf("stroke:#666666;stroke-width:%g;fill:none", projectionWeight)
	}
}

// polygonPath builds one path with outer ring and holes; the even-odd
// fill rule carves the holes out.
func polygonPath(p drafter.Polygon2D, t transform) string {
	var b strings.Builder
	writeRing(&b, p.Outer, t)
	for _, h := range p.Holes {
		writeRing(&b, h, t)
	}
	return b.String()
}

func writeRing(b *strings.Builder, ring []drafter.Point2D, t transform) {
	for i, pt := range ring {
		x, y := t.apply(pt)
		if i == 0 {
			fmt.Fprintf(b, "M%g %g", x, y)
		} else {
			fmt.Fprintf(b, "L%g %g", x, y)
		}
	}
	b.WriteString("Z")
}
