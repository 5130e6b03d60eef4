package drafter

import "math"

// DepthBuffer records the nearest view depth per pixel over a drawing
// region. It is built once per generation by rasterizing every mesh from
// the section's view direction and then queried along candidate lines.
type DepthBuffer struct {
	res    int
	min    Point2D
	scale  float64 // drawing units -> pixels, uniform
	depth  []float32
	farVal float32
}

// NewDepthBuffer allocates a res x res buffer covering bounds. A small
// margin keeps lines on the region border inside the pixel grid.
func NewDepthBuffer(res int, bounds Bounds2) *DepthBuffer {
	if res < 1 {
		res = 1
	}
	w := bounds.Width()
	h := bounds.Height()
	extent := math.Max(w, h)
	if extent <= 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		extent = 1
	}
	margin := extent * 0.01
	extent += 2 * margin

	b := &DepthBuffer{
		res:    res,
		min:    Point2D{X: bounds.Min.X - margin, Y: bounds.Min.Y - margin},
		scale:  float64(res) / extent,
		depth:  make([]float32, res*res),
		farVal: float32(math.Inf(1)),
	}
	for i := range b.depth {
		b.depth[i] = b.farVal
	}
	return b
}

// toPixel maps a drawing point to pixel coordinates.
func (b *DepthBuffer) toPixel(p Point2D) (float64, float64) {
	return (p.X - b.min.X) * b.scale, (p.Y - b.min.Y) * b.scale
}

// At returns the nearest recorded depth at the pixel containing p.
// Points outside the grid report infinite depth (nothing there).
func (b *DepthBuffer) At(p Point2D) float64 {
	x, y := b.toPixel(p)
	// Floor rather than truncate so pixel coordinates in (-1, 0) fall
	// outside the grid instead of aliasing into column or row zero.
	xi, yi := int(math.Floor(x)), int(math.Floor(y))
	if xi < 0 || yi < 0 || xi >= b.res || yi >= b.res {
		return math.Inf(1)
	}
	return float64(b.depth[yi*b.res+xi])
}

// RasterizeMeshes fills the buffer with the nearest view depth of every
// triangle beyond the section plane. Triangles entirely on the viewer's
// side of the plane do not occlude the drawing and are skipped.
func (b *DepthBuffer) RasterizeMeshes(plane SectionPlane, meshes []*Mesh) {
	for _, m := range meshes {
		tris := m.TriangleCount()
		for t := 0; t < tris; t++ {
			v0, v1, v2 := m.Triangle(t)
			d0 := plane.ViewDepth(v0)
			d1 := plane.ViewDepth(v1)
			d2 := plane.ViewDepth(v2)
			if d0 < 0 && d1 < 0 && d2 < 0 {
				continue
			}
			p0 := plane.Project(v0)
			p1 := plane.Project(v1)
			p2 := plane.Project(v2)
			if !p0.IsFinite() || !p1.IsFinite() || !p2.IsFinite() {
				continue
			}
			b.rasterTriangle(p0, p1, p2, d0, d1, d2)
		}
	}
}

// rasterTriangle scan-converts one triangle in pixel space, interpolating
// depth along each scanline span and keeping the minimum per pixel.
func (b *DepthBuffer) rasterTriangle(p0, p1, p2 Point2D, d0, d1, d2 float64) {
	type pv struct {
		x, y, d float64
	}
	v := [3]pv{}
	for i, p := range [3]Point2D{p0, p1, p2} {
		x, y := b.toPixel(p)
		v[i] = pv{x: x, y: y}
	}
	v[0].d, v[1].d, v[2].d = d0, d1, d2

	// Sort vertices top to bottom.
	if v[0].y > v[1].y {
		v[0], v[1] = v[1], v[0]
	}
	if v[1].y > v[2].y {
		v[1], v[2] = v[2], v[1]
	}
	if v[0].y > v[1].y {
		v[0], v[1] = v[1], v[0]
	}

	yStart := int(math.Max(0, math.Ceil(v[0].y)))
	yEnd := int(math.Min(float64(b.res-1), math.Floor(v[2].y)))

	for y := yStart; y <= yEnd; y++ {
		fy := float64(y)
		var xs [2]float64
		var ds [2]float64
		n := 0
		for _, e := range [3][2]pv{{v[0], v[1]}, {v[1], v[2]}, {v[0], v[2]}} {
			a, c := e[0], e[1]
			if a.y == c.y || fy < a.y || fy > c.y {
				continue
			}
			t := (fy - a.y) / (c.y - a.y)
			if n < 2 {
				xs[n] = a.x + t*(c.x-a.x)
				ds[n] = a.d + t*(c.d-a.d)
				n++
			}
		}
		if n < 2 {
			continue
		}
		if xs[0] > xs[1] {
			xs[0], xs[1] = xs[1], xs[0]
			ds[0], ds[1] = ds[1], ds[0]
		}
		xStart := int(math.Max(0, math.Ceil(xs[0])))
		xEnd := int(math.Min(float64(b.res-1), math.Floor(xs[1])))
		for x := xStart; x <= xEnd; x++ {
			var d float64
			if xs[1] == xs[0] {
				d = ds[0]
			} else {
				t := (float64(x) - xs[0]) / (xs[1] - xs[0])
				d = ds[0] + t*(ds[1]-ds[0])
			}
			if d < 0 {
				d = 0
			}
			idx := y*b.res + x
			if float32(d) < b.depth[idx] {
				b.depth[idx] = float32(d)
			}
		}
	}
}

// ClassifyLines tags every non-cut line's visibility against the depth
// buffer. Lines with mixed visibility along their length are split at the
// sample-run boundaries into wholly visible or wholly hidden pieces.
// Cut lines lie exactly on the section plane and stay visible.
func ClassifyLines(lines []DrawingLine, buf *DepthBuffer, cfg HiddenConfig) []DrawingLine {
	out := make([]DrawingLine, 0, len(lines))
	for _, l := range lines {
		if l.Category == CategoryCut {
			l.Visibility = VisibilityVisible
			out = append(out, l)
			continue
		}
		out = append(out, classifyLine(l, buf, cfg)...)
	}
	return out
}

// classifyLine samples the buffer along one line and splits it wherever
// visibility flips between consecutive samples.
func classifyLine(l DrawingLine, buf *DepthBuffer, cfg HiddenConfig) []DrawingLine {
	px0x, px0y := buf.toPixel(l.Start)
	px1x, px1y := buf.toPixel(l.End)
	lenPix := math.Hypot(px1x-px0x, px1y-px0y)

	samples := int(lenPix) + 2
	if samples > cfg.MaxSamples {
		samples = cfg.MaxSamples
	}

	hidden := make([]bool, samples)
	for i := 0; i < samples; i++ {
		t := (float64(i) + 0.5) / float64(samples)
		p := l.Start.Lerp(l.End, t)
		hidden[i] = l.Depth > buf.At(p)+cfg.DepthEpsilon
	}

	var out []DrawingLine
	runStart := 0
	for i := 1; i <= samples; i++ {
		if i < samples && hidden[i] == hidden[runStart] {
			continue
		}
		t0 := float64(runStart) / float64(samples)
		t1 := float64(i) / float64(samples)
		piece := l
		piece.Start = l.Start.Lerp(l.End, t0)
		piece.End = l.Start.Lerp(l.End, t1)
		if hidden[runStart] {
			piece.Visibility = VisibilityHidden
		} else {
			piece.Visibility = VisibilityVisible
		}
		out = append(out, piece)
		runStart = i
	}
	return out
}
