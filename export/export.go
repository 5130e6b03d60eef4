// Package export writes drawings produced by drafter to interchange
// formats. SVG output targets on-screen review and web viewers, DXF
// output targets CAD round-tripping.
//
// Both writers share the same mapping from drawing space to sheet
// space: the drawing's bounds are fitted to the sheet at the requested
// scale, and the Y axis is flipped so model-space up is sheet-space up.
package export

import (
	"github.com/gobim/drafter"
)

// SheetSize is a paper size in millimeters.
type SheetSize struct {
	Width  float64
	Height float64
}

// Common ISO sheet sizes, landscape orientation.
var (
	SheetA4 = SheetSize{Width: 297, Height: 210}
	SheetA3 = SheetSize{Width: 420, Height: 297}
	SheetA2 = SheetSize{Width: 594, Height: 420}
	SheetA1 = SheetSize{Width: 841, Height: 594}
	SheetA0 = SheetSize{Width: 1189, Height: 841}
)

// SheetOptions controls how a drawing is placed on a sheet.
type SheetOptions struct {
	// Size of the output sheet in millimeters.
	Size SheetSize

	// Scale is the architectural scale denominator: 50 means 1:50,
	// one sheet millimeter per 50 model millimeters. Zero fits the
	// drawing to the sheet with a 5% margin.
	Scale float64

	// ModelUnit is the length of one model unit in millimeters.
	// IFC geometry is usually meters, so the default is 1000.
	ModelUnit float64
}

// DefaultSheetOptions returns A3 with fit-to-sheet scaling.
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{Size: SheetA3, ModelUnit: 1000}
}

// transform maps drawing-space points onto the sheet in millimeters,
// flipping Y so the drawing reads upright.
type transform struct {
	scale    float64
	offsetX  float64
	offsetY  float64
	flipFrom float64
}

func newTransform(bounds drafter.Bounds2, opt SheetOptions) transform {
	if opt.ModelUnit <= 0 {
		opt.ModelUnit = 1000
	}
	w := bounds.Width()
	h := bounds.Height()

	var scale float64
	if opt.Scale > 0 {
		scale = opt.ModelUnit / opt.Scale
	} else {
		// Fit with a 5% margin on each side.
		scale = 1
		if w > 0 && h > 0 {
			sx := opt.Size.Width * 0.9 / w
			sy := opt.Size.Height * 0.9 / h
			scale = sx
			if sy < scale {
				scale = sy
			}
		}
	}

	// Center the scaled drawing on the sheet.
	cx := (bounds.Min.X + bounds.Max.X) / 2
	cy := (bounds.Min.Y + bounds.Max.Y) / 2
	return transform{
		scale:    scale,
		offsetX:  opt.Size.Width/2 - cx*scale,
		offsetY:  opt.Size.Height/2 + cy*scale,
		flipFrom: 0,
	}
}

func (t transform) apply(p drafter.Point2D) (float64, float64) {
	return p.X*t.scale + t.offsetX, t.offsetY - p.Y*t.scale
}
