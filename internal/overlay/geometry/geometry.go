// Package geometry turns a box and its inset amounts into renderable bands.
package geometry

import (
	"github.com/xkilldash9x/boxlens/api/schemas"
)

// DefaultMinLabelThickness is the narrowest band, in CSS pixels, that still
// carries a text label.
const DefaultMinLabelThickness = 12.0

// Calculator is stateless apart from its label threshold and is safe for
// concurrent use.
type Calculator struct {
	MinLabelThickness float64
}

// NewCalculator returns a calculator using the given label threshold, or the
// default one when minLabel is not positive.
func NewCalculator(minLabel float64) Calculator {
	if minLabel <= 0 {
		minLabel = DefaultMinLabelThickness
	}
	return Calculator{MinLabelThickness: minLabel}
}

// OutsetBands draws sides around box, growing its footprint. Used for margins.
func (c Calculator) OutsetBands(box schemas.Box, s schemas.Sides, role schemas.ColorRole) []schemas.Band {
	out := make([]schemas.Band, 0, 4)
	out = c.appendBand(out, s.Top, schemas.Horizontal, role,
		box.Top-s.Top, box.Left-s.Left, box.Width+s.Left+s.Right, s.Top)
	out = c.appendBand(out, s.Right, schemas.Vertical, role,
		box.Top, box.Right(), s.Right, box.Height)
	out = c.appendBand(out, s.Bottom, schemas.Horizontal, role,
		box.Bottom(), box.Left-s.Left, box.Width+s.Left+s.Right, s.Bottom)
	out = c.appendBand(out, s.Left, schemas.Vertical, role,
		box.Top, box.Left-s.Left, s.Left, box.Height)
	return out
}

// InsetBands draws sides inside box, carved from its own area. Used for padding.
func (c Calculator) InsetBands(box schemas.Box, s schemas.Sides, role schemas.ColorRole) []schemas.Band {
	out := make([]schemas.Band, 0, 4)
	out = c.appendBand(out, s.Top, schemas.Horizontal, role,
		box.Top, box.Left, box.Width, s.Top)
	out = c.appendBand(out, s.Right, schemas.Vertical, role,
		box.Top, box.Right()-s.Right, s.Right, box.Height)
	out = c.appendBand(out, s.Bottom, schemas.Horizontal, role,
		box.Bottom()-s.Bottom, box.Left, box.Width, s.Bottom)
	out = c.appendBand(out, s.Left, schemas.Vertical, role,
		box.Top, box.Left, s.Left, box.Height)
	return out
}

// Outline is the unlabeled border-box frame drawn under the hovered element.
func (c Calculator) Outline(box schemas.Box) (schemas.Band, bool) {
	b := schemas.Band{
		Top: box.Top, Left: box.Left, Width: box.Width, Height: box.Height,
		Role: schemas.RoleOutline, Orientation: schemas.Horizontal,
	}
	return b, b.HasArea()
}

// Band builds a single band with the label rule applied. It reports false when
// the band has no area.
func (c Calculator) Band(top, left, width, height, value float64, o schemas.Orientation, role schemas.ColorRole) (schemas.Band, bool) {
	b := schemas.Band{
		Top: top, Left: left, Width: width, Height: height,
		Role: role, Value: value, Orientation: o,
	}
	if !b.HasArea() {
		return schemas.Band{}, false
	}
	b.Label = c.Label(value)
	return b, true
}

// Label returns the text for a band of the given magnitude, or "" below the
// threshold.
func (c Calculator) Label(value float64) string {
	if value < c.MinLabelThickness {
		return ""
	}
	return schemas.PixelLabel(value)
}

func (c Calculator) appendBand(out []schemas.Band, value float64, o schemas.Orientation, role schemas.ColorRole, top, left, width, height float64) []schemas.Band {
	if value <= 0 {
		return out
	}
	if b, ok := c.Band(top, left, width, height, value, o, role); ok {
		out = append(out, b)
	}
	return out
}
