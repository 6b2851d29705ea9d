package render

import (
	"fmt"
	"image/color"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

// Palette maps band roles to fill colours.
type Palette map[schemas.ColorRole]color.NRGBA

// DefaultPalette is orange margins, green padding, teal gaps and a grey
// outline.
func DefaultPalette() Palette {
	return Palette{
		schemas.RoleMargin:  {R: 255, G: 158, B: 67, A: 140},
		schemas.RolePadding: {R: 120, G: 200, B: 80, A: 140},
		schemas.RoleGap:     {R: 78, G: 205, B: 196, A: 140},
		schemas.RoleOutline: {R: 166, G: 172, B: 180, A: 230},
	}
}

// Color returns the fill for role, or opaque magenta for an unknown role so it
// stands out.
func (p Palette) Color(role schemas.ColorRole) color.NRGBA {
	if c, ok := p[role]; ok {
		return c
	}
	return color.NRGBA{R: 255, B: 255, A: 255}
}

// CSS renders a colour as an rgba() expression.
func CSS(c color.NRGBA) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, float64(c.A)/255)
}
