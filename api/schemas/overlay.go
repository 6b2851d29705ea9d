// File: api/schemas/overlay.go
package schemas

import (
	"fmt"
	"math"
	"strings"
)

// -- Geometry primitives --

// Sides holds the four directional insets of one box-model property (margin or
// padding) in CSS pixels.
type Sides struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// IsZero reports whether all four sides are zero.
func (s Sides) IsZero() bool {
	return s.Top == 0 && s.Right == 0 && s.Bottom == 0 && s.Left == 0
}

// Rect is a client rectangle as reported by the render engine, relative to the
// viewport's top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right edge in viewport coordinates.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom edge in viewport coordinates.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether the point lies inside the rect, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Box is an element's border-box in page coordinates (viewport position plus
// scroll offset).
type Box struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right edge in page coordinates.
func (b Box) Right() float64 { return b.Left + b.Width }

// Bottom edge in page coordinates.
func (b Box) Bottom() float64 { return b.Top + b.Height }

// Degenerate is true when both dimensions are exactly zero. Such a box signals a
// removed or hidden element and suppresses all overlay output for it.
func (b Box) Degenerate() bool {
	return b.Width == 0 && b.Height == 0
}

// Viewport describes the visible window and its scroll offset.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// ToPage converts a viewport-relative rect into a page-coordinate box.
func (v Viewport) ToPage(r Rect) Box {
	return Box{
		Top:    r.Y + v.ScrollY,
		Left:   r.X + v.ScrollX,
		Width:  r.Width,
		Height: r.Height,
	}
}

// Intersects is the AABB test of a viewport-relative rect against
// {0, 0, Width, Height}. Touching edges count as intersecting.
func (v Viewport) Intersects(r Rect) bool {
	return !(r.Bottom() < 0 || r.Right() < 0 || r.Y > v.Height || r.X > v.Width)
}

// Point is a pointer position in viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// -- Bands --

// ColorRole is the symbolic visual treatment of a band. The literal colour is a
// rendering concern.
type ColorRole string

const (
	RolePadding ColorRole = "padding"
	RoleMargin  ColorRole = "margin"
	RoleGap     ColorRole = "gap"
	RoleOutline ColorRole = "outline"
)

// Orientation determines the flow of a band's label text.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Band is a single renderable rectangle in page coordinates. Emitted bands
// always have strictly positive width and height.
type Band struct {
	Top         float64     `json:"top"`
	Left        float64     `json:"left"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Role        ColorRole   `json:"role"`
	Value       float64     `json:"value"`
	Orientation Orientation `json:"orientation"`
	// Label is empty when the band is thinner than the label threshold.
	Label string `json:"label,omitempty"`
}

// HasArea reports whether the band would be visible.
func (b Band) HasArea() bool {
	return b.Width > 0 && b.Height > 0
}

// PixelLabel formats a magnitude the way overlay labels display it.
func PixelLabel(v float64) string {
	return fmt.Sprintf("%dpx", int64(math.Round(v)))
}

// ElementSnapshot is the per-pass geometry of one element. It is never cached
// across passes.
type ElementSnapshot struct {
	Box       Box     `json:"box"`
	Padding   Sides   `json:"padding"`
	Margin    Sides   `json:"margin"`
	RowGap    float64 `json:"rowGap"`
	ColumnGap float64 `json:"columnGap"`
}

// Summary is the descriptive hover data handed to the side panel.
type Summary struct {
	Key          int    `json:"key"`
	Tag          string `json:"tag"`
	ClassName    string `json:"className,omitempty"`
	Foreground   string `json:"foreground,omitempty"`
	Background   string `json:"background,omitempty"`
	Padding      Sides  `json:"padding"`
	Margin       Sides  `json:"margin"`
	FontSize     string `json:"fontSize,omitempty"`
	LineHeight   string `json:"lineHeight,omitempty"`
	BorderRadius string `json:"borderRadius,omitempty"`
}

// -- Sweep results --

// CapReason records which budget truncated a sweep.
type CapReason uint8

const (
	CapNone        CapReason = 0
	CapElements    CapReason = 1 << 0
	CapGapSegments CapReason = 1 << 1
)

// Has reports whether r includes the given cap.
func (r CapReason) Has(c CapReason) bool { return r&c != 0 }

func (r CapReason) String() string {
	if r == CapNone {
		return "none"
	}
	var parts []string
	if r.Has(CapElements) {
		parts = append(parts, "elements")
	}
	if r.Has(CapGapSegments) {
		parts = append(parts, "gap_segments")
	}
	return strings.Join(parts, "+")
}

// SweepLimits are the hard caps applied to one sweep pass.
type SweepLimits struct {
	MaxElements    int `json:"maxElements"`
	MaxGapSegments int `json:"maxGapSegments"`
}

// Notice renders the single user-facing message for a capped sweep.
func (r CapReason) Notice(l SweepLimits) string {
	switch {
	case r.Has(CapElements) && r.Has(CapGapSegments):
		return fmt.Sprintf("Elements capped at %d and gap segments at %d for performance", l.MaxElements, l.MaxGapSegments)
	case r.Has(CapElements):
		return fmt.Sprintf("Elements capped at %d for performance", l.MaxElements)
	case r.Has(CapGapSegments):
		return fmt.Sprintf("Gap segments capped at %d for performance", l.MaxGapSegments)
	}
	return ""
}

// SweepResult is the outcome of one whole-page pass.
type SweepResult struct {
	Bands     []Band    `json:"bands"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Capped    CapReason `json:"capped"`
}

// -- Controller state --

// Mode selects between single-element hover inspection and the whole-page sweep.
type Mode string

const (
	ModeHover Mode = "hover"
	ModeSweep Mode = "sweep"
)

// State is the persisted on/off and mode flags exchanged with the preferences
// collaborator.
type State struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	SweepMode  bool `json:"sweepMode" mapstructure:"sweep_mode"`
	ShowLegend bool `json:"showLegend" mapstructure:"show_legend"`
}

// Mode derives the active mode from the flags.
func (s State) Mode() Mode {
	if s.SweepMode {
		return ModeSweep
	}
	return ModeHover
}
