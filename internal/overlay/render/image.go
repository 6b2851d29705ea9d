package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

// basicfont.Face7x13 metrics.
const (
	glyphWidth  = 7
	glyphHeight = 13
)

var (
	labelColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelOutline = color.NRGBA{R: 0, G: 0, B: 0, A: 200}
)

// ImageSurface draws layers onto a screenshot of the page. Bands are in page
// coordinates and are mapped through the viewport the screenshot was taken at.
type ImageSurface struct {
	base    *image.RGBA
	view    schemas.Viewport
	palette Palette

	mu     sync.Mutex
	layers map[string][]Primitive
}

// NewImageSurface wraps a screenshot taken at viewport vp. A nil palette uses
// DefaultPalette.
func NewImageSurface(screenshot image.Image, vp schemas.Viewport, palette Palette) *ImageSurface {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &ImageSurface{
		base:    ImageToRGBA(screenshot),
		view:    vp,
		palette: palette,
		layers:  make(map[string][]Primitive),
	}
}

// Replace implements Surface.
func (s *ImageSurface) Replace(ctx context.Context, layer string, prims []Primitive) ([]Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp := make([]Primitive, len(prims))
	copy(cp, prims)

	s.mu.Lock()
	s.layers[layer] = cp
	s.mu.Unlock()

	handles := make([]Handle, len(cp))
	for i := range cp {
		handles[i] = Handle(fmt.Sprintf("%s#%d", layer, i))
	}
	return handles, nil
}

// Image composes the screenshot with every layer, in layer name order.
func (s *ImageSurface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := ImageToRGBA(s.base)
	names := make([]string, 0, len(s.layers))
	for name := range s.layers {
		names = append(names, name)
	}
	sort.Strings(names)

	sx, sy := s.scale(out.Bounds())
	for _, name := range names {
		for _, p := range s.layers[name] {
			s.drawPrimitive(out, p, sx, sy)
		}
	}
	return out
}

// scale maps CSS pixels to image pixels, which differ on high-DPI captures.
func (s *ImageSurface) scale(b image.Rectangle) (float64, float64) {
	sx, sy := 1.0, 1.0
	if s.view.Width > 0 {
		sx = float64(b.Dx()) / s.view.Width
	}
	if s.view.Height > 0 {
		sy = float64(b.Dy()) / s.view.Height
	}
	return sx, sy
}

func (s *ImageSurface) drawPrimitive(img *image.RGBA, p Primitive, sx, sy float64) {
	b := p.Band
	x1 := int(math.Round((b.Left - s.view.ScrollX) * sx))
	y1 := int(math.Round((b.Top - s.view.ScrollY) * sy))
	x2 := int(math.Round((b.Left + b.Width - s.view.ScrollX) * sx))
	y2 := int(math.Round((b.Top + b.Height - s.view.ScrollY) * sy))
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	c := s.palette.Color(b.Role)
	if b.Role == schemas.RoleOutline {
		drawRectangle(img, r, c)
	} else {
		draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Over)
	}

	if b.Label == "" {
		return
	}
	cx, cy := (x1+x2)/2, (y1+y2)/2
	if p.Vertical {
		drawVerticalText(img, b.Label, cx, cy)
	} else {
		drawTextWithOutline(img, b.Label, cx, cy)
	}
}

// ImageToRGBA converts any image to RGBA.
func ImageToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// drawRectangle draws a one pixel frame along the inside of r.
func drawRectangle(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// drawTextWithOutline centers text on (x, y) with a dark halo.
func drawTextWithOutline(img *image.RGBA, text string, x, y int) {
	offsetX := x - len(text)*glyphWidth/2
	// The drawer's dot sits on the baseline.
	offsetY := y + glyphHeight/2 - 2

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, offsetX+dx, offsetY+dy, labelOutline)
		}
	}
	drawString(img, text, offsetX, offsetY, labelColor)
}

// drawVerticalText stacks the characters of text top to bottom, centered on
// (x, y).
func drawVerticalText(img *image.RGBA, text string, x, y int) {
	top := y - len(text)*glyphHeight/2
	for i, ch := range text {
		drawTextWithOutline(img, string(ch), x, top+i*glyphHeight+glyphHeight/2)
	}
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
