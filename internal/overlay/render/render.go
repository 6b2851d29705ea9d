// Package render turns bands into drawable primitives and hands them to a
// surface. A surface owns one or more named layers and replaces a layer's
// contents as a whole, so a reader never sees half a pass.
package render

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

// Layer names.
const (
	LayerHover = "hover"
	LayerSweep = "sweep"
)

// Handle identifies a drawn primitive on its surface. Handles are valid until
// the next replacement of the same layer.
type Handle string

// Primitive is a band resolved for drawing.
type Primitive struct {
	Index    int          `json:"index"`
	Band     schemas.Band `json:"band"`
	Fill     string       `json:"fill"`
	Vertical bool         `json:"vertical,omitempty"`
}

// Surface is where primitives are drawn. Replace swaps a whole layer in one
// step and returns one handle per primitive, in order.
type Surface interface {
	Replace(ctx context.Context, layer string, prims []Primitive) ([]Handle, error)
}

// Renderer owns one layer of a surface.
type Renderer struct {
	surface Surface
	layer   string
	palette Palette
	logger  *zap.Logger

	mu      sync.Mutex
	handles map[int]Handle
}

// NewRenderer binds a renderer to a layer of surface. A nil palette uses
// DefaultPalette.
func NewRenderer(logger *zap.Logger, surface Surface, layer string, palette Palette) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Renderer{
		surface: surface,
		layer:   layer,
		palette: palette,
		logger:  logger.Named("render").With(zap.String("layer", layer)),
		handles: make(map[int]Handle),
	}
}

// Primitives resolves bands to primitives. Bands without area are dropped.
func (r *Renderer) Primitives(bands []schemas.Band) []Primitive {
	prims := make([]Primitive, 0, len(bands))
	for _, b := range bands {
		if !b.HasArea() {
			continue
		}
		prims = append(prims, Primitive{
			Index:    len(prims),
			Band:     b,
			Fill:     CSS(r.palette.Color(b.Role)),
			Vertical: b.Label != "" && b.Orientation == schemas.Vertical,
		})
	}
	return prims
}

// Render replaces the layer with bands. Rendering the same bands twice leaves
// the surface unchanged.
func (r *Renderer) Render(ctx context.Context, bands []schemas.Band) error {
	prims := r.Primitives(bands)
	handles, err := r.surface.Replace(ctx, r.layer, prims)
	if err != nil {
		return fmt.Errorf("failed to replace layer %q: %w", r.layer, err)
	}
	if len(handles) != len(prims) {
		return fmt.Errorf("surface returned %d handles for %d primitives", len(handles), len(prims))
	}

	r.mu.Lock()
	r.handles = make(map[int]Handle, len(handles))
	for i, h := range handles {
		r.handles[i] = h
	}
	r.mu.Unlock()

	r.logger.Debug("Layer rendered.", zap.Int("primitives", len(prims)))
	return nil
}

// Clear removes everything this renderer drew.
func (r *Renderer) Clear(ctx context.Context) error {
	return r.Render(ctx, nil)
}

// Handle returns the surface handle of the i-th primitive of the current pass.
func (r *Renderer) Handle(i int) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[i]
	return h, ok
}

// Len is the number of primitives currently drawn.
func (r *Renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
