package render

import (
	"context"
	"fmt"
	"sync"
)

// MemorySurface records layers in memory. It backs dry runs and tests.
type MemorySurface struct {
	mu     sync.Mutex
	layers map[string][]Primitive
	passes map[string]int
}

// NewMemorySurface returns an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		layers: make(map[string][]Primitive),
		passes: make(map[string]int),
	}
}

// Replace implements Surface.
func (m *MemorySurface) Replace(ctx context.Context, layer string, prims []Primitive) ([]Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp := make([]Primitive, len(prims))
	copy(cp, prims)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers[layer] = cp
	m.passes[layer]++

	handles := make([]Handle, len(cp))
	for i := range cp {
		handles[i] = Handle(fmt.Sprintf("%s/%d", layer, i))
	}
	return handles, nil
}

// Layer returns a copy of the primitives currently in layer.
func (m *MemorySurface) Layer(layer string) []Primitive {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Primitive, len(m.layers[layer]))
	copy(out, m.layers[layer])
	return out
}

// Passes reports how many times layer has been replaced.
func (m *MemorySurface) Passes(layer string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passes[layer]
}
