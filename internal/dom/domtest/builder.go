// Package domtest builds layout snapshots for tests.
package domtest

import (
	"fmt"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
)

// Builder accumulates nodes in document order.
type Builder struct {
	snap    *dom.Snapshot
	nextKey int
}

// New starts a snapshot with the given viewport.
func New(vp schemas.Viewport) *Builder {
	return &Builder{snap: &dom.Snapshot{View: vp}, nextKey: 1}
}

// Add appends an element under parent (dom.RootParent for top level) and
// returns its key. Style is given as alternating property/value pairs.
func (b *Builder) Add(parent int, tag string, r schemas.Rect, style ...string) int {
	return b.AddNode(dom.Node{Parent: parent, Tag: tag, Rect: r, Style: pairs(style)})
}

// AddNode appends a fully specified node, assigning a key when n.Key is zero.
func (b *Builder) AddNode(n dom.Node) int {
	if n.Key == 0 {
		n.Key = b.nextKey
	}
	if n.Key >= b.nextKey {
		b.nextKey = n.Key + 1
	}
	b.snap.Nodes = append(b.snap.Nodes, n)
	return n.Key
}

// Detached appends a node whose read fails.
func (b *Builder) Detached(parent int, tag string) int {
	return b.AddNode(dom.Node{Parent: parent, Tag: tag, Error: "node is detached"})
}

// Snapshot returns the built document.
func (b *Builder) Snapshot() *dom.Snapshot {
	return b.snap
}

// Rect is shorthand for a viewport-relative rect.
func Rect(x, y, w, h float64) schemas.Rect {
	return schemas.Rect{X: x, Y: y, Width: w, Height: h}
}

// Spacing returns style pairs for uniform padding and margin.
func Spacing(padding, margin float64) []string {
	p, m := fmt.Sprintf("%gpx", padding), fmt.Sprintf("%gpx", margin)
	return []string{
		"padding-top", p, "padding-right", p, "padding-bottom", p, "padding-left", p,
		"margin-top", m, "margin-right", m, "margin-bottom", m, "margin-left", m,
	}
}

func pairs(kv []string) dom.Style {
	s := dom.Style{}
	for i := 0; i+1 < len(kv); i += 2 {
		s[kv[i]] = kv[i+1]
	}
	return s
}
