// Package dom abstracts the render engine the inspector reads layout from.
// Implementations must treat the host page as read-only.
package dom

import (
	"errors"
	"strings"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

// ErrDetached is returned by element reads when the node left the document
// between the trigger and the read.
var ErrDetached = errors.New("dom: element detached from document")

// DefaultUIPrefix marks ids and classes owned by the inspector itself.
const DefaultUIPrefix = "bl-"

// Element is a renderable node handle valid for one inspection pass.
type Element interface {
	// Key identifies the same live node across passes.
	Key() int
	Tag() string
	ClassName() string
	// Rect returns the viewport-relative border-box.
	Rect() (schemas.Rect, error)
	Style() (Style, error)
	Children() []Element
	IsInspectorUI() bool
}

// Document is one consistent read of the page.
type Document interface {
	// Elements returns the descendants of body in document order.
	Elements() []Element
	Viewport() schemas.Viewport
	Lookup(key int) (Element, bool)
	// ElementAt hit-tests a viewport coordinate, ignoring inspector UI.
	ElementAt(x, y float64) (Element, bool)
}

// IsInspectorName reports whether an id or class list carries the reserved prefix.
func IsInspectorName(prefix, id, className string) bool {
	if prefix == "" {
		return false
	}
	if strings.HasPrefix(id, prefix) {
		return true
	}
	for _, c := range strings.Fields(className) {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
