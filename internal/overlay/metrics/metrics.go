// Package metrics reads box-model geometry from the render engine. Reads are
// pure: nothing is cached and nothing in the page is touched.
package metrics

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
)

var (
	// ErrDegenerate marks an element with zero-area bounds. Callers clear any
	// overlay previously drawn for it.
	ErrDegenerate = errors.New("metrics: degenerate element")
	// ErrTransientRead marks a failed live read. It is always reported together
	// with ErrDegenerate so callers can treat both the same way.
	ErrTransientRead = errors.New("metrics: transient read failure")
)

// readError joins a read failure with both sentinels.
type readError struct{ cause error }

func (e *readError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTransientRead, e.cause)
}

func (e *readError) Is(target error) bool {
	return target == ErrTransientRead || target == ErrDegenerate
}

func (e *readError) Unwrap() error { return e.cause }

// Extract reads one element's snapshot in page coordinates.
func Extract(el dom.Element, vp schemas.Viewport) (schemas.ElementSnapshot, error) {
	r, err := el.Rect()
	if err != nil {
		return schemas.ElementSnapshot{}, &readError{cause: err}
	}
	box := vp.ToPage(r)
	if box.Degenerate() {
		return schemas.ElementSnapshot{}, ErrDegenerate
	}

	st, err := el.Style()
	if err != nil {
		return schemas.ElementSnapshot{}, &readError{cause: err}
	}
	rowGap, columnGap := st.Gaps()
	return schemas.ElementSnapshot{
		Box:       box,
		Padding:   st.Sides("padding"),
		Margin:    st.Sides("margin"),
		RowGap:    rowGap,
		ColumnGap: columnGap,
	}, nil
}

// Bounds reads only the page-coordinate box, for callers that need no style.
func Bounds(el dom.Element, vp schemas.Viewport) (schemas.Box, error) {
	r, err := el.Rect()
	if err != nil {
		return schemas.Box{}, &readError{cause: err}
	}
	box := vp.ToPage(r)
	if box.Degenerate() {
		return schemas.Box{}, ErrDegenerate
	}
	return box, nil
}

// ChildBoxes snapshots the non-degenerate direct children of el once, in
// document order. Children that fail to read are left out.
func ChildBoxes(el dom.Element, vp schemas.Viewport) []schemas.Box {
	children := el.Children()
	boxes := make([]schemas.Box, 0, len(children))
	for _, c := range children {
		if c.IsInspectorUI() {
			continue
		}
		b, err := Bounds(c, vp)
		if err != nil {
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes
}

// Summarize describes an element for the hover side panel.
func Summarize(el dom.Element) (schemas.Summary, error) {
	st, err := el.Style()
	if err != nil {
		return schemas.Summary{}, &readError{cause: err}
	}
	return schemas.Summary{
		Key:          el.Key(),
		Tag:          el.Tag(),
		ClassName:    el.ClassName(),
		Foreground:   st.Get("color"),
		Background:   st.Get("background-color"),
		Padding:      st.Sides("padding"),
		Margin:       st.Sides("margin"),
		FontSize:     st.Get("font-size"),
		LineHeight:   st.Get("line-height"),
		BorderRadius: st.Get("border-radius"),
	}, nil
}
