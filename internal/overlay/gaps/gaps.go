// Package gaps draws the space between the children of flex and grid
// containers.
package gaps

import (
	"math"
	"sort"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/overlay/geometry"
)

// DefaultEpsilon is the grouping tolerance, in CSS pixels, for deciding that
// two children share a row or a column.
const DefaultEpsilon = 6.0

// Calculator computes gap bands for one container at a time.
type Calculator struct {
	RowEpsilon    float64
	ColumnEpsilon float64
	Geometry      geometry.Calculator
}

// NewCalculator returns a calculator with default grouping tolerances.
func NewCalculator(geo geometry.Calculator) Calculator {
	return Calculator{RowEpsilon: DefaultEpsilon, ColumnEpsilon: DefaultEpsilon, Geometry: geo}
}

// Result is the outcome of one container.
type Result struct {
	Bands []schemas.Band
	// Capped is set when the budget ran out during this container.
	Capped bool
}

func top(b schemas.Box) float64  { return b.Top }
func left(b schemas.Box) float64 { return b.Left }

// Compute emits column-gap bands and then row-gap bands for the given
// children. children must already exclude degenerate boxes.
func (c Calculator) Compute(container schemas.Box, children []schemas.Box, rowGap, columnGap float64, budget *Budget) Result {
	var res Result
	if len(children) < 2 || (rowGap <= 0 && columnGap <= 0) {
		return res
	}
	if budget.Exhausted() {
		res.Capped = true
		return res
	}

	emit := func(b schemas.Band, ok bool) bool {
		if !ok {
			return true
		}
		if !budget.Take() {
			res.Capped = true
			return false
		}
		res.Bands = append(res.Bands, b)
		if budget.Exhausted() {
			res.Capped = true
			return false
		}
		return true
	}

	if columnGap > 0 {
		for _, row := range Group(children, top, left, c.RowEpsilon) {
			sort.SliceStable(row, func(i, j int) bool { return row[i].Left < row[j].Left })
			for i := 1; i < len(row); i++ {
				a, b := row[i-1], row[i]
				mid := (a.Right() + b.Left) / 2
				t := math.Min(a.Top, b.Top)
				h := math.Max(a.Bottom(), b.Bottom()) - t
				if !emit(c.Geometry.Band(t, mid-columnGap/2, columnGap, h, columnGap, schemas.Vertical, schemas.RoleGap)) {
					return res
				}
			}
		}
	}

	if rowGap > 0 {
		for _, col := range Group(children, left, top, c.ColumnEpsilon) {
			sort.SliceStable(col, func(i, j int) bool { return col[i].Top < col[j].Top })
			for i := 1; i < len(col); i++ {
				a, b := col[i-1], col[i]
				mid := (a.Bottom() + b.Top) / 2
				l := math.Max(a.Left, b.Left)
				w := math.Min(a.Right(), b.Right()) - l
				if w <= 0 {
					// Children that do not overlap horizontally get a
					// container-wide band. This is an approximation for
					// uneven grids.
					l, w = container.Left, container.Width
				}
				if !emit(c.Geometry.Band(mid-rowGap/2, l, w, rowGap, rowGap, schemas.Horizontal, schemas.RoleGap)) {
					return res
				}
			}
		}
	}
	return res
}
