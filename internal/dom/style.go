package dom

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/boxlens/api/schemas"
)

// Style is a computed-style declaration keyed by CSS property name
// ("padding-top", "row-gap", ...).
type Style map[string]string

// Get returns the raw value of a property, or "" when unset.
func (s Style) Get(prop string) string {
	return strings.TrimSpace(s[prop])
}

// Px reads a property as a pixel length. Unset and non-numeric values resolve
// to 0, matching parseFloat(v) || 0 in the page.
func (s Style) Px(prop string) float64 {
	return ParseLength(s.Get(prop))
}

// Sides reads the four longhands of a box-model property such as "padding".
func (s Style) Sides(prefix string) schemas.Sides {
	return schemas.Sides{
		Top:    s.Px(prefix + "-top"),
		Right:  s.Px(prefix + "-right"),
		Bottom: s.Px(prefix + "-bottom"),
		Left:   s.Px(prefix + "-left"),
	}
}

// Display returns the computed display value.
func (s Style) Display() string {
	return s.Get("display")
}

// SupportsGap reports whether the layout mode honours row-gap/column-gap.
func (s Style) SupportsGap() bool {
	switch s.Display() {
	case "flex", "inline-flex", "grid", "inline-grid":
		return true
	}
	return false
}

// Gaps resolves row and column gap, falling back to the gap shorthand. Both are
// zero for layout modes that do not support gap.
func (s Style) Gaps() (rowGap, columnGap float64) {
	if !s.SupportsGap() {
		return 0, 0
	}
	gap := s.Px("gap")
	rowGap = s.Px("row-gap")
	if rowGap == 0 {
		rowGap = gap
	}
	columnGap = s.Px("column-gap")
	if columnGap == 0 {
		// The shorthand's second value is the column gap when present.
		if fields := strings.Fields(s.Get("gap")); len(fields) == 2 {
			columnGap = ParseLength(fields[1])
		} else {
			columnGap = gap
		}
	}
	return rowGap, columnGap
}

// ParseLength parses the leading decimal number of a CSS value ("12.5px" → 12.5).
// Anything without a numeric prefix is 0. Negative lengths (negative margins)
// clamp to 0 since sides are non-negative insets.
func ParseLength(v string) float64 {
	v = strings.TrimSpace(v)
	end := 0
	seenDigit, seenDot := false, false
scan:
	for ; end < len(v); end++ {
		c := v[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		case (c == '-' || c == '+') && end == 0:
		default:
			break scan
		}
	}
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(v[:end], 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
