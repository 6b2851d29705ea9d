// File: api/schemas/overlay_test.go
package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewport_Intersects(t *testing.T) {
	vp := Viewport{Width: 800, Height: 600}
	tests := []struct {
		name string
		rect Rect
		want bool
	}{
		{"Inside", Rect{X: 10, Y: 10, Width: 50, Height: 50}, true},
		{"TouchingTopEdge", Rect{X: 10, Y: -50, Width: 50, Height: 50}, true},
		{"TouchingRightEdge", Rect{X: 800, Y: 10, Width: 50, Height: 50}, true},
		{"Above", Rect{X: 10, Y: -51, Width: 50, Height: 50}, false},
		{"LeftOf", Rect{X: -60, Y: 10, Width: 50, Height: 50}, false},
		{"Below", Rect{X: 10, Y: 600.5, Width: 50, Height: 50}, false},
		{"Covering", Rect{X: -100, Y: -100, Width: 1000, Height: 1000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vp.Intersects(tt.rect))
		})
	}
}

func TestViewport_ToPage(t *testing.T) {
	vp := Viewport{Width: 800, Height: 600, ScrollX: 15, ScrollY: 300}
	got := vp.ToPage(Rect{X: 10, Y: 20, Width: 30, Height: 40})
	assert.Equal(t, Box{Top: 320, Left: 25, Width: 30, Height: 40}, got)
	assert.Equal(t, 55.0, got.Right())
	assert.Equal(t, 360.0, got.Bottom())
}

func TestBox_Degenerate(t *testing.T) {
	assert.True(t, Box{Top: 5, Left: 5}.Degenerate())
	assert.False(t, Box{Width: 1}.Degenerate())
	assert.False(t, Box{Height: 1}.Degenerate())
}

func TestPixelLabel(t *testing.T) {
	assert.Equal(t, "16px", PixelLabel(16))
	assert.Equal(t, "13px", PixelLabel(12.6))
	assert.Equal(t, "0px", PixelLabel(0.2))
}

func TestCapReason(t *testing.T) {
	limits := SweepLimits{MaxElements: 300, MaxGapSegments: 600}

	assert.Equal(t, "none", CapNone.String())
	assert.Empty(t, CapNone.Notice(limits))

	assert.Equal(t, "elements", CapElements.String())
	assert.Equal(t, "Elements capped at 300 for performance", CapElements.Notice(limits))

	assert.Equal(t, "gap_segments", CapGapSegments.String())
	assert.Equal(t, "Gap segments capped at 600 for performance", CapGapSegments.Notice(limits))

	both := CapElements | CapGapSegments
	assert.Equal(t, "elements+gap_segments", both.String())
	assert.Equal(t, "Elements capped at 300 and gap segments at 600 for performance", both.Notice(limits))
}

func TestState_Mode(t *testing.T) {
	assert.Equal(t, ModeHover, State{Enabled: true}.Mode())
	assert.Equal(t, ModeSweep, State{SweepMode: true}.Mode())
}
