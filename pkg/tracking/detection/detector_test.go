package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox_Center(t *testing.T) {
	tests := []struct {
		name   string
		box    Box
		expect Point
	}{
		{"origin box", Box{X: 0, Y: 0, W: 20, H: 20}, Point{10, 10}},
		{"scenario face", Box{X: 100, Y: 100, W: 50, H: 60}, Point{125, 130}},
		{"fractional", Box{X: 0.5, Y: 1.5, W: 3, H: 1}, Point{2, 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.box.Center(); got != tc.expect {
				t.Errorf("Center: got %+v, want %+v", got, tc.expect)
			}
		})
	}
}

func TestBox_AreaAspect(t *testing.T) {
	b := Box{W: 50, H: 60}
	assert.Equal(t, 3000.0, b.Area())
	assert.InDelta(t, 0.8333, b.Aspect(), 1e-3)
	assert.Zero(t, Box{W: 10}.Aspect())
}

func TestBox_Inset(t *testing.T) {
	inner := Box{X: 100, Y: 100, W: 50, H: 60}.Inset(0.30)
	assert.Equal(t, Rect{X1: 115, Y1: 118, X2: 135, Y2: 142}, inner)
}

func TestRect_ContainsNearest(t *testing.T) {
	r := Rect{X1: 115, Y1: 118, X2: 135, Y2: 142}

	assert.True(t, r.Contains(Point{125, 130}))
	assert.True(t, r.Contains(Point{115, 142}), "edges are inside")
	assert.False(t, r.Contains(Point{400, 400}))

	assert.Equal(t, Point{135, 142}, r.Nearest(Point{320, 240}))
	assert.Equal(t, Point{115, 130}, r.Nearest(Point{0, 130}))
	assert.Equal(t, Point{120, 120}, r.Nearest(Point{120, 120}))
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", Box{0, 0, 10, 10}, Box{0, 0, 10, 10}, 1},
		{"disjoint", Box{0, 0, 10, 10}, Box{20, 20, 10, 10}, 0},
		{"half overlap", Box{0, 0, 10, 10}, Box{5, 0, 10, 10}, 50.0 / 150.0},
		{"touching edges", Box{0, 0, 10, 10}, Box{10, 0, 10, 10}, 0},
		{"empty box", Box{}, Box{}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, IoU(tc.a, tc.b), 1e-9)
		})
	}
}

func TestCenterDistance(t *testing.T) {
	d := CenterDistance(Box{0, 0, 10, 10}, Box{30, 40, 10, 10})
	assert.InDelta(t, 50, d, 1e-9)
}

func TestSmooth(t *testing.T) {
	prev := Box{X: 100, Y: 100, W: 50, H: 50}
	next := Box{X: 110, Y: 90, W: 60, H: 40}

	got := Smooth(next, prev, 0.4)
	assert.InDelta(t, 104, got.X, 1e-9)
	assert.InDelta(t, 96, got.Y, 1e-9)
	assert.InDelta(t, 54, got.W, 1e-9)
	assert.InDelta(t, 46, got.H, 1e-9)

	// Float boxes are kept as-is between frames.
	odd := Smooth(Box{X: 101}, Box{X: 100}, 0.4)
	assert.False(t, odd.X == math.Trunc(odd.X))
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "primary", SourcePrimary.String())
	assert.Equal(t, "fallback", SourceFallback.String())
}
