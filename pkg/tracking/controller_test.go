package tracking

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

func newTestController() *MotionController {
	c := NewMotionController(DefaultConfig(), DefaultLimits(), 640, 480)
	c.Home()
	return c
}

func TestMotionController_Scenario(t *testing.T) {
	c := newTestController()

	corr := c.Update(detection.Box{X: 100, Y: 100, W: 50, H: 60})

	assert.Equal(t, detection.Point{X: 125, Y: 130}, corr.Center)
	assert.Equal(t, detection.Rect{X1: 115, Y1: 118, X2: 135, Y2: 142}, corr.InnerBox)
	assert.InDelta(t, 185, corr.ErrorX, 1e-9)
	assert.InDelta(t, 98, corr.ErrorY, 1e-9)
	assert.InDelta(t, 209.4, corr.Distance, 0.2)
	assert.Equal(t, ZoneTracking, corr.Zone)
	assert.InDelta(t, 3.7, corr.Motors.AzimuthDeg, 1e-9)
	assert.InDelta(t, 1.96, corr.Motors.AltitudeDeg, 1e-9)
}

func TestMotionController_Centered(t *testing.T) {
	c := newTestController()

	corr := c.Update(detection.Box{X: 270, Y: 190, W: 100, H: 100})
	assert.Equal(t, ZoneCentered, corr.Zone)
	assert.Zero(t, corr.ErrorX)
	assert.Zero(t, corr.ErrorY)
	assert.Equal(t, MotorState{}, corr.Motors)
}

// Repeated updates inside the deadband never move the head.
func TestMotionController_DeadbandIdempotent(t *testing.T) {
	c := newTestController()
	box := detection.Box{X: 200, Y: 190, W: 100, H: 100}

	for i := 0; i < 10; i++ {
		corr := c.Update(box)
		assert.Equal(t, ZoneCentered, corr.Zone)
		assert.InDelta(t, 50, corr.Distance, 1e-9)
		assert.Equal(t, MotorState{}, c.State())
	}
}

func TestMotionController_Damping(t *testing.T) {
	c := newTestController()

	corr := c.Update(detection.Box{X: 130, Y: 190, W: 100, H: 100})
	assert.Equal(t, ZoneDamping, corr.Zone)
	assert.InDelta(t, 120, corr.Distance, 1e-9)
	// Halfway through the damping ring: half of 120/50.
	assert.InDelta(t, 1.2, c.State().AzimuthDeg, 1e-9)
	assert.Zero(t, c.State().AltitudeDeg)
}

func TestMotionController_ZoneBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		errorX float64
		zone   Zone
		factor float64
	}{
		{"just inside deadband", 79.9, ZoneCentered, 0},
		{"deadband edge", 80, ZoneDamping, 1},
		{"damping edge", 160, ZoneTracking, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController()
			// Inner box right edge sits errorX left of the frame center.
			x2 := 320 - tc.errorX
			box := detection.Box{X: x2 - 70, Y: 190, W: 100, H: 100}

			corr := c.Update(box)
			assert.Equal(t, tc.zone, corr.Zone)
			assert.InDelta(t, tc.errorX/50*tc.factor, c.State().AzimuthDeg, 1e-6)
		})
	}
}

func TestMotionController_ClampsToLimits(t *testing.T) {
	c := newTestController()
	far := detection.Box{X: 0, Y: 0, W: 20, H: 20}

	for i := 0; i < 20; i++ {
		c.Update(far)
	}
	assert.Equal(t, 13.0, c.State().AzimuthDeg)
	assert.Equal(t, 4.0, c.State().AltitudeDeg)
}

// Motor pose stays inside the configured range for any box sequence, with
// either bound order.
func TestMotionController_BoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	limitSets := []Limits{
		DefaultLimits(),
		{Azimuth: AxisLimits{Min: 5, Max: -5}, Altitude: AxisLimits{Min: -2, Max: 8}},
		{Azimuth: AxisLimits{Min: -1, Max: 1}, Altitude: AxisLimits{Min: 1, Max: -1}},
	}

	for _, limits := range limitSets {
		c := NewMotionController(DefaultConfig(), limits, 800, 800)
		c.Home()
		for i := 0; i < 2000; i++ {
			box := detection.Box{
				X: rng.Float64()*900 - 50,
				Y: rng.Float64()*900 - 50,
				W: 10 + rng.Float64()*400,
				H: 10 + rng.Float64()*400,
			}
			c.Update(box)
			st := c.State()
			if st.AzimuthDeg < limits.Azimuth.Lo() || st.AzimuthDeg > limits.Azimuth.Hi() {
				t.Fatalf("azimuth %.3f outside %+v", st.AzimuthDeg, limits.Azimuth)
			}
			if st.AltitudeDeg < limits.Altitude.Lo() || st.AltitudeDeg > limits.Altitude.Hi() {
				t.Fatalf("altitude %.3f outside %+v", st.AltitudeDeg, limits.Altitude)
			}
			if math.IsNaN(st.AzimuthDeg) || math.IsNaN(st.AltitudeDeg) {
				t.Fatal("NaN pose")
			}
		}
	}
}

func TestMotionController_Home(t *testing.T) {
	c := newTestController()
	c.Update(detection.Box{X: 100, Y: 100, W: 50, H: 60})
	assert.NotEqual(t, MotorState{}, c.State())

	c.Home()
	assert.Equal(t, MotorState{}, c.State())
	assert.Equal(t, detection.Point{X: 320, Y: 240}, c.FrameCenter())
}

func TestLimits(t *testing.T) {
	l := DefaultLimits()
	assert.NoError(t, l.Validate())
	assert.Equal(t, -4.0, l.Altitude.Lo())
	assert.Equal(t, 4.0, l.Altitude.Hi())
	assert.Equal(t, 4.0, l.Altitude.Clamp(10))
	assert.Equal(t, -4.0, l.Altitude.Clamp(-10))

	l.Azimuth = AxisLimits{Min: 3, Max: 3}
	assert.Error(t, l.Validate())
}

func TestDegreesRadians(t *testing.T) {
	assert.InDelta(t, 180, Degrees(math.Pi), 1e-9)
	assert.InDelta(t, math.Pi/2, Radians(90), 1e-9)
}
