package tracking

import (
	"fmt"
	"math"
)

// Mechanical limits of the pan/tilt head, in degrees from home.
const (
	// DefaultAzimuthMin and DefaultAzimuthMax bound the pan axis.
	DefaultAzimuthMin = -13.0
	DefaultAzimuthMax = 13.0

	// The tilt stepper is mounted inverted, so its configured minimum is
	// numerically larger than its maximum.
	DefaultAltitudeMin = 4.0
	DefaultAltitudeMax = -4.0
)

// AxisLimits bounds one axis. Min may exceed Max on inverted axes.
type AxisLimits struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Lo returns the numerically smaller bound.
func (a AxisLimits) Lo() float64 { return math.Min(a.Min, a.Max) }

// Hi returns the numerically larger bound.
func (a AxisLimits) Hi() float64 { return math.Max(a.Min, a.Max) }

// Clamp limits deg to the axis range regardless of bound order.
func (a AxisLimits) Clamp(deg float64) float64 {
	return clamp(deg, a.Lo(), a.Hi())
}

// Limits bounds both axes.
type Limits struct {
	Azimuth  AxisLimits `json:"azimuth" yaml:"azimuth"`
	Altitude AxisLimits `json:"altitude" yaml:"altitude"`
}

// DefaultLimits returns the rig's mechanical limits.
func DefaultLimits() Limits {
	return Limits{
		Azimuth:  AxisLimits{Min: DefaultAzimuthMin, Max: DefaultAzimuthMax},
		Altitude: AxisLimits{Min: DefaultAltitudeMin, Max: DefaultAltitudeMax},
	}
}

// Validate rejects axes with no travel.
func (l Limits) Validate() error {
	if l.Azimuth.Min == l.Azimuth.Max {
		return fmt.Errorf("tracking: azimuth limits have zero span")
	}
	if l.Altitude.Min == l.Altitude.Max {
		return fmt.Errorf("tracking: altitude limits have zero span")
	}
	return nil
}

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
