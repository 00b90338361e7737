package tracking

import (
	"math"

	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

// Zone classifies how far the face is from the keep-centered region.
type Zone string

const (
	ZoneNone     Zone = "none"     // No target this frame
	ZoneCentered Zone = "centered" // Inside the deadband
	ZoneDamping  Zone = "damping"  // Partial correction
	ZoneTracking Zone = "tracking" // Full correction
)

// MotorState is the commanded head pose in degrees from home.
type MotorState struct {
	AzimuthDeg  float64 `json:"azimuth_deg"`
	AltitudeDeg float64 `json:"altitude_deg"`
}

// Correction is the outcome of one controller step.
type Correction struct {
	Center   detection.Point // Face center
	InnerBox detection.Rect
	ErrorX   float64 // Frame center minus nearest inner-box point
	ErrorY   float64
	Distance float64
	Zone     Zone
	Motors   MotorState // Pose after the step
}

// MotionController converts a face box into incremental pan/tilt targets
// using a deadband and a linear damping ring. It is owned by one worker.
type MotionController struct {
	config Config
	limits Limits

	frameCenter detection.Point
	state       MotorState
}

// NewMotionController creates a controller for a frameW x frameH camera,
// starting at home.
func NewMotionController(config Config, limits Limits, frameW, frameH int) *MotionController {
	return &MotionController{
		config:      config,
		limits:      limits,
		frameCenter: detection.Point{X: float64(frameW) / 2, Y: float64(frameH) / 2},
	}
}

// Update steps the controller toward keeping box centered.
func (c *MotionController) Update(box detection.Box) Correction {
	inner := box.Inset(c.config.InnerBoxInset)
	out := Correction{
		Center:   box.Center(),
		InnerBox: inner,
		Zone:     ZoneCentered,
	}

	if !inner.Contains(c.frameCenter) {
		near := inner.Nearest(c.frameCenter)
		out.ErrorX = c.frameCenter.X - near.X
		out.ErrorY = c.frameCenter.Y - near.Y
	}
	out.Distance = math.Hypot(out.ErrorX, out.ErrorY)

	var factor float64
	switch {
	case out.Distance < c.config.DeadbandRadius:
		factor = 0
	case out.Distance < c.config.DampingRadius:
		out.Zone = ZoneDamping
		factor = 1 - (out.Distance-c.config.DeadbandRadius)/(c.config.DampingRadius-c.config.DeadbandRadius)
	default:
		out.Zone = ZoneTracking
		factor = 1
	}

	if factor > 0 {
		c.state.AzimuthDeg = c.limits.Azimuth.Clamp(c.state.AzimuthDeg + out.ErrorX/c.config.PixelsPerDegree*factor)
		c.state.AltitudeDeg = c.limits.Altitude.Clamp(c.state.AltitudeDeg + out.ErrorY/c.config.PixelsPerDegree*factor)
	}

	out.Motors = c.state
	return out
}

// State returns the current commanded pose.
func (c *MotionController) State() MotorState {
	return c.state
}

// Home returns both axes to zero degrees.
func (c *MotionController) Home() {
	c.state = MotorState{
		AzimuthDeg:  c.limits.Azimuth.Clamp(0),
		AltitudeDeg: c.limits.Altitude.Clamp(0),
	}
}

// FrameCenter returns the point the controller keeps the face on.
func (c *MotionController) FrameCenter() detection.Point {
	return c.frameCenter
}

// SetConfig swaps gains without moving the head.
func (c *MotionController) SetConfig(config Config) {
	c.config = config
}
