package robot

import (
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-skipper/internal/log"
)

// DeadZoneDeg skips a command when the target has moved less than this
// since the last successful send.
const DeadZoneDeg = 0.05

// Default axis speeds in degrees per second.
const (
	DefaultAzimuthSpeed  = 30.0
	DefaultAltitudeSpeed = 3.0
)

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Pose is a head orientation in degrees.
type Pose struct {
	Azimuth  float64 `json:"azimuth_deg"`
	Altitude float64 `json:"altitude_deg"`
}

// RateController sends the latest pose target to the motors at a fixed rate.
// Tracking workers call MoveTo as often as they like; only the newest target
// is sent on each tick, so a slow motor link never queues commands.
type RateController struct {
	axes AxisController

	mu     sync.RWMutex
	target Pose
	speeds Pose

	rate     time.Duration
	stop     chan struct{}
	stopOnce sync.Once

	lastSent  Pose
	sentOnce  bool
	errors    *log.Limited
	tickCount uint64
	skipped   uint64
	failures  uint64
}

// NewRateController creates a controller ticking at rate. Zero speeds use
// the defaults.
func NewRateController(axes AxisController, rate time.Duration, azSpeed, altSpeed float64) *RateController {
	if azSpeed <= 0 {
		azSpeed = DefaultAzimuthSpeed
	}
	if altSpeed <= 0 {
		altSpeed = DefaultAltitudeSpeed
	}
	return &RateController{
		axes:   axes,
		speeds: Pose{Azimuth: azSpeed, Altitude: altSpeed},
		rate:   rate,
		stop:   make(chan struct{}),
		errors: log.NewLimited(log.With("component", "motors"), 5*time.Second),
	}
}

// MoveTo sets the pose target. Safe for concurrent use.
func (c *RateController) MoveTo(azimuth, altitude float64) {
	c.mu.Lock()
	c.target = Pose{Azimuth: azimuth, Altitude: altitude}
	c.mu.Unlock()
}

// Home sets the target back to the power-on pose.
func (c *RateController) Home() {
	c.MoveTo(0, 0)
}

// Target returns the pending pose target.
func (c *RateController) Target() Pose {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// Run starts the control loop. Blocks until Stop is called.
func (c *RateController) Run() {
	ticker := time.NewTicker(c.rate)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// Stop halts the control loop. Calling it more than once is harmless.
func (c *RateController) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// tick sends the current target if it left the dead zone.
func (c *RateController) tick() {
	if c.axes == nil {
		return
	}

	c.mu.RLock()
	target := c.target
	speeds := c.speeds
	c.mu.RUnlock()

	c.tickCount++

	if c.sentOnce &&
		math.Abs(target.Azimuth-c.lastSent.Azimuth) < DeadZoneDeg &&
		math.Abs(target.Altitude-c.lastSent.Altitude) < DeadZoneDeg {
		c.skipped++
		return
	}

	if err := c.axes.SetAzimuth(target.Azimuth, speeds.Azimuth); err != nil {
		c.fail("azimuth", err)
		return
	}
	if err := c.axes.SetAltitude(target.Altitude, speeds.Altitude); err != nil {
		c.fail("altitude", err)
		return
	}
	c.lastSent = target
	c.sentOnce = true

	if c.tickCount%100 == 0 {
		log.Debug("motor heartbeat", "ticks", c.tickCount, "skipped", c.skipped, "errors", c.failures,
			"az", target.Azimuth, "alt", target.Altitude)
	}
}

func (c *RateController) fail(axis string, err error) {
	c.failures++
	c.errors.Warn("motor command failed", "axis", axis, "error", err, "total_errors", c.failures)
}

// LogAxes stands in for the motors when they are disabled: every command is
// logged at debug level and succeeds.
type LogAxes struct{}

// SetAzimuth logs the pan command.
func (LogAxes) SetAzimuth(deg, speed float64) error {
	log.Debug("motors disabled", "axis", "azimuth", "deg", deg, "speed", speed)
	return nil
}

// SetAltitude logs the tilt command.
func (LogAxes) SetAltitude(deg, speed float64) error {
	log.Debug("motors disabled", "axis", "altitude", "deg", deg, "speed", speed)
	return nil
}
