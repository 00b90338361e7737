// Package tracking keeps a detected face centered by driving a pan/tilt
// head from one or two cameras.
package tracking

import (
	"time"

	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

// Config holds all tunable parameters for face following
type Config struct {
	// Track hysteresis
	MaxMissedFrames   int     // Coast on the cached box for this many empty frames
	ReacquireAfter    int     // Past this many lost frames any detection is trusted
	DriftConfirmation int     // Far jumps need this many frames before being adopted
	SmoothingAlpha    float64 // EMA weight on the new box (0-1)
	DriftIoU          float64 // Below this overlap a jump may be a different face
	DriftDistance     float64 // Center jump (px) that counts as a drift

	// Motion control
	PixelsPerDegree float64 // Pixel error per degree of correction
	DeadbandRadius  float64 // No correction inside this radius (px)
	DampingRadius   float64 // Corrections ramp up to full at this radius (px)
	InnerBoxInset   float64 // Fraction trimmed off each side of the face box

	Selector detection.SelectorConfig

	// Timing
	CaptureBackoff   time.Duration // Sleep after a failed capture
	FaultLogInterval time.Duration // Minimum gap between repeated fault logs
	DisplayInterval  time.Duration // Status/depth refresh cadence
	StopTimeout      time.Duration // Bounded wait for workers on Stop
}

// DefaultConfig returns the recommended configuration for face following
func DefaultConfig() Config {
	return Config{
		MaxMissedFrames:   15,
		ReacquireAfter:    20,
		DriftConfirmation: 10,
		SmoothingAlpha:    0.4, // 40% new, 60% old
		DriftIoU:          0.2,
		DriftDistance:     200,

		PixelsPerDegree: 50,
		DeadbandRadius:  80,
		DampingRadius:   160,
		InnerBoxInset:   0.30,

		Selector: detection.DefaultSelectorConfig(),

		CaptureBackoff:   100 * time.Millisecond,
		FaultLogInterval: 5 * time.Second,
		DisplayInterval:  33 * time.Millisecond, // ~30 fps
		StopTimeout:      2 * time.Second,
	}
}

// SmoothConfig returns a configuration for slower, steadier following
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.25
	cfg.PixelsPerDegree = 70
	cfg.DeadbandRadius = 100
	cfg.DampingRadius = 200
	return cfg
}

// AggressiveConfig returns a configuration for very fast following
func AggressiveConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.6 // Trust new readings more
	cfg.PixelsPerDegree = 35
	cfg.DeadbandRadius = 60
	cfg.DampingRadius = 120
	return cfg
}
