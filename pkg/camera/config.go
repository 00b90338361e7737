// Package camera provides frame capture and runtime-configurable camera
// settings for the tracking rig.
package camera

// Config holds the capture settings for one camera.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// === Exposure ===
	// Exposure is the driver exposure value. 0 means auto.
	Exposure float64 `json:"exposure"`

	// Brightness adjustment (-1.0 to +1.0).
	Brightness float64 `json:"brightness"`

	// Gain is manual sensor gain (1.0 to 16.0).
	// Set to 0 for auto gain.
	Gain float64 `json:"gain"`

	// === Autofocus ===
	// AutoFocus enables continuous autofocus where the driver supports it.
	AutoFocus bool `json:"auto_focus"`
}

// Sensor capabilities of the rig cameras.
const (
	SensorMaxWidth  = 4608
	SensorMaxHeight = 2592
	SensorMaxGain   = 16.0
	SensorMaxFPS    = 120
)

// DefaultConfig returns the configuration the tracker is tuned for:
// 800x800 at 15 FPS, which trades frame rate for noise reduction.
func DefaultConfig() Config {
	return Config{
		Width:     800,
		Height:    800,
		Framerate: 15,
		AutoFocus: true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > SensorMaxWidth {
		errors = append(errors, "width must be between 160 and 4608")
	}
	if c.Height < 120 || c.Height > SensorMaxHeight {
		errors = append(errors, "height must be between 120 and 2592")
	}
	if c.Framerate < 1 || c.Framerate > SensorMaxFPS {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}
	if c.Gain != 0 && (c.Gain < 1.0 || c.Gain > SensorMaxGain) {
		errors = append(errors, "gain must be 0 (auto) or between 1.0 and 16.0")
	}

	return errors
}

// Center returns the geometric center of a frame with this configuration.
func (c Config) Center() (x, y float64) {
	return float64(c.Width) / 2, float64(c.Height) / 2
}
