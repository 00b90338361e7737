package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetVGA     = "vga"
	Preset720p    = "720p"
	PresetFast    = "fast"
	PresetNight   = "night"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetVGA:     VGAConfig(),
		Preset720p:    HD720Config(),
		PresetFast:    FastConfig(),
		PresetNight:   NightModeConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetVGA,
		Preset720p,
		PresetFast,
		PresetNight,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// VGAConfig returns 640x480, for cameras that cannot do square frames.
func VGAConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// FastConfig keeps the default frame size at 30 FPS.
// Noisier, but halves tracking latency.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 30
	return cfg
}

// NightModeConfig returns configuration optimized for low light.
func NightModeConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 10
	cfg.Gain = 8.0
	cfg.Brightness = 0.3
	return cfg
}
