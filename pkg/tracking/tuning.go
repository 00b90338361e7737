package tracking

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting.
type TuningParams struct {
	// Smoothing
	SmoothingAlpha float64 `json:"smoothing_alpha"` // EMA alpha (0.25=smooth, 0.6=responsive)

	// Control law
	PixelsPerDegree float64 `json:"pixels_per_degree"`
	DeadbandRadius  float64 `json:"deadband_radius"`
	DampingRadius   float64 `json:"damping_radius"`
	InnerBoxInset   float64 `json:"inner_box_inset"`
}

// TuningFrom extracts the tunable subset of cfg.
func TuningFrom(cfg Config) TuningParams {
	return TuningParams{
		SmoothingAlpha:  cfg.SmoothingAlpha,
		PixelsPerDegree: cfg.PixelsPerDegree,
		DeadbandRadius:  cfg.DeadbandRadius,
		DampingRadius:   cfg.DampingRadius,
		InnerBoxInset:   cfg.InnerBoxInset,
	}
}

// Apply returns cfg with the non-zero params applied. Values are clamped
// to ranges that keep the control law well defined.
func (p TuningParams) Apply(cfg Config) Config {
	if p.SmoothingAlpha > 0 {
		cfg.SmoothingAlpha = clamp(p.SmoothingAlpha, 0.05, 1.0)
	}
	if p.PixelsPerDegree > 0 {
		cfg.PixelsPerDegree = clamp(p.PixelsPerDegree, 5, 500)
	}
	if p.DeadbandRadius > 0 {
		cfg.DeadbandRadius = p.DeadbandRadius
	}
	if p.DampingRadius > 0 {
		cfg.DampingRadius = p.DampingRadius
	}
	if p.InnerBoxInset > 0 {
		cfg.InnerBoxInset = clamp(p.InnerBoxInset, 0, 0.45)
	}

	// The damping ring needs positive width.
	if cfg.DampingRadius <= cfg.DeadbandRadius {
		cfg.DampingRadius = cfg.DeadbandRadius + 1
	}
	return cfg
}
