package detection

import (
	"github.com/teslashibe/go-skipper/pkg/camera"
)

// FallbackConfig holds the plausibility filter for secondary detections.
type FallbackConfig struct {
	MinConfidence float64
	MinSize       float64
	MaxSize       float64
	MinAspect     float64
	MaxAspect     float64
}

// DefaultFallbackConfig returns the filter used with YuNet.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		MinConfidence: 0.85,
		MinSize:       80,
		MaxSize:       350,
		MinAspect:     0.7,
		MaxAspect:     1.4,
	}
}

// Fallback wraps an optional secondary detector. A Fallback with no
// detector, or a nil *Fallback, always returns nothing.
type Fallback struct {
	detector FaceDetector
	config   FallbackConfig
}

// NewFallback creates a fallback around det, which may be nil.
func NewFallback(det FaceDetector, cfg FallbackConfig) *Fallback {
	return &Fallback{detector: det, config: cfg}
}

// Available reports whether a detector is configured.
func (f *Fallback) Available() bool {
	return f != nil && f.detector != nil
}

// Detect runs the secondary detector and keeps only plausible faces.
func (f *Fallback) Detect(frame camera.Frame) ([]Candidate, error) {
	if !f.Available() {
		return nil, nil
	}

	faces, err := f.detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	var cands []Candidate
	for _, face := range faces {
		if !f.plausible(face) {
			continue
		}
		cands = append(cands, Candidate{
			Box:    face.Box,
			Score:  face.Confidence,
			Source: SourceFallback,
		})
	}
	return cands, nil
}

func (f *Fallback) plausible(face RawFace) bool {
	cfg := f.config
	b := face.Box
	if face.Confidence <= cfg.MinConfidence {
		return false
	}
	if b.W < cfg.MinSize || b.W > cfg.MaxSize || b.H < cfg.MinSize || b.H > cfg.MaxSize {
		return false
	}
	aspect := b.Aspect()
	return aspect >= cfg.MinAspect && aspect <= cfg.MaxAspect
}
