package worldmodel

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

// ErrInvalidCalibration is returned for calibration inputs that cannot
// produce a usable focal length.
var ErrInvalidCalibration = errors.New("worldmodel: invalid calibration")

// Plausible stereo range in cm. Outside it the face-size estimate is used.
const (
	minStereoDepthCm = 20.0
	maxStereoDepthCm = 500.0
	minDisparityPx   = 1.0
)

// StereoEstimator triangulates a face seen by both cameras. It is safe for
// concurrent use.
type StereoEstimator struct {
	mu  sync.RWMutex
	cal Calibration
}

// NewStereoEstimator creates an estimator with the given calibration.
func NewStereoEstimator(cal Calibration) (*StereoEstimator, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &StereoEstimator{cal: cal}, nil
}

// Calibration returns the current calibration.
func (s *StereoEstimator) Calibration() Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cal
}

// Calculate estimates the face position from the left and right camera
// boxes. ok is false when the boxes give no usable geometry.
func (s *StereoEstimator) Calculate(left, right detection.Box) (DepthEstimate, bool) {
	cal := s.Calibration()

	lc, rc := left.Center(), right.Center()
	disparity := math.Abs(lc.X - rc.X)
	if disparity < minDisparityPx {
		return DepthEstimate{}, false
	}

	z := cal.FocalLengthPx * cal.BaselineCm / disparity
	if z < minStereoDepthCm || z > maxStereoDepthCm {
		avgWidth := (left.W + right.W) / 2
		if avgWidth < minFaceWidthPx {
			return DepthEstimate{}, false
		}
		z = cal.AvgFaceWidthCm * cal.FocalLengthPx / avgWidth
	}

	avgX := (lc.X + rc.X) / 2
	avgY := (lc.Y+rc.Y)/2 - cal.VerticalOffsetPx

	return DepthEstimate{
		XCm: avgX * z / cal.FocalLengthPx,
		YCm: avgY * z / cal.FocalLengthPx,
		ZCm: z,
	}, true
}

// Recalibrate derives the focal length from one face of known distance.
// The previous focal length is kept when the inputs are not positive.
func (s *StereoEstimator) Recalibrate(observedWidthPx, knownDistanceCm float64) (float64, error) {
	if observedWidthPx <= 0 || knownDistanceCm <= 0 {
		return 0, fmt.Errorf("%w: width=%.1fpx distance=%.1fcm",
			ErrInvalidCalibration, observedWidthPx, knownDistanceCm)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cal.FocalLengthPx = observedWidthPx * knownDistanceCm / s.cal.AvgFaceWidthCm
	return s.cal.FocalLengthPx, nil
}

// EstimateDepth is the single-camera distance using the current calibration.
func (s *StereoEstimator) EstimateDepth(faceWidthPx float64) float64 {
	return EstimateDepth(faceWidthPx, s.Calibration())
}
