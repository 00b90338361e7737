// Package worldmodel estimates where the tracked face is in the room from
// the cameras' face boxes.
package worldmodel

import (
	"fmt"
	"math"
)

// Calibration describes the stereo rig. It only changes through
// StereoEstimator.Recalibrate.
type Calibration struct {
	BaselineCm       float64 `json:"baseline_cm"`        // Distance between camera centers
	FocalLengthPx    float64 `json:"focal_length_px"`    // Shared focal length
	VerticalOffsetPx float64 `json:"vertical_offset_px"` // Y misalignment between cameras
	AvgFaceWidthCm   float64 `json:"avg_face_width_cm"`  // Typical adult face width
}

// DefaultCalibration returns nominal values for the 800x800 camera pair.
func DefaultCalibration() Calibration {
	return Calibration{
		BaselineCm:       10,
		FocalLengthPx:    800,
		VerticalOffsetPx: 0,
		AvgFaceWidthCm:   15,
	}
}

// Validate rejects calibrations that cannot produce a depth.
func (c Calibration) Validate() error {
	if c.BaselineCm <= 0 || c.FocalLengthPx <= 0 || c.AvgFaceWidthCm <= 0 {
		return fmt.Errorf("%w: baseline=%.1f focal=%.1f face=%.1f",
			ErrInvalidCalibration, c.BaselineCm, c.FocalLengthPx, c.AvgFaceWidthCm)
	}
	return nil
}

// DepthEstimate is a face position in cm relative to the rig center:
// +X right, +Y down, +Z away from the cameras.
type DepthEstimate struct {
	XCm float64 `json:"x_cm"`
	YCm float64 `json:"y_cm"`
	ZCm float64 `json:"z_cm"`
}

// Minimum face width in pixels for a size-based distance.
const minFaceWidthPx = 10

// defaultDepthCm is returned by EstimateDepth when the face is too small to
// measure.
const defaultDepthCm = 100.0

// EstimateDepth returns a single-camera distance in cm from face width in
// pixels. Faces narrower than 10px get a fixed 100cm guess.
func EstimateDepth(faceWidthPx float64, cal Calibration) float64 {
	if faceWidthPx < minFaceWidthPx {
		return defaultDepthCm
	}
	return cal.AvgFaceWidthCm * cal.FocalLengthPx / faceWidthPx
}

// DistanceCategory returns a human-readable distance category
func DistanceCategory(zCm float64) string {
	switch {
	case zCm <= 0:
		return "unknown"
	case zCm < 40:
		return "too close"
	case zCm < 80:
		return "good"
	case zCm < 150:
		return "far"
	default:
		return "very far"
	}
}

// FormatPosition renders an estimate like "120cm away, 5cm right, level".
func FormatPosition(d DepthEstimate) string {
	horiz := "centered"
	switch {
	case math.Abs(d.XCm) < 2:
	case d.XCm > 0:
		horiz = fmt.Sprintf("%.0fcm right", math.Abs(d.XCm))
	default:
		horiz = fmt.Sprintf("%.0fcm left", math.Abs(d.XCm))
	}

	vert := "level"
	switch {
	case math.Abs(d.YCm) < 2:
	case d.YCm > 0:
		vert = fmt.Sprintf("%.0fcm down", math.Abs(d.YCm))
	default:
		vert = fmt.Sprintf("%.0fcm up", math.Abs(d.YCm))
	}

	return fmt.Sprintf("%.0fcm away, %s, %s", d.ZCm, horiz, vert)
}
