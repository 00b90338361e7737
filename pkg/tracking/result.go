package tracking

import (
	"time"

	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

// TrackingResult is one camera's per-frame snapshot.
type TrackingResult struct {
	Camera      int              `json:"camera"`
	Seq         uint64           `json:"seq"`
	Time        time.Time        `json:"time"`
	HasTarget   bool             `json:"has_target"`
	Box         detection.Box    `json:"box"`
	Center      detection.Point  `json:"center"`
	InnerBox    detection.Rect   `json:"inner_box"`
	Source      detection.Source `json:"-"`
	SourceName  string           `json:"source,omitempty"`
	Zone        Zone             `json:"zone"`
	ErrorX      float64          `json:"error_x"`
	ErrorY      float64          `json:"error_y"`
	AzimuthDeg  float64          `json:"azimuth_deg"`
	AltitudeDeg float64          `json:"altitude_deg"`
	State       string           `json:"state"`
}

// Motors returns the commanded pose carried by the result.
func (r TrackingResult) Motors() MotorState {
	return MotorState{AzimuthDeg: r.AzimuthDeg, AltitudeDeg: r.AltitudeDeg}
}
