package tracking

import (
	"time"

	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

// Session is the per-camera tracking pipeline after detection: candidate
// selection, track smoothing and motion control. One worker owns it.
type Session struct {
	camera     int
	config     Config
	tracker    *FaceTracker
	controller *MotionController
}

// NewSession creates a session for camera with the head at home.
func NewSession(camera int, config Config, limits Limits, frameW, frameH int) *Session {
	s := &Session{
		camera:     camera,
		config:     config,
		tracker:    NewFaceTracker(config),
		controller: NewMotionController(config, limits, frameW, frameH),
	}
	s.controller.Home()
	return s
}

// Step processes one frame's candidates.
func (s *Session) Step(cands []detection.Candidate, seq uint64, at time.Time) TrackingResult {
	var picked *detection.Candidate
	if c, ok := detection.Select(cands, s.tracker.LastBox(), s.tracker.LostTrackFrames(), s.config.Selector); ok {
		picked = &c
	}

	res := TrackingResult{
		Camera: s.camera,
		Seq:    seq,
		Time:   at,
		Zone:   ZoneNone,
	}

	box, ok := s.tracker.Update(picked)
	if ok {
		corr := s.controller.Update(box)
		res.HasTarget = true
		res.Box = box
		res.Center = corr.Center
		res.InnerBox = corr.InnerBox
		res.Zone = corr.Zone
		res.ErrorX = corr.ErrorX
		res.ErrorY = corr.ErrorY
		if picked != nil {
			res.Source = picked.Source
			res.SourceName = picked.Source.String()
		}
	}

	motors := s.controller.State()
	res.AzimuthDeg = motors.AzimuthDeg
	res.AltitudeDeg = motors.AltitudeDeg
	res.State = s.tracker.State().State.String()
	return res
}

// Reset drops the track and homes the head.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.controller.Home()
}

// Apply swaps tuning parameters in place. The track and pose are kept.
func (s *Session) Apply(config Config) {
	s.config = config
	s.tracker.SetConfig(config)
	s.controller.SetConfig(config)
}

// Tracker exposes the session's tracker for inspection.
func (s *Session) Tracker() *FaceTracker { return s.tracker }

// Controller exposes the session's motion controller for inspection.
func (s *Session) Controller() *MotionController { return s.controller }
