package tracking

import (
	"github.com/teslashibe/go-skipper/pkg/debug"
	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

// State is the phase of a face track.
type State int

const (
	// StateNoTrack means there is nothing to follow.
	StateNoTrack State = iota
	// StateHeld means the track was confirmed by the latest frame.
	StateHeld
	// StateCoasting means recent frames were empty and the cached box is
	// being reported.
	StateCoasting
	// StateDriftPending means a detection jumped far from the track and is
	// being blended in until it is either confirmed or abandoned.
	StateDriftPending
)

func (s State) String() string {
	switch s {
	case StateHeld:
		return "held"
	case StateCoasting:
		return "coasting"
	case StateDriftPending:
		return "drift_pending"
	default:
		return "no_track"
	}
}

// TrackState is a copy of the tracker's internal state.
type TrackState struct {
	LastBox                *detection.Box
	FramesWithoutDetection int
	LostTrackFrames        int
	State                  State
}

// FaceTracker smooths the selected face box across frames with hysteresis.
// It is owned by one worker and is not safe for concurrent use.
type FaceTracker struct {
	config Config

	lastBox                *detection.Box
	framesWithoutDetection int
	lostTrackFrames        int
	state                  State
}

// NewFaceTracker creates a tracker in the no-track state.
func NewFaceTracker(config Config) *FaceTracker {
	return &FaceTracker{config: config}
}

// Update feeds one frame's selected candidate (nil for none) and returns
// the box to act on, if any.
func (t *FaceTracker) Update(cand *detection.Candidate) (detection.Box, bool) {
	if cand == nil {
		return t.miss()
	}

	box := cand.Box
	t.framesWithoutDetection = 0

	if t.lastBox == nil {
		t.adopt(box)
		t.lostTrackFrames = 0
		t.state = StateHeld
		return box, true
	}

	prev := *t.lastBox
	iou := detection.IoU(box, prev)
	dist := detection.CenterDistance(box, prev)

	switch {
	case t.lostTrackFrames > t.config.ReacquireAfter:
		// Long gap: trust whatever is there now.
		t.adopt(detection.Smooth(box, prev, t.config.SmoothingAlpha))
		t.lostTrackFrames = 0
		t.state = StateHeld
		debug.TrackLog("track reacquired", "iou", iou, "dist", dist)

	case iou < t.config.DriftIoU && dist > t.config.DriftDistance:
		if t.lostTrackFrames < t.config.DriftConfirmation {
			t.adopt(detection.Smooth(box, prev, t.config.SmoothingAlpha))
			t.lostTrackFrames++
			t.state = StateDriftPending
			debug.TrackLog("track drifting", "iou", iou, "dist", dist, "lost", t.lostTrackFrames)
		} else {
			t.adopt(box)
			t.lostTrackFrames = 0
			t.state = StateHeld
			debug.TrackLog("track jumped", "iou", iou, "dist", dist)
		}

	default:
		t.adopt(detection.Smooth(box, prev, t.config.SmoothingAlpha))
		t.lostTrackFrames = 0
		t.state = StateHeld
	}

	return *t.lastBox, true
}

func (t *FaceTracker) miss() (detection.Box, bool) {
	t.framesWithoutDetection++
	t.lostTrackFrames++

	if t.framesWithoutDetection <= t.config.MaxMissedFrames && t.lastBox != nil {
		t.state = StateCoasting
		return *t.lastBox, true
	}

	if t.lastBox != nil {
		debug.TrackLog("track lost", "missed", t.framesWithoutDetection)
	}
	t.lastBox = nil
	t.state = StateNoTrack
	return detection.Box{}, false
}

func (t *FaceTracker) adopt(b detection.Box) {
	t.lastBox = &b
}

// LastBox returns the current track box, nil when there is no track.
func (t *FaceTracker) LastBox() *detection.Box {
	if t.lastBox == nil {
		return nil
	}
	b := *t.lastBox
	return &b
}

// LostTrackFrames returns the lost-frame counter used by candidate scoring.
func (t *FaceTracker) LostTrackFrames() int {
	return t.lostTrackFrames
}

// State returns a copy of the tracker state.
func (t *FaceTracker) State() TrackState {
	return TrackState{
		LastBox:                t.LastBox(),
		FramesWithoutDetection: t.framesWithoutDetection,
		LostTrackFrames:        t.lostTrackFrames,
		State:                  t.state,
	}
}

// Reset drops the track.
func (t *FaceTracker) Reset() {
	t.lastBox = nil
	t.framesWithoutDetection = 0
	t.lostTrackFrames = 0
	t.state = StateNoTrack
}

// SetConfig swaps thresholds without touching the track.
func (t *FaceTracker) SetConfig(config Config) {
	t.config = config
}
