package camera

import (
	"errors"
	"sync"
	"time"
)

// ErrNoMoreFrames is returned by ScriptedSource once its script is exhausted
// and looping is off.
var ErrNoMoreFrames = errors.New("camera: no more frames")

// ScriptedSource replays a fixed sequence of frames and errors. It stands in
// for hardware in tests and in the offline replay tool.
type ScriptedSource struct {
	mu      sync.Mutex
	steps   []ScriptStep
	index   int
	loop    bool
	open    bool
	openErr error
	seq     uint64
	delay   time.Duration
}

// ScriptStep is one Capture result.
type ScriptStep struct {
	Frame Frame
	Err   error
}

// NewScriptedSource creates a source over steps. With loop set the script
// restarts from the beginning instead of returning ErrNoMoreFrames.
func NewScriptedSource(steps []ScriptStep, loop bool) *ScriptedSource {
	return &ScriptedSource{steps: steps, loop: loop}
}

// BlankFrame returns a black RGB frame of the given size.
func BlankFrame(width, height int) Frame {
	return Frame{Width: width, Height: height, Pix: make([]byte, width*height*3)}
}

// FailOpen makes the next Open return err.
func (s *ScriptedSource) FailOpen(err error) {
	s.mu.Lock()
	s.openErr = err
	s.mu.Unlock()
}

// SetDelay makes each Capture sleep first, approximating a frame rate.
func (s *ScriptedSource) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *ScriptedSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.open = true
	s.index = 0
	return nil
}

func (s *ScriptedSource) Capture() (Frame, error) {
	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Frame{}, ErrCameraNotOpen
	}
	if s.index >= len(s.steps) {
		if !s.loop || len(s.steps) == 0 {
			return Frame{}, ErrNoMoreFrames
		}
		s.index = 0
	}

	step := s.steps[s.index]
	s.index++
	if step.Err != nil {
		return Frame{}, step.Err
	}

	s.seq++
	f := step.Frame
	f.Seq = s.seq
	f.Time = time.Now()
	return f, nil
}

func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// IsOpen reports whether Open succeeded and Close has not been called.
func (s *ScriptedSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
