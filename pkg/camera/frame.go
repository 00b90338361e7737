package camera

import (
	"errors"
	"time"
)

// Sentinel errors for capture.
var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera: not open")

	// ErrEmptyFrame is returned when the device produced no pixels.
	ErrEmptyFrame = errors.New("camera: empty frame")
)

// Frame is one captured image in packed RGB24 order.
// Frames are immutable once returned by a Source.
type Frame struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*3, RGB
	Seq    uint64
	Time   time.Time
}

// Empty reports whether the frame carries no usable pixels.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height*3
}

// Center returns the geometric center in pixel coordinates.
func (f Frame) Center() (x, y float64) {
	return float64(f.Width) / 2, float64(f.Height) / 2
}

// Source captures frames from one device. Capture blocks until a frame is
// available or the device faults.
type Source interface {
	Open() error
	Capture() (Frame, error)
	Close() error
}
