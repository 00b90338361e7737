// Package accel runs the face detection network on a neural accelerator.
//
// The device is a single shared resource. Guarded serializes access so that
// several camera workers can interleave inference calls without ever driving
// the device concurrently.
package accel

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-skipper/pkg/camera"
)

// Sentinel errors for accelerator access.
var (
	// ErrClosed is returned when running inference on a released device.
	ErrClosed = errors.New("accel: device closed")

	// ErrNoModel is returned when the model file is missing or unreadable.
	ErrNoModel = errors.New("accel: model not found")

	// ErrEmptyInput is returned for frames without pixels.
	ErrEmptyInput = errors.New("accel: empty input frame")

	// ErrShapeMismatch is wrapped by every ShapeError.
	ErrShapeMismatch = errors.New("accel: output shape mismatch")
)

// Tensor is one dense float32 output of the network.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Len returns the number of elements implied by Shape.
func (t Tensor) Len() int {
	return ShapeLen(t.Shape)
}

// ShapeLen returns the product of dims, or 0 for an empty shape.
func ShapeLen(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Outputs maps output tensor names to their values for one inference.
type Outputs map[string]Tensor

// Accelerator executes the detection network. Run accepts frames of any
// size; implementations scale them to InputSize.
type Accelerator interface {
	// InputSize returns the network input resolution.
	InputSize() (width, height int)

	// OutputShapes reports the shape of every named output, as known at
	// model load time.
	OutputShapes() map[string][]int

	// Run executes one inference.
	Run(frame camera.Frame) (Outputs, error)

	// Close releases the device.
	Close() error
}

// ShapeError describes an output whose shape does not match the model layout.
type ShapeError struct {
	Tensor string
	Got    []int
	Want   int // expected element count
}

func (e *ShapeError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("accel: output %q missing", e.Tensor)
	}
	return fmt.Sprintf("accel: output %q has shape %v (%d elements), want %d elements",
		e.Tensor, e.Got, ShapeLen(e.Got), e.Want)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }
