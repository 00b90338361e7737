package accel

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-skipper/pkg/camera"
)

func TestShapeLen(t *testing.T) {
	assert.Equal(t, 0, ShapeLen(nil))
	assert.Equal(t, 12800, ShapeLen([]int{80, 80, 2}))
	assert.Equal(t, 12800, ShapeLen([]int{1, 12800, 1}))
	assert.Equal(t, 4, Tensor{Shape: []int{2, 2}}.Len())
}

func TestShapeError(t *testing.T) {
	missing := &ShapeError{Tensor: "conv42", Want: 12800}
	assert.Contains(t, missing.Error(), "missing")

	wrong := &ShapeError{Tensor: "conv42", Got: []int{40, 40, 2}, Want: 12800}
	assert.Contains(t, wrong.Error(), "3200 elements")
}

func TestGuarded_SerializesCalls(t *testing.T) {
	mock := NewMock(640, 640, Outputs{"out": {Shape: []int{1}, Data: []float32{1}}})
	mock.Delay = 2 * time.Millisecond
	g := NewGuarded(mock)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := g.Run(camera.BlankFrame(8, 8))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mock.MaxConcurrent(), "device must never see overlapping calls")
	calls, failures := g.Stats()
	assert.Equal(t, uint64(40), calls)
	assert.Zero(t, failures)
}

func TestGuarded_CountsFailures(t *testing.T) {
	mock := NewMock(640, 640, nil)
	mock.SetError(errors.New("hailo timeout"))
	g := NewGuarded(mock)

	_, err := g.Run(camera.BlankFrame(8, 8))
	require.Error(t, err)

	_, failures := g.Stats()
	assert.Equal(t, uint64(1), failures)
}

func TestGuarded_CloseOnce(t *testing.T) {
	mock := NewMock(640, 640, nil)
	g := NewGuarded(mock)

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.True(t, mock.Closed())

	_, err := g.Run(camera.BlankFrame(8, 8))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewDNN_MissingModel(t *testing.T) {
	_, err := NewDNN(DNNConfig{
		ModelPath:   "/nonexistent/scrfd.onnx",
		InputWidth:  640,
		InputHeight: 640,
		OutputNames: []string{"score_8"},
	})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestShapeError_Unwrap(t *testing.T) {
	var err error = &ShapeError{Tensor: "conv43", Want: 51200}
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
