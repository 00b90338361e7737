package accel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-skipper/pkg/camera"
)

// Mock is a scripted Accelerator for tests. It returns Outputs (or Err) on
// every call and records how many calls overlapped, which must never exceed
// one behind a Guarded.
type Mock struct {
	Width, Height int
	Shapes        map[string][]int
	Delay         time.Duration

	mu      sync.Mutex
	outputs Outputs
	err     error
	closed  bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int64
}

// NewMock creates a mock returning out for every call.
func NewMock(width, height int, out Outputs) *Mock {
	shapes := make(map[string][]int, len(out))
	for name, t := range out {
		shapes[name] = t.Shape
	}
	return &Mock{Width: width, Height: height, Shapes: shapes, outputs: out}
}

// SetOutputs replaces the canned outputs.
func (m *Mock) SetOutputs(out Outputs) {
	m.mu.Lock()
	m.outputs = out
	m.mu.Unlock()
}

// SetError makes subsequent Runs fail with err (nil clears it).
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Mock) InputSize() (int, int) { return m.Width, m.Height }

func (m *Mock) OutputShapes() map[string][]int { return m.Shapes }

func (m *Mock) Run(camera.Frame) (Outputs, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		max := m.maxInFlight.Load()
		if n <= max || m.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	m.calls.Add(1)

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.outputs, m.err
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// MaxConcurrent returns the highest number of overlapping Run calls seen.
func (m *Mock) MaxConcurrent() int { return int(m.maxInFlight.Load()) }

// Calls returns the number of Run calls.
func (m *Mock) Calls() int64 { return m.calls.Load() }

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Accelerator = (*Mock)(nil)
