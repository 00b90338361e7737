package accel

import (
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-skipper/pkg/camera"
)

// Guarded wraps a device with a mutex held only for the duration of one
// call. It is the only handle workers share.
type Guarded struct {
	mu     sync.Mutex
	dev    Accelerator
	closed bool

	calls    atomic.Uint64
	failures atomic.Uint64
}

// NewGuarded wraps dev.
func NewGuarded(dev Accelerator) *Guarded {
	return &Guarded{dev: dev}
}

// InputSize returns the device input resolution.
func (g *Guarded) InputSize() (int, int) {
	return g.dev.InputSize()
}

// OutputShapes returns the device output shapes.
func (g *Guarded) OutputShapes() map[string][]int {
	return g.dev.OutputShapes()
}

// Run executes one inference while holding the device lock. There is no
// timeout: a stuck device call stalls the calling worker.
func (g *Guarded) Run(frame camera.Frame) (Outputs, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrClosed
	}

	g.calls.Add(1)
	out, err := g.dev.Run(frame)
	if err != nil {
		g.failures.Add(1)
	}
	return out, err
}

// Close releases the device once. Later Runs return ErrClosed.
func (g *Guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	return g.dev.Close()
}

// Stats returns total and failed inference counts.
func (g *Guarded) Stats() (calls, failures uint64) {
	return g.calls.Load(), g.failures.Load()
}

var _ Accelerator = (*Guarded)(nil)
