package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/accel"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
	"github.com/teslashibe/go-skipper/pkg/worldmodel"
)

// Rig lifecycle errors.
var (
	ErrAlreadyRunning = errors.New("tracking: rig already running")
	ErrNotRunning     = errors.New("tracking: rig not running")
	ErrStopTimeout    = errors.New("tracking: workers did not stop in time")
	ErrRigClosed      = errors.New("tracking: rig closed")
)

// CameraBinding is one camera of the rig.
type CameraBinding struct {
	ID       int
	Source   camera.Source
	Width    int
	Height   int
	Fallback *detection.Fallback // May be nil
}

// RigConfig holds rig-wide settings.
type RigConfig struct {
	Tracking   Config
	Limits     Limits
	Layout     detection.Layout
	Decoder    detection.DecoderConfig
	LeadCamera int // Camera whose pose drives the motors
}

// Rig runs one worker per camera against a shared accelerator and combines
// their tracks into a stereo estimate.
type Rig struct {
	config   RigConfig
	accel    *accel.Guarded
	cameras  []CameraBinding
	stereo   *worldmodel.StereoEstimator
	actuator Actuator

	mu        sync.Mutex
	workers   []*Worker
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	sessionID string
	startedAt time.Time
	initErrs  []error
	tuning    TuningParams
	closed    bool

	running atomic.Bool
}

// NewRig wraps dev in a Guarded accelerator shared by every camera.
// actuator and stereo may be nil.
func NewRig(cfg RigConfig, dev accel.Accelerator, cameras []CameraBinding, stereo *worldmodel.StereoEstimator, actuator Actuator) *Rig {
	g, ok := dev.(*accel.Guarded)
	if !ok {
		g = accel.NewGuarded(dev)
	}
	return &Rig{
		config:   cfg,
		accel:    g,
		cameras:  cameras,
		stereo:   stereo,
		actuator: actuator,
		tuning:   TuningFrom(cfg.Tracking),
	}
}

// Start launches one worker goroutine per camera.
func (r *Rig) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRigClosed
	}
	if r.running.Load() {
		return ErrAlreadyRunning
	}
	if err := r.config.Limits.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.sessionID = uuid.New().String()
	r.startedAt = time.Now()
	r.initErrs = nil
	r.workers = r.workers[:0]
	r.running.Store(true)

	tracking := r.tuning.Apply(r.config.Tracking)

	for _, cam := range r.cameras {
		var act Actuator
		if cam.ID == r.config.LeadCamera {
			act = r.actuator
		}
		w := NewWorker(WorkerConfig{
			Camera:      cam.ID,
			Source:      cam.Source,
			Accelerator: r.accel,
			Layout:      r.config.Layout,
			Decoder:     r.config.Decoder,
			Fallback:    cam.Fallback,
			Actuator:    act,
			Tracking:    tracking,
			Limits:      r.config.Limits,
			FrameWidth:  cam.Width,
			FrameHeight: cam.Height,
		})
		r.workers = append(r.workers, w)

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := w.Run(ctx, &r.running); err != nil {
				log.Error("camera worker exited", "camera", w.Camera(), "error", err)
				r.mu.Lock()
				r.initErrs = append(r.initErrs, err)
				r.mu.Unlock()
			}
		}()
	}

	log.Info("rig started", "session", r.sessionID, "cameras", len(r.cameras), "lead", r.config.LeadCamera)
	return nil
}

// Stop clears the running flag, waits up to timeout for the workers and
// then releases the cameras and the accelerator. On timeout it returns
// ErrStopTimeout at once and the release happens when the stuck workers
// return. A stopped rig cannot be started again.
func (r *Rig) Stop(timeout time.Duration) error {
	if !r.running.Swap(false) {
		return ErrNotRunning
	}

	r.mu.Lock()
	cancel := r.cancel
	r.closed = true
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.release()
	case <-time.After(timeout):
		// A stuck Capture or Run still holds its device lock, so the
		// handles are released once the last worker returns.
		log.Warn("rig stop timed out, devices released when workers exit", "timeout", timeout)
		go func() {
			<-done
			r.release()
		}()
		return fmt.Errorf("%w after %v", ErrStopTimeout, timeout)
	}
	return nil
}

// release closes the cameras and the accelerator. Workers must have exited.
func (r *Rig) release() {
	for _, cam := range r.cameras {
		if err := cam.Source.Close(); err != nil {
			log.Warn("camera close failed", "camera", cam.ID, "error", err)
		}
	}
	if err := r.accel.Close(); err != nil {
		log.Warn("accelerator close failed", "error", err)
	}
	log.Info("rig stopped", "session", r.sessionID)
}

// Running reports whether the rig is started.
func (r *Rig) Running() bool {
	return r.running.Load()
}

// Workers returns the current workers.
func (r *Rig) Workers() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Worker(nil), r.workers...)
}

// InitErrors returns errors from workers that failed to start.
func (r *Rig) InitErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.initErrs...)
}

// Latest returns the newest result of camera id.
func (r *Rig) Latest(id int) (TrackingResult, bool) {
	for _, w := range r.Workers() {
		if w.Camera() == id {
			return w.Latest()
		}
	}
	return TrackingResult{}, false
}

// Depth triangulates the face from the first two cameras' latest tracks.
func (r *Rig) Depth() (worldmodel.DepthEstimate, bool) {
	if r.stereo == nil {
		return worldmodel.DepthEstimate{}, false
	}
	workers := r.Workers()
	if len(workers) < 2 {
		return worldmodel.DepthEstimate{}, false
	}
	left, ok := workers[0].Latest()
	if !ok || !left.HasTarget {
		return worldmodel.DepthEstimate{}, false
	}
	right, ok := workers[1].Latest()
	if !ok || !right.HasTarget {
		return worldmodel.DepthEstimate{}, false
	}
	return r.stereo.Calculate(left.Box, right.Box)
}

// Stereo returns the rig's estimator, nil for single-camera rigs.
func (r *Rig) Stereo() *worldmodel.StereoEstimator {
	return r.stereo
}

// Tuning returns the active tuning parameters.
func (r *Rig) Tuning() TuningParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return TuningFrom(r.tuning.Apply(r.config.Tracking))
}

// SetTuning applies params to every worker from its next frame on.
func (r *Rig) SetTuning(params TuningParams) TuningParams {
	r.mu.Lock()
	merged := params.Apply(r.tuning.Apply(r.config.Tracking))
	r.tuning = TuningFrom(merged)
	workers := append([]*Worker(nil), r.workers...)
	r.mu.Unlock()

	for _, w := range workers {
		w.Tune(merged)
	}
	log.Info("tuning updated", "alpha", merged.SmoothingAlpha, "px_per_deg", merged.PixelsPerDegree,
		"deadband", merged.DeadbandRadius, "damping", merged.DampingRadius)
	return TuningFrom(merged)
}

// CameraStatus is one camera's view in a Status.
type CameraStatus struct {
	TrackingResult
	Stats WorkerStats `json:"stats"`
	Ready bool        `json:"ready"`
}

// DepthStatus is the stereo estimate in a Status.
type DepthStatus struct {
	worldmodel.DepthEstimate
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Status is the rig snapshot served to status consumers.
type Status struct {
	Session   string         `json:"session"`
	Running   bool           `json:"running"`
	Uptime    float64        `json:"uptime_s"`
	Cameras   []CameraStatus `json:"cameras"`
	Depth     *DepthStatus   `json:"depth,omitempty"`
	Inference uint64         `json:"inference_calls"`
	Failures  uint64         `json:"inference_failures"`
	Tuning    TuningParams   `json:"tuning"`
}

// Status collects the latest snapshot of every camera and the stereo
// estimate. It never blocks the workers.
func (r *Rig) Status() Status {
	r.mu.Lock()
	st := Status{
		Session: r.sessionID,
		Running: r.running.Load(),
		Tuning:  TuningFrom(r.tuning.Apply(r.config.Tracking)),
	}
	if !r.startedAt.IsZero() {
		st.Uptime = time.Since(r.startedAt).Seconds()
	}
	workers := append([]*Worker(nil), r.workers...)
	r.mu.Unlock()

	for _, w := range workers {
		res, ok := w.Latest()
		if !ok {
			res = TrackingResult{Camera: w.Camera(), Zone: ZoneNone, State: StateNoTrack.String()}
		}
		st.Cameras = append(st.Cameras, CameraStatus{TrackingResult: res, Stats: w.Stats(), Ready: ok})
	}

	if d, ok := r.Depth(); ok {
		st.Depth = &DepthStatus{
			DepthEstimate: d,
			Text:          worldmodel.FormatPosition(d),
			Category:      worldmodel.DistanceCategory(d.ZCm),
		}
	}

	st.Inference, st.Failures = r.accel.Stats()
	return st
}

// RunDisplay calls fn with a fresh Status every interval until ctx is done.
func (r *Rig) RunDisplay(ctx context.Context, interval time.Duration, fn func(Status)) {
	if interval <= 0 {
		interval = r.config.Tracking.DisplayInterval
	}
	if interval <= 0 {
		interval = DefaultConfig().DisplayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(r.Status())
		}
	}
}
