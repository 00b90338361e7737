package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/accel"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/debug"
	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
)

var (
	// ErrWorkerInit wraps failures that stop a worker before its first frame.
	ErrWorkerInit = errors.New("tracking: worker init failed")

	// ErrFrameSize is returned when the camera delivers frames of a different
	// size than configured, e.g. a UVC driver that ignored the requested mode.
	ErrFrameSize = errors.New("tracking: frame size mismatch")
)

// Actuator receives head targets. Implementations must not block.
type Actuator interface {
	MoveTo(azimuthDeg, altitudeDeg float64)
}

// WorkerConfig wires one camera into the pipeline.
type WorkerConfig struct {
	Camera      int
	Source      camera.Source
	Accelerator accel.Accelerator // Usually the rig's shared *accel.Guarded
	Layout      detection.Layout
	Decoder     detection.DecoderConfig
	Fallback    *detection.Fallback // May be nil
	Actuator    Actuator            // May be nil
	Tracking    Config
	Limits      Limits
	FrameWidth  int
	FrameHeight int
}

// Worker runs one camera's capture → detect → track → control loop.
type Worker struct {
	cfg WorkerConfig
	id  string

	latest  atomic.Pointer[TrackingResult]
	updates chan TrackingResult
	tuning  chan Config

	frames    atomic.Uint64
	detected  atomic.Uint64
	fallbacks atomic.Uint64

	faults *log.Limited
}

// NewWorker creates a worker. Nothing is opened until Run.
func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		cfg:     cfg,
		id:      uuid.New().String(),
		updates: make(chan TrackingResult, 1),
		tuning:  make(chan Config, 1),
		faults:  log.NewLimited(log.With("camera", cfg.Camera), cfg.Tracking.FaultLogInterval),
	}
}

// ID returns the worker's session ID.
func (w *Worker) ID() string { return w.id }

// Camera returns the camera index.
func (w *Worker) Camera() int { return w.cfg.Camera }

// Latest returns a copy of the most recent result.
func (w *Worker) Latest() (TrackingResult, bool) {
	p := w.latest.Load()
	if p == nil {
		return TrackingResult{}, false
	}
	return *p, true
}

// Updates delivers the newest result. Stale results are replaced, never
// queued.
func (w *Worker) Updates() <-chan TrackingResult {
	return w.updates
}

// WorkerStats counts processed frames.
type WorkerStats struct {
	Frames    uint64 `json:"frames"`
	Detected  uint64 `json:"detected"`
	Fallbacks uint64 `json:"fallbacks"`
}

// Stats returns frame counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Frames:    w.frames.Load(),
		Detected:  w.detected.Load(),
		Fallbacks: w.fallbacks.Load(),
	}
}

// Tune schedules new parameters for the next frame.
func (w *Worker) Tune(cfg Config) {
	select {
	case <-w.tuning:
	default:
	}
	select {
	case w.tuning <- cfg:
	default:
	}
}

// Run opens the camera and processes frames until ctx is done or running
// is cleared. The session is created here and discarded on return.
func (w *Worker) Run(ctx context.Context, running *atomic.Bool) error {
	cfg := w.cfg
	logger := log.With("camera", cfg.Camera, "session", w.id)

	if err := cfg.Layout.Validate(cfg.Accelerator.OutputShapes()); err != nil {
		return fmt.Errorf("%w: camera %d: %w", ErrWorkerInit, cfg.Camera, err)
	}
	if err := cfg.Source.Open(); err != nil {
		return fmt.Errorf("%w: camera %d: %w", ErrWorkerInit, cfg.Camera, err)
	}

	decCfg := cfg.Decoder
	decCfg.CameraWidth = cfg.FrameWidth
	decCfg.CameraHeight = cfg.FrameHeight
	decoder := detection.NewDecoder(cfg.Layout, decCfg)
	session := NewSession(cfg.Camera, cfg.Tracking, cfg.Limits, cfg.FrameWidth, cfg.FrameHeight)

	logger.Info("camera worker started",
		"frame", fmt.Sprintf("%dx%d", cfg.FrameWidth, cfg.FrameHeight),
		"fallback", cfg.Fallback.Available())
	defer logger.Info("camera worker stopped", "frames", w.frames.Load())

	var seq uint64
	sized := false // first frame checked against FrameWidth/FrameHeight
	for running.Load() {
		select {
		case <-ctx.Done():
			return nil
		case tuned := <-w.tuning:
			session.Apply(tuned)
			logger.Info("tracking retuned", "alpha", tuned.SmoothingAlpha, "px_per_deg", tuned.PixelsPerDegree)
		default:
		}

		frame, err := cfg.Source.Capture()
		if err != nil {
			w.faults.Warn("capture failed", "error", err)
			seq++
			w.publish(session.Step(nil, seq, time.Now()))
			if !sleepCtx(ctx, cfg.Tracking.CaptureBackoff) {
				return nil
			}
			continue
		}
		if !sized {
			if frame.Width != cfg.FrameWidth || frame.Height != cfg.FrameHeight {
				return fmt.Errorf("%w: camera %d: %w: got %dx%d, configured %dx%d", ErrWorkerInit, cfg.Camera,
					ErrFrameSize, frame.Width, frame.Height, cfg.FrameWidth, cfg.FrameHeight)
			}
			sized = true
		}
		seq++
		if frame.Seq == 0 {
			frame.Seq = seq
		}
		if frame.Time.IsZero() {
			frame.Time = time.Now()
		}

		cands := w.detect(decoder, frame)
		res := session.Step(cands, frame.Seq, frame.Time)

		w.frames.Add(1)
		if res.HasTarget && cfg.Actuator != nil {
			cfg.Actuator.MoveTo(res.AzimuthDeg, res.AltitudeDeg)
		}
		w.publish(res)

		debug.TrackLog("frame processed",
			"camera", cfg.Camera, "seq", res.Seq, "candidates", len(cands),
			"state", res.State, "zone", res.Zone,
			"az", res.AzimuthDeg, "alt", res.AltitudeDeg)
	}
	return nil
}

// detect runs the primary network and, when it finds nothing, the fallback.
func (w *Worker) detect(decoder *detection.Decoder, frame camera.Frame) []detection.Candidate {
	var cands []detection.Candidate

	out, err := w.cfg.Accelerator.Run(frame)
	if err != nil {
		w.faults.Error("inference failed", "error", err)
	} else {
		cands = decoder.Decode(out)
	}
	if len(cands) > 0 {
		w.detected.Add(1)
		return cands
	}

	if !w.cfg.Fallback.Available() {
		return nil
	}
	fb, err := w.cfg.Fallback.Detect(frame)
	if err != nil {
		w.faults.Warn("fallback detection failed", "error", err)
		return nil
	}
	if len(fb) > 0 {
		w.detected.Add(1)
		w.fallbacks.Add(1)
	}
	return fb
}

func (w *Worker) publish(res TrackingResult) {
	snapshot := res
	w.latest.Store(&snapshot)

	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- res:
	default:
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
