package main

import (
	"context"
	"errors"
	"time"

	"github.com/teslashibe/go-skipper/internal/config"
	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/accel"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/robot"
	"github.com/teslashibe/go-skipper/pkg/tracking"
	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
	"github.com/teslashibe/go-skipper/pkg/worldmodel"
)

// motorRate is the tick of the motor rate controller.
const motorRate = 50 * time.Millisecond

// closingDetector is a fallback backend that holds native resources.
type closingDetector interface {
	detection.FaceDetector
	Close() error
}

// Device constructors, replaced in tests.
var (
	newAccelerator = func(cfg accel.DNNConfig) (accel.Accelerator, error) {
		return accel.NewDNN(cfg)
	}
	newFaceDetector = func(cfg detection.YuNetConfig) (closingDetector, error) {
		yu, err := detection.NewYuNet(cfg)
		if err != nil {
			return nil, err
		}
		return yu, nil
	}
)

// rigParts is everything run needs to start and tear down.
type rigParts struct {
	rig      *tracking.Rig
	managers []*camera.Manager
	motors   *robot.RateController
	closers  []func() error
}

func (p *rigParts) close() {
	for _, c := range p.closers {
		if err := c(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

// build constructs the accelerator, cameras, fallback detectors, stereo
// estimator and motor path from cfg.
func build(cfg config.Rig, trackCfg tracking.Config) (_ *rigParts, err error) {
	parts := &rigParts{}

	layout := detection.SCRFDLayout(cfg.Model.InputWidth, cfg.Model.InputHeight)
	dev, err := newAccelerator(accel.DNNConfig{
		ModelPath:   cfg.Model.Path,
		InputWidth:  cfg.Model.InputWidth,
		InputHeight: cfg.Model.InputHeight,
		OutputNames: layout.OutputNames(),
	})
	if err != nil {
		return nil, err
	}
	log.Info("face model loaded", "path", cfg.Model.Path, "input", cfg.Model.InputWidth)

	// Until the rig owns dev, every failure releases what was built so far.
	defer func() {
		if err != nil {
			parts.close()
			dev.Close()
		}
	}()

	var bindings []tracking.CameraBinding
	for i, spec := range cfg.Cameras {
		camCfg := camera.DefaultConfig()
		camCfg.Width, camCfg.Height, camCfg.Framerate = spec.Width, spec.Height, spec.FPS

		src := camera.NewDeviceSource(spec.Device, camCfg)
		mgr := camera.NewManager(camCfg)
		mgr.OnConfigChange = src.Apply
		parts.managers = append(parts.managers, mgr)

		bindings = append(bindings, tracking.CameraBinding{
			ID:       i,
			Source:   src,
			Width:    spec.Width,
			Height:   spec.Height,
			Fallback: buildFallback(cfg.Fallback, spec, parts),
		})
	}

	stereo, err := worldmodel.NewStereoEstimator(worldmodel.Calibration{
		BaselineCm:       cfg.Stereo.BaselineCm,
		FocalLengthPx:    cfg.Stereo.FocalLengthPx,
		VerticalOffsetPx: cfg.Stereo.VerticalOffsetPx,
		AvgFaceWidthCm:   cfg.Stereo.AvgFaceWidthCm,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	axes, err := motorAxes(ctx, cfg.Motors)
	if err != nil {
		return nil, err
	}
	parts.motors = robot.NewRateController(axes, motorRate, cfg.Motors.AzimuthSpeed, cfg.Motors.AltitudeSpeed)
	if k, ok := axes.(*robot.KlipperController); ok {
		parts.closers = append(parts.closers, k.Disable)
	}

	limits := tracking.Limits{
		Azimuth:  tracking.AxisLimits{Min: cfg.Motors.AzimuthMin, Max: cfg.Motors.AzimuthMax},
		Altitude: tracking.AxisLimits{Min: cfg.Motors.AltitudeMin, Max: cfg.Motors.AltitudeMax},
	}
	if err = limits.Validate(); err != nil {
		return nil, err
	}

	parts.rig = tracking.NewRig(tracking.RigConfig{
		Tracking: trackCfg,
		Limits:   limits,
		Layout:   layout,
		Decoder:  detection.DefaultDecoderConfig(),
	}, dev, bindings, stereo, parts.motors)

	return parts, nil
}

// buildFallback loads a YuNet detector for one camera. A missing model
// disables the fallback for that camera only.
func buildFallback(spec config.FallbackSpec, cam config.CameraSpec, parts *rigParts) *detection.Fallback {
	if spec.Path == "" {
		return nil
	}
	yuCfg := detection.DefaultYuNetConfig()
	yuCfg.ModelPath = spec.Path
	yuCfg.InputWidth, yuCfg.InputHeight = cam.Width, cam.Height

	yu, err := newFaceDetector(yuCfg)
	if err != nil {
		if !errors.Is(err, accel.ErrNoModel) {
			log.Warn("fallback detector unavailable", "device", cam.Device, "error", err)
		} else {
			log.Info("fallback model not found, primary detector only", "path", spec.Path)
		}
		return nil
	}
	parts.closers = append(parts.closers, yu.Close)
	return detection.NewFallback(yu, detection.DefaultFallbackConfig())
}
