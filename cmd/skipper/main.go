// Skipper - dual-camera face tracking on a pan/tilt head
// Runs SCRFD on both cameras, drives Klipper steppers toward the lead
// camera's face and serves status, stereo depth and calibration over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-skipper/internal/config"
	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/debug"
	"github.com/teslashibe/go-skipper/pkg/robot"
	"github.com/teslashibe/go-skipper/pkg/tracking"
	"github.com/teslashibe/go-skipper/pkg/web"
)

type options struct {
	configPath    string
	debug         bool
	debugTracking bool
	preset        string
	noFallback    bool
}

func main() {
	opts := parseFlags()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	rigCfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if opts.debug || opts.debugTracking {
		rigCfg.LogLevel = "debug"
	}
	if opts.noFallback {
		rigCfg.Fallback.Path = ""
	}

	log.InitWithOptions(log.Options{Level: rigCfg.LogLevel, File: rigCfg.LogFile})
	debug.Enabled = opts.debug
	debug.Tracking = opts.debugTracking

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, rigCfg, opts); err != nil {
		log.Error("skipper exited", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", os.Getenv("SKIPPER_CONFIG"), "Rig config YAML (optional)")
	flag.BoolVar(&o.debug, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&o.debugTracking, "debug-tracking", false, "Log every detection and tracker transition")
	flag.StringVar(&o.preset, "preset", "default", "Tracking preset: default, smooth, aggressive")
	flag.BoolVar(&o.noFallback, "no-fallback", false, "Disable the YuNet fallback detector")
	flag.Parse()
	return o
}

// run wires the rig, starts it and blocks until ctx is cancelled.
func run(ctx context.Context, cfg config.Rig, opts options) error {
	trackCfg, err := trackingPreset(opts.preset)
	if err != nil {
		return err
	}

	parts, err := build(cfg, trackCfg)
	if err != nil {
		return err
	}
	defer parts.close()

	if parts.motors != nil {
		go parts.motors.Run()
		defer func() {
			parts.motors.Home()
			time.Sleep(2 * motorRate)
			parts.motors.Stop()
		}()
	}

	if err := parts.rig.Start(ctx); err != nil {
		return fmt.Errorf("start rig: %w", err)
	}
	for _, e := range parts.rig.InitErrors() {
		log.Warn("camera unavailable", "error", e)
	}

	server := web.NewServer(cfg.WebPort, parts.rig, parts.managers)
	go parts.rig.RunDisplay(ctx, trackCfg.DisplayInterval, server.Publish)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error("status server failed", "error", err)
		}
	}

	if err := parts.rig.Stop(trackCfg.StopTimeout); err != nil && !errors.Is(err, tracking.ErrNotRunning) {
		return err
	}
	return nil
}

func trackingPreset(name string) (tracking.Config, error) {
	switch name {
	case "", "default":
		return tracking.DefaultConfig(), nil
	case "smooth":
		return tracking.SmoothConfig(), nil
	case "aggressive":
		return tracking.AggressiveConfig(), nil
	}
	return tracking.Config{}, fmt.Errorf("unknown tracking preset %q", name)
}

// motorAxes picks the transport for the rate controller.
func motorAxes(ctx context.Context, m config.MotorSpec) (robot.AxisController, error) {
	if m.Disabled {
		log.Info("motors disabled, commands are logged only")
		return robot.LogAxes{}, nil
	}

	k := robot.NewKlipperController(m.URL, robot.Limits{
		AzimuthMin:  m.AzimuthMin,
		AzimuthMax:  m.AzimuthMax,
		AltitudeMin: m.AltitudeMin,
		AltitudeMax: m.AltitudeMax,
	})
	if err := k.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize motors at %s: %w", m.URL, err)
	}
	log.Info("motors ready", "url", m.URL)
	return k, nil
}
