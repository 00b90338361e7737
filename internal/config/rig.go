// Package config provides configuration helpers for go-skipper commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default rig configuration.
const (
	DefaultMotorURL   = "http://localhost:7125"
	DefaultWebPort    = "5000"
	DefaultModelPath  = "/usr/share/hailo-models/scrfd_2.5g.onnx"
	DefaultYuNetModel = "/usr/share/opencv4/face_detection_yunet_2023mar.onnx"
)

// Rig describes one physical robot head: its cameras, detector models,
// motor limits and stereo calibration.
type Rig struct {
	Cameras  []CameraSpec `yaml:"cameras" validate:"required,min=1,max=2,dive"`
	Model    ModelSpec    `yaml:"model"`
	Fallback FallbackSpec `yaml:"fallback"`
	Motors   MotorSpec    `yaml:"motors"`
	Stereo   StereoSpec   `yaml:"stereo"`
	WebPort  string       `yaml:"web_port" validate:"required,numeric"`
	LogLevel string       `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFile  string       `yaml:"log_file"`
}

// CameraSpec identifies a capture device and its frame size.
type CameraSpec struct {
	Device int `yaml:"device" validate:"gte=0"`
	Width  int `yaml:"width" validate:"required,gt=0"`
	Height int `yaml:"height" validate:"required,gt=0"`
	FPS    int `yaml:"fps" validate:"required,gt=0,lte=120"`
}

// ModelSpec points at the primary SCRFD face model.
type ModelSpec struct {
	Path        string `yaml:"path" validate:"required"`
	InputWidth  int    `yaml:"input_width" validate:"required,gt=0"`
	InputHeight int    `yaml:"input_height" validate:"required,gt=0"`
}

// FallbackSpec configures the CPU detector used when the primary finds nothing.
// An empty path disables it.
type FallbackSpec struct {
	Path string `yaml:"path"`
}

// MotorSpec holds axis limits in degrees and the transport endpoint.
// AltitudeMin may be greater than AltitudeMax on rigs with inverted tilt.
type MotorSpec struct {
	URL           string  `yaml:"url" validate:"required,url"`
	AzimuthMin    float64 `yaml:"azimuth_min"`
	AzimuthMax    float64 `yaml:"azimuth_max" validate:"nefield=AzimuthMin"`
	AltitudeMin   float64 `yaml:"altitude_min"`
	AltitudeMax   float64 `yaml:"altitude_max" validate:"nefield=AltitudeMin"`
	AzimuthSpeed  float64 `yaml:"azimuth_speed" validate:"gt=0"`
	AltitudeSpeed float64 `yaml:"altitude_speed" validate:"gt=0"`
	Disabled      bool    `yaml:"disabled"`
}

// StereoSpec is the initial stereo calibration.
type StereoSpec struct {
	BaselineCm       float64 `yaml:"baseline_cm" validate:"gt=0"`
	FocalLengthPx    float64 `yaml:"focal_length_px" validate:"gt=0"`
	VerticalOffsetPx float64 `yaml:"vertical_offset_px"`
	AvgFaceWidthCm   float64 `yaml:"avg_face_width_cm" validate:"gt=0"`
}

// DefaultRig returns the dual-camera rig the tracker was tuned on:
// two 800x800 cameras, SCRFD at 640x640, ±13° pan and inverted ±4° tilt.
func DefaultRig() Rig {
	return Rig{
		Cameras: []CameraSpec{
			{Device: 0, Width: 800, Height: 800, FPS: 15},
			{Device: 1, Width: 800, Height: 800, FPS: 15},
		},
		Model: ModelSpec{
			Path:        DefaultModelPath,
			InputWidth:  640,
			InputHeight: 640,
		},
		Fallback: FallbackSpec{Path: DefaultYuNetModel},
		Motors: MotorSpec{
			URL:           DefaultMotorURL,
			AzimuthMin:    -13,
			AzimuthMax:    13,
			AltitudeMin:   4,  // inverted: positive = down
			AltitudeMax:   -4, // inverted: negative = up
			AzimuthSpeed:  30,
			AltitudeSpeed: 3,
		},
		Stereo: StereoSpec{
			BaselineCm:     10,
			FocalLengthPx:  800,
			AvgFaceWidthCm: 15,
		},
		WebPort:  DefaultWebPort,
		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks struct constraints.
func (r *Rig) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid rig config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid rig config: %w", err)
	}
	return nil
}

// Load builds a Rig from defaults, an optional YAML file and environment
// overrides, then validates it. An empty path skips the file.
func Load(path string) (Rig, error) {
	rig := DefaultRig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Rig{}, fmt.Errorf("read rig config: %w", err)
		}
		if err := yaml.Unmarshal(data, &rig); err != nil {
			return Rig{}, fmt.Errorf("parse rig config %s: %w", path, err)
		}
	}

	applyEnv(&rig)

	if err := rig.Validate(); err != nil {
		return Rig{}, err
	}
	return rig, nil
}

// LoadDotEnv loads a .env file if present. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func applyEnv(r *Rig) {
	if v := os.Getenv("MOTOR_URL"); v != "" {
		r.Motors.URL = v
	}
	if v := os.Getenv("MOTORS_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			r.Motors.Disabled = b
		}
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		r.Model.Path = v
	}
	if v, ok := os.LookupEnv("YUNET_MODEL"); ok {
		r.Fallback.Path = v
	}
	if v := os.Getenv("WEB_PORT"); v != "" {
		r.WebPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		r.LogLevel = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		r.LogFile = v
	}
	if v := os.Getenv("STEREO_FOCAL_PX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.Stereo.FocalLengthPx = f
		}
	}
}
