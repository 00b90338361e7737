package camera

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// DeviceSource captures from a V4L2/UVC device through OpenCV.
type DeviceSource struct {
	deviceID int
	config   Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	seq     uint64
}

// NewDeviceSource creates a capture source for the given device index.
func NewDeviceSource(deviceID int, cfg Config) *DeviceSource {
	return &DeviceSource{
		deviceID: deviceID,
		config:   cfg,
	}
}

// Open opens the device and applies the configured settings.
func (s *DeviceSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", s.deviceID, err)
	}

	s.capture = capture
	s.frame = gocv.NewMat()
	s.apply(s.config)
	return nil
}

// Apply updates capture settings on an open device. Used as the
// Manager's OnConfigChange callback.
func (s *DeviceSource) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = cfg
	if s.capture == nil {
		return nil
	}
	s.apply(cfg)
	return nil
}

func (s *DeviceSource) apply(cfg Config) {
	s.capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	s.capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	s.capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Exposure != 0 {
		s.capture.Set(gocv.VideoCaptureExposure, cfg.Exposure)
	}
	if cfg.Gain != 0 {
		s.capture.Set(gocv.VideoCaptureGain, cfg.Gain)
	}
	s.capture.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	if cfg.AutoFocus {
		s.capture.Set(gocv.VideoCaptureAutoFocus, 1)
	} else {
		s.capture.Set(gocv.VideoCaptureAutoFocus, 0)
	}
}

// Capture reads one frame and converts it to RGB.
func (s *DeviceSource) Capture() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return Frame{}, ErrCameraNotOpen
	}

	if ok := s.capture.Read(&s.frame); !ok {
		return Frame{}, fmt.Errorf("camera %d: read failed", s.deviceID)
	}
	if s.frame.Empty() {
		return Frame{}, ErrEmptyFrame
	}

	s.seq++
	f, err := FrameFromBGR(s.frame)
	if err != nil {
		return Frame{}, err
	}
	f.Seq = s.seq
	f.Time = time.Now()
	return f, nil
}

// Close releases the device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil
	}

	err := s.capture.Close()
	s.frame.Close()
	s.capture = nil
	return err
}

// FrameFromBGR converts an 8-bit BGR Mat to an RGB Frame.
func FrameFromBGR(bgr gocv.Mat) (Frame, error) {
	if bgr.Empty() {
		return Frame{}, ErrEmptyFrame
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)

	return Frame{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pix:    rgb.ToBytes(),
	}, nil
}

// ToMat wraps the frame's pixels in an RGB Mat. The caller closes it.
func (f Frame) ToMat() (gocv.Mat, error) {
	if f.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
}

// ToBGRMat returns a BGR copy of the frame, the layout OpenCV detectors
// expect. The caller closes it.
func (f Frame) ToBGRMat() (gocv.Mat, error) {
	rgb, err := f.ToMat()
	if err != nil {
		return rgb, err
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
	return bgr, nil
}
