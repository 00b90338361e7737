package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-skipper/pkg/accel"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/debug"
	"gocv.io/x/gocv"
)

// YuNetConfig configures the OpenCV YuNet face detector.
type YuNetConfig struct {
	ModelPath   string  // Path to ONNX model
	ScoreThresh float64 // Detector-side score threshold
	NMSThresh   float64
	TopK        int
	InputWidth  int // Initial input size, updated per frame
	InputHeight int
}

// DefaultYuNetConfig returns the fallback detector settings.
func DefaultYuNetConfig() YuNetConfig {
	return YuNetConfig{
		ModelPath:   "/usr/share/opencv4/face_detection_yunet_2023mar.onnx",
		ScoreThresh: 0.9,
		NMSThresh:   0.3,
		TopK:        1,
		InputWidth:  800,
		InputHeight: 800,
	}
}

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   YuNetConfig
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg YuNetConfig) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", accel.ErrNoModel, cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ScoreThresh),
		float32(cfg.NMSThresh),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in an RGB frame and returns pixel boxes.
func (d *YuNetDetector) Detect(frame camera.Frame) ([]RawFace, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	img, err := frame.ToBGRMat()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	var found []RawFace
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		found = append(found, RawFace{
			Box: Box{
				X: float64(faces.GetFloatAt(r, 0)),
				Y: float64(faces.GetFloatAt(r, 1)),
				W: float64(faces.GetFloatAt(r, 2)),
				H: float64(faces.GetFloatAt(r, 3)),
			},
			Confidence: float64(faces.GetFloatAt(r, 14)),
		})
	}

	if len(found) > 0 {
		debug.TrackLog("yunet found faces", "count", len(found))
	}

	return found, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

var _ FaceDetector = (*YuNetDetector)(nil)
