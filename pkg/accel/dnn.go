package accel

import (
	"fmt"
	"image"
	"os"

	"github.com/teslashibe/go-skipper/pkg/camera"
	"gocv.io/x/gocv"
)

// DNNConfig configures the OpenCV DNN backend.
type DNNConfig struct {
	ModelPath   string   // Path to ONNX model
	InputWidth  int      // Network input width
	InputHeight int      // Network input height
	OutputNames []string // Output layers to fetch
	UseCUDA     bool
}

// DNN runs an ONNX model through OpenCV's DNN module. It stands in for a
// dedicated accelerator on development machines and CPU-only rigs.
type DNN struct {
	net    gocv.Net
	config DNNConfig
	shapes map[string][]int
}

// NewDNN loads the model and probes it once with a blank frame to record
// output shapes.
func NewDNN(cfg DNNConfig) (*DNN, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoModel, cfg.ModelPath)
	}
	if len(cfg.OutputNames) == 0 {
		return nil, fmt.Errorf("accel: no output names configured")
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", cfg.ModelPath)
	}

	if cfg.UseCUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	d := &DNN{net: net, config: cfg}

	probe, err := d.Run(camera.BlankFrame(cfg.InputWidth, cfg.InputHeight))
	if err != nil {
		net.Close()
		return nil, fmt.Errorf("probe model: %w", err)
	}
	d.shapes = make(map[string][]int, len(probe))
	for name, t := range probe {
		d.shapes[name] = t.Shape
	}

	return d, nil
}

// InputSize returns the network input resolution.
func (d *DNN) InputSize() (int, int) {
	return d.config.InputWidth, d.config.InputHeight
}

// OutputShapes returns the shapes recorded by the load-time probe.
func (d *DNN) OutputShapes() map[string][]int {
	out := make(map[string][]int, len(d.shapes))
	for k, v := range d.shapes {
		out[k] = append([]int(nil), v...)
	}
	return out
}

// Run resizes the frame into a normalized blob and fetches every
// configured output. Callers serialize through Guarded.
func (d *DNN) Run(frame camera.Frame) (Outputs, error) {
	if frame.Empty() {
		return nil, ErrEmptyInput
	}

	img, err := frame.ToMat()
	if err != nil {
		return nil, fmt.Errorf("wrap frame: %w", err)
	}
	defer img.Close()

	// SCRFD normalization: (px - 127.5) / 128, RGB order.
	blob := gocv.BlobFromImage(img, 1.0/128.0,
		image.Pt(d.config.InputWidth, d.config.InputHeight),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	mats := d.net.ForwardLayers(d.config.OutputNames)
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	if len(mats) != len(d.config.OutputNames) {
		return nil, fmt.Errorf("accel: got %d outputs, want %d", len(mats), len(d.config.OutputNames))
	}

	out := make(Outputs, len(mats))
	for i, m := range mats {
		data, err := m.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("read output %s: %w", d.config.OutputNames[i], err)
		}
		out[d.config.OutputNames[i]] = Tensor{
			Shape: m.Size(),
			Data:  append([]float32(nil), data...),
		}
	}
	return out, nil
}

// Close releases the network.
func (d *DNN) Close() error {
	return d.net.Close()
}

var _ Accelerator = (*DNN)(nil)
