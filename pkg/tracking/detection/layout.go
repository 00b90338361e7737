package detection

import (
	"fmt"

	"github.com/teslashibe/go-skipper/pkg/accel"
)

// LevelSpec names the score and box tensors of one FPN level.
type LevelSpec struct {
	Stride      int
	ScoreTensor string
	BoxTensor   string
}

// Layout describes how network outputs map onto detection levels.
type Layout struct {
	InputWidth  int
	InputHeight int
	Anchors     int
	Levels      []LevelSpec
}

// SCRFDLayout returns the SCRFD-2.5g layout at the given input size.
func SCRFDLayout(width, height int) Layout {
	return Layout{
		InputWidth:  width,
		InputHeight: height,
		Anchors:     2,
		Levels: []LevelSpec{
			{Stride: 8, ScoreTensor: "scrfd_2_5g/conv42", BoxTensor: "scrfd_2_5g/conv43"},
			{Stride: 16, ScoreTensor: "scrfd_2_5g/conv49", BoxTensor: "scrfd_2_5g/conv50"},
			{Stride: 32, ScoreTensor: "scrfd_2_5g/conv55", BoxTensor: "scrfd_2_5g/conv56"},
		},
	}
}

// OutputNames lists every tensor the layout reads, level by level.
func (l Layout) OutputNames() []string {
	names := make([]string, 0, 2*len(l.Levels))
	for _, lv := range l.Levels {
		names = append(names, lv.ScoreTensor, lv.BoxTensor)
	}
	return names
}

// Grid returns the feature map size of a level.
func (l Layout) Grid(lv LevelSpec) (w, h int) {
	return l.InputWidth / lv.Stride, l.InputHeight / lv.Stride
}

// Validate checks the reported output shapes against the layout. Shapes are
// compared by element count so both HWC and flattened exports pass.
func (l Layout) Validate(shapes map[string][]int) error {
	if l.InputWidth <= 0 || l.InputHeight <= 0 || l.Anchors <= 0 || len(l.Levels) == 0 {
		return fmt.Errorf("detection: invalid layout %dx%d anchors=%d levels=%d",
			l.InputWidth, l.InputHeight, l.Anchors, len(l.Levels))
	}
	for _, lv := range l.Levels {
		if lv.Stride <= 0 {
			return fmt.Errorf("detection: invalid stride %d", lv.Stride)
		}
		w, h := l.Grid(lv)
		cells := w * h * l.Anchors
		if err := checkShape(shapes, lv.ScoreTensor, cells); err != nil {
			return err
		}
		if err := checkShape(shapes, lv.BoxTensor, cells*4); err != nil {
			return err
		}
	}
	return nil
}

func checkShape(shapes map[string][]int, name string, want int) error {
	shape, ok := shapes[name]
	if !ok {
		return &accel.ShapeError{Tensor: name, Want: want}
	}
	if accel.ShapeLen(shape) != want {
		return &accel.ShapeError{Tensor: name, Got: shape, Want: want}
	}
	return nil
}

// LevelOutput is the data of one level, laid out (H, W, A, C) row-major.
type LevelOutput struct {
	Stride int
	Width  int // grid width
	Height int // grid height
	Scores []float32
	Boxes  []float32
}

// Project slices raw outputs into per-level views. A missing or wrongly
// sized tensor is reported as a ShapeError.
func (l Layout) Project(out accel.Outputs) ([]LevelOutput, error) {
	levels := make([]LevelOutput, 0, len(l.Levels))
	for _, lv := range l.Levels {
		w, h := l.Grid(lv)
		cells := w * h * l.Anchors

		scores, ok := out[lv.ScoreTensor]
		if !ok || len(scores.Data) != cells {
			return nil, &accel.ShapeError{Tensor: lv.ScoreTensor, Got: gotShape(scores, ok), Want: cells}
		}
		boxes, ok := out[lv.BoxTensor]
		if !ok || len(boxes.Data) != cells*4 {
			return nil, &accel.ShapeError{Tensor: lv.BoxTensor, Got: gotShape(boxes, ok), Want: cells * 4}
		}

		levels = append(levels, LevelOutput{
			Stride: lv.Stride,
			Width:  w,
			Height: h,
			Scores: scores.Data,
			Boxes:  boxes.Data,
		})
	}
	return levels, nil
}

func gotShape(t accel.Tensor, ok bool) []int {
	if !ok {
		return nil
	}
	if accel.ShapeLen(t.Shape) != len(t.Data) {
		return []int{len(t.Data)}
	}
	return t.Shape
}
