package detection

import (
	"math"
	"sync"

	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/accel"
	"github.com/teslashibe/go-skipper/pkg/debug"
)

// DecoderConfig holds SCRFD post-processing thresholds.
type DecoderConfig struct {
	ScoreThresh  float64 // Per-anchor score cutoff after sigmoid
	NMSThresh    float64 // IoU above which a lower-scored box is suppressed
	MaxFaces     int     // Survivors kept after NMS
	CameraWidth  int     // Output coordinate space
	CameraHeight int

	// Sanity filter applied in camera pixels
	MinSize     float64
	MaxSize     float64
	MinAspect   float64
	MaxAspect   float64
	FilterScore float64
}

// DefaultDecoderConfig returns thresholds tuned for SCRFD-2.5g on 800x800
// cameras.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		ScoreThresh:  0.6,
		NMSThresh:    0.3,
		MaxFaces:     5,
		CameraWidth:  800,
		CameraHeight: 800,
		MinSize:      60,
		MaxSize:      400,
		MinAspect:    0.6,
		MaxAspect:    1.5,
		FilterScore:  0.65,
	}
}

// Decoder turns SCRFD outputs into primary candidates. It is owned by a
// single worker and is not safe for concurrent use.
type Decoder struct {
	layout Layout
	config DecoderConfig

	faultOnce sync.Once
}

// NewDecoder creates a decoder for a validated layout.
func NewDecoder(layout Layout, cfg DecoderConfig) *Decoder {
	return &Decoder{layout: layout, config: cfg}
}

// Layout returns the tensor layout the decoder reads.
func (d *Decoder) Layout() Layout {
	return d.layout
}

// Decode converts one inference result into filtered candidates in camera
// pixels. Malformed outputs yield an empty result; the first fault is logged.
func (d *Decoder) Decode(out accel.Outputs) []Candidate {
	levels, err := d.layout.Project(out)
	if err != nil {
		d.faultOnce.Do(func() {
			log.Warn("detection decode failed", "error", err)
		})
		return nil
	}

	var raw []Candidate
	for _, lv := range levels {
		raw = d.decodeLevel(lv, raw)
	}
	if len(raw) == 0 {
		return nil
	}

	kept := NMS(raw, d.config.NMSThresh, d.config.MaxFaces)

	sx := float64(d.config.CameraWidth) / float64(d.layout.InputWidth)
	sy := float64(d.config.CameraHeight) / float64(d.layout.InputHeight)

	var cands []Candidate
	for _, c := range kept {
		c.Box = Box{X: c.Box.X * sx, Y: c.Box.Y * sy, W: c.Box.W * sx, H: c.Box.H * sy}
		if d.plausible(c) {
			cands = append(cands, c)
		}
	}

	if len(cands) > 0 {
		debug.TrackLog("scrfd decoded", "raw", len(raw), "kept", len(kept), "faces", len(cands))
	}
	return cands
}

func (d *Decoder) decodeLevel(lv LevelOutput, dst []Candidate) []Candidate {
	anchors := d.layout.Anchors
	s := float64(lv.Stride)

	for y := 0; y < lv.Height; y++ {
		for x := 0; x < lv.Width; x++ {
			cx := (float64(x) + 0.5) * s
			cy := (float64(y) + 0.5) * s
			for a := 0; a < anchors; a++ {
				pos := (y*lv.Width+x)*anchors + a
				score := sigmoid(float64(lv.Scores[pos]))
				if score <= d.config.ScoreThresh {
					continue
				}
				dist := lv.Boxes[pos*4 : pos*4+4]
				x1 := cx - float64(dist[0])*s
				y1 := cy - float64(dist[1])*s
				x2 := cx + float64(dist[2])*s
				y2 := cy + float64(dist[3])*s
				dst = append(dst, Candidate{
					Box:    Box{X: x1, Y: y1, W: x2 - x1, H: y2 - y1},
					Score:  score,
					Source: SourcePrimary,
				})
			}
		}
	}
	return dst
}

func (d *Decoder) plausible(c Candidate) bool {
	cfg := d.config
	b := c.Box
	if b.W < cfg.MinSize || b.W > cfg.MaxSize || b.H < cfg.MinSize || b.H > cfg.MaxSize {
		return false
	}
	aspect := b.Aspect()
	if aspect < cfg.MinAspect || aspect > cfg.MaxAspect {
		return false
	}
	return c.Score > cfg.FilterScore
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
