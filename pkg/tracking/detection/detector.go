// Package detection turns raw network output into face candidates and picks
// the one to follow.
package detection

import (
	"math"

	"github.com/teslashibe/go-skipper/pkg/camera"
)

// Point is a position in camera pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned face box in camera pixels, top-left origin.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the center point of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Area returns the area of the box.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Aspect returns W/H, or 0 for a degenerate box.
func (b Box) Aspect() float64 {
	if b.H <= 0 {
		return 0
	}
	return b.W / b.H
}

// Inset shrinks the box by frac of its width/height on every side.
func (b Box) Inset(frac float64) Rect {
	dx, dy := b.W*frac, b.H*frac
	return Rect{X1: b.X + dx, Y1: b.Y + dy, X2: b.X + b.W - dx, Y2: b.Y + b.H - dy}
}

// Rect is a corner-form rectangle.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// Nearest returns the point of r closest to p.
func (r Rect) Nearest(p Point) Point {
	return Point{X: clamp(p.X, r.X1, r.X2), Y: clamp(p.Y, r.Y1, r.Y2)}
}

// IoU returns intersection over union of two boxes, 0 when either is empty.
func IoU(a, b Box) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.W, b.X+b.W)
	y2 := math.Min(a.Y+a.H, b.Y+b.H)

	inter := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// CenterDistance returns the euclidean distance between box centers.
func CenterDistance(a, b Box) float64 {
	ca, cb := a.Center(), b.Center()
	return math.Hypot(ca.X-cb.X, ca.Y-cb.Y)
}

// Smooth blends next into prev with weight alpha on next.
func Smooth(next, prev Box, alpha float64) Box {
	mix := func(n, p float64) float64 { return alpha*n + (1-alpha)*p }
	return Box{
		X: mix(next.X, prev.X),
		Y: mix(next.Y, prev.Y),
		W: mix(next.W, prev.W),
		H: mix(next.H, prev.H),
	}
}

// Source identifies which detector produced a candidate.
type Source int

const (
	SourcePrimary Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "primary"
}

// Candidate is one filtered face detection.
type Candidate struct {
	Box    Box
	Score  float64
	Source Source
}

// RawFace is an unfiltered detection from a fallback detector.
type RawFace struct {
	Box        Box
	Confidence float64
}

// FaceDetector is a secondary detector that works directly on frames.
type FaceDetector interface {
	Detect(frame camera.Frame) ([]RawFace, error)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
