package detection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-skipper/pkg/camera"
)

type stubDetector struct {
	faces []RawFace
	err   error
	calls int
}

func (s *stubDetector) Detect(camera.Frame) ([]RawFace, error) {
	s.calls++
	return s.faces, s.err
}

func TestFallback_NilDetector(t *testing.T) {
	var nilFallback *Fallback
	cands, err := nilFallback.Detect(camera.BlankFrame(8, 8))
	assert.NoError(t, err)
	assert.Empty(t, cands)
	assert.False(t, nilFallback.Available())

	f := NewFallback(nil, DefaultFallbackConfig())
	cands, err = f.Detect(camera.BlankFrame(8, 8))
	assert.NoError(t, err)
	assert.Empty(t, cands)
}

func TestFallback_Filter(t *testing.T) {
	tests := []struct {
		name string
		face RawFace
		keep bool
	}{
		{"good face", RawFace{Box{100, 100, 150, 160}, 0.95}, true},
		{"confidence at cutoff", RawFace{Box{100, 100, 150, 160}, 0.85}, false},
		{"too small", RawFace{Box{100, 100, 70, 70}, 0.95}, false},
		{"too large", RawFace{Box{0, 0, 360, 360}, 0.95}, false},
		{"too wide", RawFace{Box{0, 0, 300, 200}, 0.95}, false},
		{"too tall", RawFace{Box{0, 0, 100, 150}, 0.95}, false},
		{"size at bounds", RawFace{Box{0, 0, 80, 80}, 0.9}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFallback(&stubDetector{faces: []RawFace{tc.face}}, DefaultFallbackConfig())
			cands, err := f.Detect(camera.BlankFrame(8, 8))
			require.NoError(t, err)
			if tc.keep {
				require.Len(t, cands, 1)
				assert.Equal(t, SourceFallback, cands[0].Source)
				assert.Equal(t, tc.face.Box, cands[0].Box)
			} else {
				assert.Empty(t, cands)
			}
		})
	}
}

func TestFallback_PropagatesError(t *testing.T) {
	f := NewFallback(&stubDetector{err: errors.New("dnn failure")}, DefaultFallbackConfig())
	_, err := f.Detect(camera.BlankFrame(8, 8))
	assert.Error(t, err)
}
