package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "camera", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "camera=1")
}

func TestLimited_DropsBurst(t *testing.T) {
	var buf bytes.Buffer
	l := NewLimited(New(&buf, "debug"), time.Hour)

	require.True(t, l.Warn("capture failed", "camera", 0))
	for i := 0; i < 10; i++ {
		assert.False(t, l.Warn("capture failed", "camera", 0))
	}

	assert.Equal(t, int64(10), l.Dropped())
	assert.Equal(t, 1, strings.Count(buf.String(), "capture failed"))
}

func TestLimited_ReportsSuppressedCount(t *testing.T) {
	var buf bytes.Buffer
	l := NewLimited(New(&buf, "debug"), 20*time.Millisecond)

	require.True(t, l.Error("inference failed"))
	l.Error("inference failed")
	l.Error("inference failed")

	time.Sleep(30 * time.Millisecond)
	require.True(t, l.Error("inference failed"))

	assert.Contains(t, buf.String(), "suppressed=2")
	assert.Equal(t, int64(0), l.Dropped())
}
