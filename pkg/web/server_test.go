package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/tracking"
	"github.com/teslashibe/go-skipper/pkg/tracking/detection"
	"github.com/teslashibe/go-skipper/pkg/worldmodel"
)

// fakeRig serves a fixed status and records tuning updates.
type fakeRig struct {
	mu     sync.Mutex
	status tracking.Status
	depth  *worldmodel.DepthEstimate
	stereo *worldmodel.StereoEstimator
	tuning tracking.TuningParams
}

func (f *fakeRig) Status() tracking.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeRig) Depth() (worldmodel.DepthEstimate, bool) {
	if f.depth == nil {
		return worldmodel.DepthEstimate{}, false
	}
	return *f.depth, true
}

func (f *fakeRig) Stereo() *worldmodel.StereoEstimator { return f.stereo }

func (f *fakeRig) Tuning() tracking.TuningParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuning
}

func (f *fakeRig) SetTuning(p tracking.TuningParams) tracking.TuningParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tuning = tracking.TuningFrom(p.Apply(tracking.DefaultConfig()))
	return f.tuning
}

func newFakeRig(t *testing.T) *fakeRig {
	t.Helper()
	stereo, err := worldmodel.NewStereoEstimator(worldmodel.DefaultCalibration())
	require.NoError(t, err)
	return &fakeRig{
		stereo: stereo,
		tuning: tracking.TuningFrom(tracking.DefaultConfig()),
		status: tracking.Status{
			Session: "test-session",
			Running: true,
			Cameras: []tracking.CameraStatus{{
				TrackingResult: tracking.TrackingResult{
					Camera:      0,
					Seq:         42,
					Time:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
					HasTarget:   true,
					Box:         detection.Box{X: 100, Y: 100, W: 150, H: 160},
					Center:      detection.Point{X: 175, Y: 180},
					InnerBox:    detection.Rect{X1: 145, Y1: 148, X2: 205, Y2: 212},
					SourceName:  "primary",
					Zone:        tracking.ZoneTracking,
					ErrorX:      195,
					ErrorY:      188,
					AzimuthDeg:  3.9,
					AltitudeDeg: -3.76,
					State:       "held",
				},
				Ready: true,
			}},
			Tuning: tracking.TuningFrom(tracking.DefaultConfig()),
		},
	}
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestStatus(t *testing.T) {
	rig := newFakeRig(t)
	s := NewServer("0", rig, nil)

	resp, body := doJSON(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got tracking.Status
	require.NoError(t, json.Unmarshal(body, &got))
	if diff := cmp.Diff(rig.status, got, cmpopts.IgnoreFields(tracking.TrackingResult{}, "Source")); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestDepth(t *testing.T) {
	rig := newFakeRig(t)
	s := NewServer("0", rig, nil)

	_, body := doJSON(t, s, http.MethodGet, "/api/depth", "")
	assert.JSONEq(t, `{"available":false}`, string(body))

	rig.depth = &worldmodel.DepthEstimate{XCm: 5, YCm: -2, ZCm: 80}
	_, body = doJSON(t, s, http.MethodGet, "/api/depth", "")

	var got DepthResponse
	require.NoError(t, json.Unmarshal(body, &got))
	want := DepthResponse{
		Available: true,
		Position:  rig.depth,
		Text:      worldmodel.FormatPosition(*rig.depth),
		Category:  worldmodel.DistanceCategory(80),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("depth mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrate(t *testing.T) {
	rig := newFakeRig(t)
	s := NewServer("0", rig, nil)

	resp, body := doJSON(t, s, http.MethodPost, "/api/calibrate", `{"face_width_px":150,"known_distance_cm":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got CalibrateResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.InDelta(t, 1000, got.FocalLengthPx, 1e-9)
	assert.InDelta(t, 1000, rig.stereo.Calibration().FocalLengthPx, 1e-9)
}

func TestCalibrate_Invalid(t *testing.T) {
	rig := newFakeRig(t)
	s := NewServer("0", rig, nil)

	tests := []struct {
		name string
		body string
	}{
		{"zero width", `{"face_width_px":0,"known_distance_cm":100}`},
		{"negative distance", `{"face_width_px":150,"known_distance_cm":-1}`},
		{"bad json", `{"face_width_px":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, s, http.MethodPost, "/api/calibrate", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Equal(t, worldmodel.DefaultCalibration().FocalLengthPx, rig.stereo.Calibration().FocalLengthPx)
}

func TestTuning(t *testing.T) {
	rig := newFakeRig(t)
	s := NewServer("0", rig, nil)

	resp, body := doJSON(t, s, http.MethodPost, "/api/tuning", `{"smoothing_alpha":0.6}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got tracking.TuningParams
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 0.6, got.SmoothingAlpha)
	assert.Equal(t, tracking.DefaultConfig().PixelsPerDegree, got.PixelsPerDegree)

	_, body = doJSON(t, s, http.MethodGet, "/api/tuning", "")
	var again tracking.TuningParams
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, got, again)
}

func TestCameraConfig(t *testing.T) {
	mgr := camera.NewManager(camera.DefaultConfig())
	s := NewServer("0", newFakeRig(t), []*camera.Manager{mgr})

	resp, body := doJSON(t, s, http.MethodPost, "/api/camera/0", `{"brightness":0.2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 0.2, mgr.GetConfig().Brightness)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/camera/0", `{"width":640}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodGet, "/api/camera/3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = doJSON(t, s, http.MethodGet, "/api/camera/presets", "")
	assert.Contains(t, string(body), "night")
}

func TestStatusWebSocket(t *testing.T) {
	rig := newFakeRig(t)
	s := NewServer("0", rig, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	url := "ws://" + ln.Addr().String() + "/ws/status"
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first tracking.Status
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "test-session", first.Session)

	require.Eventually(t, func() bool { return s.StatusHub().ClientCount() == 1 }, time.Second, time.Millisecond)

	next := rig.Status()
	next.Session = "published"
	s.Publish(next)

	var second tracking.Status
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "published", second.Session)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer("0", newFakeRig(t), nil)
	resp, _ := doJSON(t, s, http.MethodGet, "/ws/status", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
