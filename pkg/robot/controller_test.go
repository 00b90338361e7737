package robot

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-skipper/pkg/tracking"
)

var _ tracking.Actuator = (*RateController)(nil)

// mockAxes records all commands for testing
type mockAxes struct {
	mu       sync.Mutex
	azCalls  []Pose
	altCalls []Pose
	err      error
}

func (m *mockAxes) SetAzimuth(deg, speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.azCalls = append(m.azCalls, Pose{Azimuth: deg, Altitude: speed})
	return nil
}

func (m *mockAxes) SetAltitude(deg, speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.altCalls = append(m.altCalls, Pose{Azimuth: deg, Altitude: speed})
	return nil
}

func (m *mockAxes) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.azCalls)
}

func (m *mockAxes) last() (az, alt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.azCalls) == 0 {
		return 0, 0
	}
	return m.azCalls[len(m.azCalls)-1].Azimuth, m.altCalls[len(m.altCalls)-1].Azimuth
}

func TestController_SendsTarget(t *testing.T) {
	mock := &mockAxes{}
	ctrl := NewRateController(mock, 10*time.Millisecond, 0, 0)

	ctrl.MoveTo(3.7, -1.96)
	ctrl.tick()

	az, alt := mock.last()
	if az != 3.7 || alt != -1.96 {
		t.Errorf("sent (%v, %v), want (3.7, -1.96)", az, alt)
	}
	if got := mock.azCalls[0].Altitude; got != DefaultAzimuthSpeed {
		t.Errorf("azimuth speed: got %v, want %v", got, DefaultAzimuthSpeed)
	}
	if got := mock.altCalls[0].Altitude; got != DefaultAltitudeSpeed {
		t.Errorf("altitude speed: got %v, want %v", got, DefaultAltitudeSpeed)
	}
}

func TestController_DeadZone(t *testing.T) {
	mock := &mockAxes{}
	ctrl := NewRateController(mock, 10*time.Millisecond, 0, 0)

	ctrl.MoveTo(1, 1)
	ctrl.tick()
	ctrl.MoveTo(1.01, 0.99)
	ctrl.tick()

	if got := mock.calls(); got != 1 {
		t.Errorf("calls inside dead zone: got %d, want 1", got)
	}

	ctrl.MoveTo(1.2, 1)
	ctrl.tick()
	if got := mock.calls(); got != 2 {
		t.Errorf("calls after leaving dead zone: got %d, want 2", got)
	}
}

func TestController_FirstTickAlwaysSends(t *testing.T) {
	mock := &mockAxes{}
	ctrl := NewRateController(mock, 10*time.Millisecond, 0, 0)

	ctrl.tick()
	if got := mock.calls(); got != 1 {
		t.Errorf("home pose not sent on first tick: %d calls", got)
	}
}

func TestController_RetriesAfterError(t *testing.T) {
	mock := &mockAxes{err: errors.New("connection refused")}
	ctrl := NewRateController(mock, 10*time.Millisecond, 0, 0)

	ctrl.MoveTo(2, 0)
	ctrl.tick()
	ctrl.tick()
	if ctrl.failures != 2 {
		t.Errorf("failures: got %d, want 2", ctrl.failures)
	}

	mock.mu.Lock()
	mock.err = nil
	mock.mu.Unlock()

	ctrl.tick()
	if az, _ := mock.last(); az != 2 {
		t.Errorf("target not resent after recovery: az=%v", az)
	}
}

func TestController_NilAxes(t *testing.T) {
	ctrl := NewRateController(nil, 10*time.Millisecond, 0, 0)
	ctrl.MoveTo(1, 1)
	ctrl.tick()
	if ctrl.tickCount != 0 {
		t.Errorf("tick with nil axes should be a no-op")
	}
}

func TestController_ConcurrentMoveTo(t *testing.T) {
	ctrl := NewRateController(&mockAxes{}, 10*time.Millisecond, 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ctrl.MoveTo(v, -v)
				_ = ctrl.Target()
			}
		}(float64(i))
	}
	wg.Wait()

	target := ctrl.Target()
	if target.Azimuth != -target.Altitude {
		t.Errorf("torn target: %+v", target)
	}
}

func TestController_RunStop(t *testing.T) {
	mock := &mockAxes{}
	ctrl := NewRateController(mock, 5*time.Millisecond, 0, 0)
	ctrl.MoveTo(5, 0)

	done := make(chan struct{})
	go func() {
		ctrl.Run()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	ctrl.Stop()
	ctrl.Stop()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Run did not exit after Stop")
	}

	if mock.calls() == 0 {
		t.Error("expected at least one command while running")
	}
}

func TestController_Home(t *testing.T) {
	ctrl := NewRateController(nil, 10*time.Millisecond, 0, 0)
	ctrl.MoveTo(4, 4)
	ctrl.Home()
	if got := ctrl.Target(); got != (Pose{}) {
		t.Errorf("Home target: got %+v", got)
	}
}

func TestLogAxes(t *testing.T) {
	var axes AxisController = LogAxes{}
	if err := axes.SetAzimuth(1, 30); err != nil {
		t.Errorf("SetAzimuth: %v", err)
	}
	if err := axes.SetAltitude(1, 3); err != nil {
		t.Errorf("SetAltitude: %v", err)
	}
}
