package robot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/teslashibe/go-skipper/internal/httpc"
)

// ErrNotReady is returned when Klipper reports a state other than "ready".
var ErrNotReady = errors.New("robot: klipper not ready")

// Manual stepper names on the controller board.
const (
	AzimuthStepper  = "stepper_0"
	AltitudeStepper = "stepper_1"
)

// Limits bounds both axes in degrees. Min may exceed Max on an inverted axis.
type Limits struct {
	AzimuthMin  float64
	AzimuthMax  float64
	AltitudeMin float64
	AltitudeMax float64
}

// clampAxis limits deg to [min(lo,hi), max(lo,hi)].
func clampAxis(deg, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return clamp(deg, lo, hi)
}

// KlipperController sends MANUAL_STEPPER G-code through Moonraker's HTTP API.
type KlipperController struct {
	BaseURL string

	client *http.Client
	limits Limits

	mu          sync.Mutex
	azimuthPos  float64
	altitudePos float64
}

// NewKlipperController creates a controller for the Moonraker instance at
// baseURL (e.g. http://localhost:7125).
func NewKlipperController(baseURL string, limits Limits) *KlipperController {
	return &KlipperController{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.Client,
		limits:  limits,
	}
}

// WithClient replaces the HTTP client, mainly for tests.
func (k *KlipperController) WithClient(c *http.Client) *KlipperController {
	k.client = c
	return k
}

// Status returns Klipper's printer state ("ready", "startup", "shutdown", ...).
func (k *KlipperController) Status(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.BaseURL+"/printer/info", nil)
	if err != nil {
		return "", err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("printer info request failed: %w", err)
	}
	defer resp.Body.Close()

	var info struct {
		Result struct {
			State string `json:"state"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode printer info: %w", err)
	}
	return info.Result.State, nil
}

// Initialize enables both steppers and declares the current pose as home.
func (k *KlipperController) Initialize(ctx context.Context) error {
	state, err := k.Status(ctx)
	if err != nil {
		return err
	}
	if state != "ready" {
		return fmt.Errorf("%w: state %q", ErrNotReady, state)
	}

	for _, stepper := range []string{AzimuthStepper, AltitudeStepper} {
		if err := k.gcode(fmt.Sprintf("MANUAL_STEPPER STEPPER=%s ENABLE=1 SET_POSITION=0", stepper)); err != nil {
			return err
		}
	}

	k.mu.Lock()
	k.azimuthPos, k.altitudePos = 0, 0
	k.mu.Unlock()
	return nil
}

// SetAzimuth moves the pan axis, clamped to its limits.
func (k *KlipperController) SetAzimuth(deg, speed float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	deg = clampAxis(deg, k.limits.AzimuthMin, k.limits.AzimuthMax)
	if err := k.move(AzimuthStepper, deg, speed); err != nil {
		return err
	}
	k.azimuthPos = deg
	return nil
}

// SetAltitude moves the tilt axis, clamped to its limits.
func (k *KlipperController) SetAltitude(deg, speed float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	deg = clampAxis(deg, k.limits.AltitudeMin, k.limits.AltitudeMax)
	if err := k.move(AltitudeStepper, deg, speed); err != nil {
		return err
	}
	k.altitudePos = deg
	return nil
}

// Position returns the last commanded pose.
func (k *KlipperController) Position() (azimuth, altitude float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.azimuthPos, k.altitudePos
}

// Disable releases both steppers so the head can be moved by hand.
func (k *KlipperController) Disable() error {
	for _, stepper := range []string{AzimuthStepper, AltitudeStepper} {
		if err := k.gcode(fmt.Sprintf("MANUAL_STEPPER STEPPER=%s ENABLE=0", stepper)); err != nil {
			return err
		}
	}
	return nil
}

// EmergencyStop halts the controller board.
func (k *KlipperController) EmergencyStop() error {
	return k.gcode("M112")
}

func (k *KlipperController) move(stepper string, deg, speed float64) error {
	return k.gcode(fmt.Sprintf("MANUAL_STEPPER STEPPER=%s MOVE=%s SPEED=%s",
		stepper, formatFloat(deg), formatFloat(speed)))
}

// gcode posts one script to Moonraker.
func (k *KlipperController) gcode(script string) error {
	resp, err := httpc.PostForm(k.client, k.BaseURL+"/printer/gcode/script", url.Values{"script": {script}})
	if err != nil {
		return fmt.Errorf("gcode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("gcode %q: status %d: %s", script, resp.StatusCode, body.Error.Message)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
