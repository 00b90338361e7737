package web

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/hub"
	"github.com/teslashibe/go-skipper/pkg/tracking"
	"github.com/teslashibe/go-skipper/pkg/worldmodel"
)

// DepthResponse is the body of GET /api/depth.
type DepthResponse struct {
	Available bool                      `json:"available"`
	Position  *worldmodel.DepthEstimate `json:"position,omitempty"`
	Text      string                    `json:"text,omitempty"`
	Category  string                    `json:"category,omitempty"`
}

// CalibrateRequest is the body of POST /api/calibrate.
type CalibrateRequest struct {
	FaceWidthPx     float64 `json:"face_width_px"`
	KnownDistanceCm float64 `json:"known_distance_cm"`
}

// CalibrateResponse reports the calibration now in effect.
type CalibrateResponse struct {
	FocalLengthPx float64                `json:"focal_length_px"`
	Calibration   worldmodel.Calibration `json:"calibration"`
}

// handleStatus returns both tracks and the stereo estimate
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.rig.Status())
}

// handleDepth returns the current stereo position
func (s *Server) handleDepth(c *fiber.Ctx) error {
	d, ok := s.rig.Depth()
	if !ok {
		return c.JSON(DepthResponse{})
	}
	return c.JSON(DepthResponse{
		Available: true,
		Position:  &d,
		Text:      worldmodel.FormatPosition(d),
		Category:  worldmodel.DistanceCategory(d.ZCm),
	})
}

// handleCalibrate refits the focal length from a face at a known distance
func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	var req CalibrateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	stereo := s.rig.Stereo()
	if stereo == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "stereo not configured"})
	}

	f, err := stereo.Recalibrate(req.FaceWidthPx, req.KnownDistanceCm)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, worldmodel.ErrInvalidCalibration) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	log.Info("stereo recalibrated", "focal_px", f, "face_px", req.FaceWidthPx, "distance_cm", req.KnownDistanceCm)
	return c.JSON(CalibrateResponse{FocalLengthPx: f, Calibration: stereo.Calibration()})
}

// handleGetTuning returns the live tracking parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.rig.Tuning())
}

// handleSetTuning merges non-zero fields into the live parameters
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var req tracking.TuningParams
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	return c.JSON(s.rig.SetTuning(req))
}

// handleCameraPresets lists the named camera presets
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

func (s *Server) cameraManager(c *fiber.Ctx) (*camera.Manager, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 0 || id >= len(s.cameras) || s.cameras[id] == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "unknown camera")
	}
	return s.cameras[id], nil
}

// handleGetCamera returns one camera's settings
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	m, err := s.cameraManager(c)
	if err != nil {
		return err
	}
	return c.JSON(m.GetConfig())
}

// handleUpdateCamera applies a partial settings update or a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	m, err := s.cameraManager(c)
	if err != nil {
		return err
	}

	var params map[string]interface{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if err := m.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(m.GetConfig())
}

// handleStatusWS streams status snapshots, starting with the current one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	var greeting []hub.Message
	if data, err := json.Marshal(s.rig.Status()); err == nil {
		greeting = append(greeting, hub.NewJSONMessage(data))
	}
	hub.NewClient(s.statusHub, c, greeting...).Run()
}
