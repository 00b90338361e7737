// Package web serves the rig's status and calibration API.
package web

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-skipper/internal/log"
	"github.com/teslashibe/go-skipper/pkg/camera"
	"github.com/teslashibe/go-skipper/pkg/hub"
	"github.com/teslashibe/go-skipper/pkg/tracking"
	"github.com/teslashibe/go-skipper/pkg/worldmodel"
)

// Rig is the part of tracking.Rig the server reads and tunes.
type Rig interface {
	Status() tracking.Status
	Depth() (worldmodel.DepthEstimate, bool)
	Stereo() *worldmodel.StereoEstimator
	Tuning() tracking.TuningParams
	SetTuning(tracking.TuningParams) tracking.TuningParams
}

var _ Rig = (*tracking.Rig)(nil)

// Server is the status web server
type Server struct {
	app  *fiber.App
	port string
	rig  Rig

	// Per-camera runtime settings, indexed like the rig's cameras
	cameras []*camera.Manager

	// Hub for websocket status broadcast
	statusHub *hub.Hub
}

// NewServer creates a server for rig. cameras may be empty.
func NewServer(port string, rig Rig, cameras []*camera.Manager) *Server {
	s := &Server{
		port:      port,
		rig:       rig,
		cameras:   cameras,
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Skipper",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/depth", s.handleDepth)
	api.Post("/calibrate", s.handleCalibrate)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Get("/camera/:id", s.handleGetCamera)
	api.Post("/camera/:id", s.handleUpdateCamera)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// StatusHub returns the hub status snapshots are broadcast on.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// Run serves on the configured port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info("status server listening", "addr", ln.Addr().String())

	go s.statusHub.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

// Publish broadcasts a status snapshot to websocket clients. It has the
// signature tracking.Rig.RunDisplay expects.
func (s *Server) Publish(st tracking.Status) {
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		log.Warn("status encode failed", "error", err)
	}
}
