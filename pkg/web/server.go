// Package web is the presentation surface: HTTP actions, websocket state push
// and the live camera preview.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/capture"
	"github.com/teslashibe/visionmate/pkg/controller"
	"github.com/teslashibe/visionmate/pkg/hub"
	"github.com/teslashibe/visionmate/pkg/payload"
	"github.com/teslashibe/visionmate/pkg/platform"
)

// ErrNoSession is returned by actions before a session was started.
var ErrNoSession = errors.New("web: no session")

// Session is the running interaction. *controller.Controller implements it.
type Session interface {
	Tap() error
	OpenCamera() error
	CloseCamera() error
	Snapshot() controller.Snapshot
	Slot() *payload.Slot
	Platform() platform.Mode
}

// StartFunc creates and starts a session for mode.
type StartFunc func(mode platform.Mode) (Session, error)

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ForcePlatform skips user agent detection when set.
	ForcePlatform *platform.Mode

	// Start creates the session on the first /api/session request.
	Start StartFunc

	// Picker receives touch uploads. Optional on pointer-only setups.
	Picker *capture.UploadPicker

	// Camera holds the runtime camera configuration. Optional.
	Camera *camera.Manager

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// StaticDir is served at / when set.
	StaticDir string

	Logger *slog.Logger
}

// Server is the presentation server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	stateHub  *hub.Hub
	cameraHub *hub.Hub
	preview   *Preview

	mu      sync.RWMutex
	session Session
}

// NewServer creates the server and its routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	logger := cfg.Logger.With("component", "web.server")

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		stateHub:  hub.New("state", hub.WithReplay(), hub.WithLogger(cfg.Logger)),
		cameraHub: hub.New("camera", hub.WithLogger(cfg.Logger)),
	}
	s.preview = NewPreview(s.cameraHub, cfg.Camera, cfg.Logger)

	app := fiber.New(fiber.Config{
		AppName:               "VisionMate",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
	})

	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	app.Get("/healthz", s.handleHealth)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api")
	api.Post("/session", s.handleStartSession)
	api.Get("/state", s.handleState)
	api.Post("/tap", s.handleTap)
	api.Post("/camera/open", s.handleOpenCamera)
	api.Post("/camera/close", s.handleCloseCamera)
	api.Get("/camera/config", s.handleGetCameraConfig)
	api.Post("/camera/config", s.handleSetCameraConfig)
	api.Get("/picker", s.handlePickerStatus)
	api.Post("/picker", s.handlePickerUpload)
	api.Post("/picker/cancel", s.handlePickerCancel)
	api.Get("/images/:id", s.handleImage)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Run starts the hubs and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.StartHubs(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.preview.Detach()
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		return nil
	}
}

// StartHubs runs the websocket hubs until ctx is done.
func (s *Server) StartHubs(ctx context.Context) {
	go s.stateHub.Run(ctx)
	go s.cameraHub.Run(ctx)
}

// PublishState pushes a snapshot to /ws/state viewers.
func (s *Server) PublishState(snap controller.Snapshot) {
	if err := s.stateHub.BroadcastJSON(snap); err != nil {
		s.logger.Warn("encode snapshot", "error", err)
	}
}

// Surface is the camera surface provider backed by the preview.
func (s *Server) Surface() camera.SurfaceProvider {
	return s.preview
}

// Session returns the current session or nil.
func (s *Server) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown() error {
	s.preview.Detach()
	return s.app.Shutdown()
}

// startSession returns the running session, creating it for mode if needed.
func (s *Server) startSession(mode platform.Mode) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, false, nil
	}
	if s.cfg.Start == nil {
		return nil, false, errors.New("web: session start not configured")
	}
	sess, err := s.cfg.Start(mode)
	if err != nil {
		return nil, false, err
	}
	s.session = sess
	s.logger.Info("session started", "platform", mode.String())
	return sess, true, nil
}
