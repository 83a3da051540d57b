package web

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/visionmate/pkg/capture"
	"github.com/teslashibe/visionmate/pkg/controller"
	"github.com/teslashibe/visionmate/pkg/hub"
	"github.com/teslashibe/visionmate/pkg/payload"
	"github.com/teslashibe/visionmate/pkg/platform"
)

// SessionResponse is returned by POST /api/session.
type SessionResponse struct {
	Platform platform.Mode       `json:"platform"`
	Created  bool                `json:"created"`
	State    controller.Snapshot `json:"state"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"session": s.Session() != nil,
	})
}

// handleStartSession detects the platform from the User-Agent unless forced.
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	mode := platform.Detect(c.Get(fiber.HeaderUserAgent))
	if s.cfg.ForcePlatform != nil {
		mode = *s.cfg.ForcePlatform
	}

	sess, created, err := s.startSession(mode)
	if err != nil {
		s.logger.Error("start session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(SessionResponse{
		Platform: sess.Platform(),
		Created:  created,
		State:    sess.Snapshot(),
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	sess := s.Session()
	if sess == nil {
		return errorJSON(c, ErrNoSession)
	}
	return c.JSON(sess.Snapshot())
}

func (s *Server) handleTap(c *fiber.Ctx) error {
	return s.act(c, Session.Tap)
}

func (s *Server) handleOpenCamera(c *fiber.Ctx) error {
	return s.act(c, Session.OpenCamera)
}

func (s *Server) handleCloseCamera(c *fiber.Ctx) error {
	return s.act(c, Session.CloseCamera)
}

// act runs an action on the session. Actions are asynchronous; the new state
// arrives over /ws/state.
func (s *Server) act(c *fiber.Ctx, action func(Session) error) error {
	sess := s.Session()
	if sess == nil {
		return errorJSON(c, ErrNoSession)
	}
	if err := action(sess); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleGetCameraConfig(c *fiber.Ctx) error {
	if s.cfg.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}
	return c.JSON(s.cfg.Camera.GetConfigJSON())
}

// handleSetCameraConfig applies a partial update, e.g. {"preset":"720p"} or {"quality":80}.
func (s *Server) handleSetCameraConfig(c *fiber.Ctx) error {
	if s.cfg.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.cfg.Camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.cfg.Camera.GetConfigJSON())
}

func (s *Server) handlePickerStatus(c *fiber.Ctx) error {
	if s.cfg.Picker == nil {
		return c.JSON(fiber.Map{"armed": false})
	}
	return c.JSON(fiber.Map{"armed": s.cfg.Picker.Armed()})
}

// handlePickerUpload resolves the armed picker with the uploaded "file" part.
func (s *Server) handlePickerUpload(c *fiber.Ctx) error {
	if s.cfg.Picker == nil {
		return errorJSON(c, capture.ErrNotArmed)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file field"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = s.cfg.Picker.Deliver(capture.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handlePickerCancel(c *fiber.Ctx) error {
	if s.cfg.Picker == nil {
		return errorJSON(c, capture.ErrNotArmed)
	}
	if err := s.cfg.Picker.Cancel(); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// handleImage serves the current display image. Released images are gone.
func (s *Server) handleImage(c *fiber.Ctx) error {
	sess := s.Session()
	if sess == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	img, ok := sess.Slot().Lookup(c.Params("id"))
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderContentType, payload.MIMEJPEG)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(img.Data)
}

func (s *Server) handleStateWS(c *websocket.Conn) {
	s.serveHub(s.stateHub, c)
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	s.serveHub(s.cameraHub, c)
}

func (s *Server) serveHub(h *hub.Hub, c *websocket.Conn) {
	client := hub.NewClient(h, c)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}

// errorJSON maps domain errors onto status codes.
func errorJSON(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNoSession):
		status = fiber.StatusConflict
	case errors.Is(err, controller.ErrClosed):
		status = fiber.StatusGone
	case errors.Is(err, capture.ErrNotArmed):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
