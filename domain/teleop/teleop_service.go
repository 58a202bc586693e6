package teleop

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
)

// TeleopService exposes a Session to other goroutines. Every call is posted
// to the event loop, so the session itself is never touched concurrently.
type TeleopService struct {
	loop    *eventloop.Loop
	session *Session
	logger  customlog.Logger
}

// NewTeleopService creates a session whose timers run on loop.
func NewTeleopService(loop *eventloop.Loop, channel Channel, prober Prober, observer Observer, logger customlog.Logger, opts Options) *TeleopService {
	return &TeleopService{
		loop:    loop,
		session: NewSession(loop, channel, prober, observer, logger, opts),
		logger:  logger,
	}
}

// Start arms the session on the loop.
func (s *TeleopService) Start() {
	s.post("start", s.session.Start)
}

// Close stops the session timers and waits for the loop to apply it.
func (s *TeleopService) Close(ctx context.Context) error {
	return s.loop.Do(ctx, s.session.Close)
}

// HandleGesture queues a gesture event from the console.
func (s *TeleopService) HandleGesture(ev GestureEvent) {
	s.post("gesture", func() { s.session.OnInput(ev) })
}

// SetMode queues a device mode change.
func (s *TeleopService) SetMode(mode DeviceMode) {
	s.post("mode", func() { s.session.OnModeChange(mode) })
}

// HandleCommandStatus decodes and queues a command_status payload.
func (s *TeleopService) HandleCommandStatus(raw []byte) {
	status := ParseCommandStatus(raw)
	s.post("command_status", func() { s.session.OnAck(status) })
}

// HandleProbeAck queues the reply to a link probe.
func (s *TeleopService) HandleProbeAck(seq uint64) {
	s.post("probe_ack", func() { s.session.OnProbeAck(seq) })
}

// HandleConnected is called by the transport after each successful dial.
func (s *TeleopService) HandleConnected() {
	s.post("connected", s.session.OnConnect)
}

// Snapshot reads the session state from the loop.
func (s *TeleopService) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Do(ctx, func() { snap = s.session.Snapshot() })
	return snap, err
}

func (s *TeleopService) post(what string, fn func()) {
	if !s.loop.Post(fn) {
		s.logger.Debugf("Dropped %s: %v", what, eventloop.ErrClosed)
	}
}

// SessionHandler returns the current session state
func (s *TeleopService) SessionHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), time.Second)
	defer cancel()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(snap)
}

// modeRequest is the body of a mode change request
type modeRequest struct {
	Mode string `json:"mode"`
}

// ModeHandler switches the device mode from a REST call
func (s *TeleopService) ModeHandler(c *fiber.Ctx) error {
	var req modeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	mode, err := ParseDeviceMode(req.Mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.SetMode(mode)
	return c.JSON(fiber.Map{
		"status": "mode change queued",
		"mode":   mode,
	})
}
