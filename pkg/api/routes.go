// Package api serves the local operator console: status and session
// endpoints over HTTP and the console event stream over WebSocket.
package api

import (
	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// Routes collects the handlers mounted by RegisterRoutes.
type Routes struct {
	Session     fiber.Handler
	Mode        fiber.Handler
	Diagnostics fiber.Handler
	Album       fiber.Handler
	Console     fiber.Handler
	Config      ControlConfigSource
}

// RegisterRoutes mounts the operator console surface on app. Nil handlers
// are skipped.
func RegisterRoutes(app *fiber.App, r Routes, logger customlog.Logger) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "open-teleop operator",
		})
	})

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	v1 := app.Group("/api/v1")
	if r.Session != nil {
		v1.Get("/session", r.Session)
	}
	if r.Mode != nil {
		v1.Post("/session/mode", r.Mode)
	}
	if r.Diagnostics != nil {
		v1.Get("/diagnostics", r.Diagnostics)
	}
	if r.Album != nil {
		v1.Get("/album", r.Album)
	}
	if r.Config != nil {
		RegisterConfigRoutes(v1, r.Config, logger)
	}

	if r.Console != nil {
		app.Use("/ws", UpgradeMiddleware)
		app.Get("/ws/console", r.Console)
	}
}

// ErrorHandler renders every handler error as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Default 500 status code
	code := fiber.StatusInternalServerError

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
