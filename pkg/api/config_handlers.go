package api

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// ControlConfigSource renders the effective control configuration.
type ControlConfigSource interface {
	ControlYAML() ([]byte, error)
}

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	source ControlConfigSource
	logger customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(source ControlConfigSource, logger customlog.Logger) *ConfigHandler {
	if source == nil {
		panic("ControlConfigSource cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		source: source,
		logger: logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(router fiber.Router, source ControlConfigSource, logger customlog.Logger) {
	h := NewConfigHandler(source, logger)

	configGroup := router.Group("/config")

	// GET endpoint to retrieve the control and latency settings as YAML
	configGroup.Get("/control", h.handleGetControlConfig)

	logger.Infof("Registered configuration API endpoints under /api/v1/config")
}

// handleGetControlConfig handles GET requests for the control config YAML.
func (h *ConfigHandler) handleGetControlConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/control")
	yamlData, err := h.source.ControlYAML()
	if err != nil {
		h.logger.Errorf("Failed to render control config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}
