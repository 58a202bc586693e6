package config

import (
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied to fields left out of operator_config.yaml.
const (
	DefaultHTTPPort               = 8080
	DefaultVehicleSyncIntervalMs  = 25
	DefaultCameraSyncIntervalMs   = 50
	DefaultIdleTimeoutMs          = 10000
	DefaultPhotoFlashMs           = 500
	DefaultLatencyThresholdMs     = 500
	DefaultProbeIntervalMs        = 1000
	DefaultReconnectIntervalMs    = 1000
	DefaultMaxReconnectIntervalMs = 30000
	DefaultWriteTimeoutMs         = 2000
	DefaultSendQueueSize          = 64
	DefaultTelemetryTopic         = "teleop.link"
	DefaultTelemetryWorkers       = 1
	DefaultTelemetryQueueSize     = 256
	DefaultInfluxMeasurement      = "teleop_link"
)

// Config represents the operator client configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Vehicle   VehicleConfig   `yaml:"vehicle" json:"vehicle"`
	Control   ControlConfig   `yaml:"control" json:"control"`
	Latency   LatencyConfig   `yaml:"latency" json:"latency"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Influx    InfluxConfig    `yaml:"influx" json:"influx"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
}

// ServerConfig holds the operator console HTTP settings
type ServerConfig struct {
	HTTPPort int `yaml:"http_port" json:"http_port"`
}

// VehicleConfig describes the persistent link to the vehicle
type VehicleConfig struct {
	URL                    string `yaml:"url" json:"url"`
	Password               string `yaml:"password,omitempty" json:"-"`
	ReconnectIntervalMs    int    `yaml:"reconnect_interval_ms" json:"reconnect_interval_ms"`
	MaxReconnectIntervalMs int    `yaml:"max_reconnect_interval_ms" json:"max_reconnect_interval_ms"`
	WriteTimeoutMs         int    `yaml:"write_timeout_ms" json:"write_timeout_ms"`
	SendQueueSize          int    `yaml:"send_queue_size" json:"send_queue_size"`
}

// ControlConfig holds the command scheduling cadence and idle settings.
// IdleTimeoutMs is a pointer so an explicit 0 (disabled) is distinguishable
// from an absent key.
type ControlConfig struct {
	VehicleSyncIntervalMs int  `yaml:"vehicle_sync_interval_ms" json:"vehicle_sync_interval_ms"`
	CameraSyncIntervalMs  int  `yaml:"camera_sync_interval_ms" json:"camera_sync_interval_ms"`
	IdleTimeoutMs         *int `yaml:"idle_timeout_ms" json:"idle_timeout_ms"`
	PhotoFlashMs          int  `yaml:"photo_flash_ms" json:"photo_flash_ms"`
}

// LatencyConfig holds the backpressure settings
type LatencyConfig struct {
	ThresholdMs     int `yaml:"threshold_ms" json:"threshold_ms"`
	ProbeIntervalMs int `yaml:"probe_interval_ms" json:"probe_interval_ms"`
}

// TelemetryConfig holds the ZeroMQ link-event publisher settings
type TelemetryConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address" json:"publish_bind_address"`
	Topic              string `yaml:"topic" json:"topic"`
	Workers            int    `yaml:"workers" json:"workers"`
	QueueSize          int    `yaml:"queue_size" json:"queue_size"`
}

// InfluxConfig holds the InfluxDB export settings
type InfluxConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	URL         string `yaml:"url" json:"url"`
	Token       string `yaml:"token,omitempty" json:"-"`
	Org         string `yaml:"org" json:"org"`
	Bucket      string `yaml:"bucket" json:"bucket"`
	Measurement string `yaml:"measurement" json:"measurement"`
}

// ApplyDefaults fills zero-valued fields with their defaults
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort
	}

	setDefault(&c.Vehicle.ReconnectIntervalMs, DefaultReconnectIntervalMs)
	setDefault(&c.Vehicle.MaxReconnectIntervalMs, DefaultMaxReconnectIntervalMs)
	setDefault(&c.Vehicle.WriteTimeoutMs, DefaultWriteTimeoutMs)
	setDefault(&c.Vehicle.SendQueueSize, DefaultSendQueueSize)

	setDefault(&c.Control.VehicleSyncIntervalMs, DefaultVehicleSyncIntervalMs)
	setDefault(&c.Control.CameraSyncIntervalMs, DefaultCameraSyncIntervalMs)
	setDefault(&c.Control.PhotoFlashMs, DefaultPhotoFlashMs)
	if c.Control.IdleTimeoutMs == nil {
		idle := DefaultIdleTimeoutMs
		c.Control.IdleTimeoutMs = &idle
	}

	setDefault(&c.Latency.ThresholdMs, DefaultLatencyThresholdMs)
	setDefault(&c.Latency.ProbeIntervalMs, DefaultProbeIntervalMs)

	if c.Telemetry.Topic == "" {
		c.Telemetry.Topic = DefaultTelemetryTopic
	}
	setDefault(&c.Telemetry.Workers, DefaultTelemetryWorkers)
	setDefault(&c.Telemetry.QueueSize, DefaultTelemetryQueueSize)

	if c.Influx.Measurement == "" {
		c.Influx.Measurement = DefaultInfluxMeasurement
	}
}

func setDefault(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Vehicle.URL == "" {
		return fmt.Errorf("missing required field in config: vehicle.url")
	}
	u, err := url.Parse(c.Vehicle.URL)
	if err != nil {
		return fmt.Errorf("invalid vehicle.url '%s': %w", c.Vehicle.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid vehicle.url '%s': scheme must be ws or wss", c.Vehicle.URL)
	}

	nonNegative := map[string]int{
		"control.vehicle_sync_interval_ms": c.Control.VehicleSyncIntervalMs,
		"control.camera_sync_interval_ms":  c.Control.CameraSyncIntervalMs,
		"control.photo_flash_ms":           c.Control.PhotoFlashMs,
		"latency.threshold_ms":             c.Latency.ThresholdMs,
		"latency.probe_interval_ms":        c.Latency.ProbeIntervalMs,
		"vehicle.reconnect_interval_ms":    c.Vehicle.ReconnectIntervalMs,
		"vehicle.write_timeout_ms":         c.Vehicle.WriteTimeoutMs,
		"vehicle.send_queue_size":          c.Vehicle.SendQueueSize,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("invalid value for %s: %d (must not be negative)", name, v)
		}
	}
	if c.Control.IdleTimeoutMs != nil && *c.Control.IdleTimeoutMs < 0 {
		return fmt.Errorf("invalid value for control.idle_timeout_ms: %d (0 disables, must not be negative)", *c.Control.IdleTimeoutMs)
	}
	if c.Vehicle.MaxReconnectIntervalMs < c.Vehicle.ReconnectIntervalMs {
		return fmt.Errorf("invalid value for vehicle.max_reconnect_interval_ms: %d is below reconnect_interval_ms %d",
			c.Vehicle.MaxReconnectIntervalMs, c.Vehicle.ReconnectIntervalMs)
	}

	if c.Telemetry.Enabled && c.Telemetry.PublishBindAddress == "" {
		return fmt.Errorf("missing required field in config: telemetry.publish_bind_address")
	}
	if c.Influx.Enabled {
		if c.Influx.URL == "" {
			return fmt.Errorf("missing required field in config: influx.url")
		}
		if c.Influx.Org == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("missing required field in config: influx.org and influx.bucket")
		}
	}
	return nil
}

// VehicleSyncInterval is the tick cadence in vehicle mode
func (c ControlConfig) VehicleSyncInterval() time.Duration {
	return ms(c.VehicleSyncIntervalMs)
}

// CameraSyncInterval is the tick cadence in camera mode
func (c ControlConfig) CameraSyncInterval() time.Duration {
	return ms(c.CameraSyncIntervalMs)
}

// IdleTimeout returns 0 when idle detection is disabled
func (c ControlConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutMs == nil {
		return ms(DefaultIdleTimeoutMs)
	}
	return ms(*c.IdleTimeoutMs)
}

// PhotoFlash is how long the photo-taken indicator stays on
func (c ControlConfig) PhotoFlash() time.Duration {
	return ms(c.PhotoFlashMs)
}

// Threshold is the round-trip latency above which commands are withheld
func (c LatencyConfig) Threshold() time.Duration {
	return ms(c.ThresholdMs)
}

// ProbeInterval is the ping cadence while suppressed
func (c LatencyConfig) ProbeInterval() time.Duration {
	return ms(c.ProbeIntervalMs)
}

func (c VehicleConfig) ReconnectInterval() time.Duration    { return ms(c.ReconnectIntervalMs) }
func (c VehicleConfig) MaxReconnectInterval() time.Duration { return ms(c.MaxReconnectIntervalMs) }
func (c VehicleConfig) WriteTimeout() time.Duration         { return ms(c.WriteTimeoutMs) }

// ControlYAML renders the control-related sections for the console API.
func (c *Config) ControlYAML() ([]byte, error) {
	view := struct {
		Control ControlConfig `yaml:"control"`
		Latency LatencyConfig `yaml:"latency"`
	}{c.Control, c.Latency}

	data, err := yaml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("error rendering control config: %w", err)
	}
	return data, nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
