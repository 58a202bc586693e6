package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BootstrapFileName), []byte(content), 0644))
	return dir
}

func TestLoadBootstrapConfig(t *testing.T) {
	dir := writeConfig(t, `
logging:
  level: "debug"
server:
  http_port: 9090
vehicle:
  url: "ws://rover.local:8000/ws"
  password: "hunter2"
control:
  vehicle_sync_interval_ms: 30
  camera_sync_interval_ms: 60
  idle_timeout_ms: 5000
latency:
  threshold_ms: 250
telemetry:
  enabled: true
  publish_bind_address: "tcp://*:5560"
`)

	cfg, err := LoadBootstrapConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "ws://rover.local:8000/ws", cfg.Vehicle.URL)
	assert.Equal(t, "hunter2", cfg.Vehicle.Password)
	assert.Equal(t, 30*time.Millisecond, cfg.Control.VehicleSyncInterval())
	assert.Equal(t, 60*time.Millisecond, cfg.Control.CameraSyncInterval())
	assert.Equal(t, 5*time.Second, cfg.Control.IdleTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.Latency.Threshold())

	// defaults for omitted fields
	assert.Equal(t, DefaultPhotoFlashMs, cfg.Control.PhotoFlashMs)
	assert.Equal(t, DefaultProbeIntervalMs, cfg.Latency.ProbeIntervalMs)
	assert.Equal(t, DefaultTelemetryTopic, cfg.Telemetry.Topic)
	assert.Equal(t, DefaultSendQueueSize, cfg.Vehicle.SendQueueSize)
}

func TestDefaultsWhenSectionsMissing(t *testing.T) {
	cfg, err := Parse([]byte(`vehicle: {url: "ws://localhost:8000/ws"}`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Equal(t, 25*time.Millisecond, cfg.Control.VehicleSyncInterval())
	assert.Equal(t, 50*time.Millisecond, cfg.Control.CameraSyncInterval())
	assert.Equal(t, 10*time.Second, cfg.Control.IdleTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Latency.Threshold())
}

func TestIdleTimeoutZeroDisables(t *testing.T) {
	cfg, err := Parse([]byte(`
vehicle: {url: "ws://localhost:8000/ws"}
control:
  idle_timeout_ms: 0
`))
	require.NoError(t, err)

	require.NotNil(t, cfg.Control.IdleTimeoutMs)
	assert.Equal(t, time.Duration(0), cfg.Control.IdleTimeout())
}

func TestPortEnvironmentOverride(t *testing.T) {
	t.Setenv("PORT", "7070")

	cfg, err := Parse([]byte(`vehicle: {url: "ws://localhost:8000/ws"}`))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort)

	t.Setenv("PORT", "seventy")
	_, err = Parse([]byte(`vehicle: {url: "ws://localhost:8000/ws"}`))
	assert.ErrorContains(t, err, "invalid PORT")
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing url", `server: {http_port: 80}`, "vehicle.url"},
		{"bad scheme", `vehicle: {url: "http://rover:8000"}`, "scheme must be ws or wss"},
		{"negative idle", "vehicle: {url: \"ws://r\"}\ncontrol: {idle_timeout_ms: -1}", "control.idle_timeout_ms"},
		{"negative threshold", "vehicle: {url: \"ws://r\"}\nlatency: {threshold_ms: -5}", "latency.threshold_ms"},
		{"negative probe interval", "vehicle: {url: \"ws://r\"}\nlatency: {probe_interval_ms: -1}", "latency.probe_interval_ms: -1 (must not be negative)"},
		{"telemetry without address", "vehicle: {url: \"ws://r\"}\ntelemetry: {enabled: true}", "telemetry.publish_bind_address"},
		{"influx without bucket", "vehicle: {url: \"ws://r\"}\ninflux: {enabled: true, url: \"http://influx:8086\", org: o}", "influx.org and influx.bucket"},
		{"backoff inverted", "vehicle: {url: \"ws://r\", reconnect_interval_ms: 5000, max_reconnect_interval_ms: 1000}", "max_reconnect_interval_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestZeroIntervalsTakeDefaults(t *testing.T) {
	cfg, err := Parse([]byte("vehicle: {url: \"ws://r\"}\nlatency: {threshold_ms: 0, probe_interval_ms: 0}"))
	require.NoError(t, err, "zero is accepted and means the default")
	assert.Equal(t, DefaultLatencyThresholdMs, cfg.Latency.ThresholdMs)
	assert.Equal(t, DefaultProbeIntervalMs, cfg.Latency.ProbeIntervalMs)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadBootstrapConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "vehicle: [unterminated")
	_, err := LoadBootstrapConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing config file")
}

func TestControlYAML(t *testing.T) {
	cfg, err := Parse([]byte(`vehicle: {url: "ws://localhost:8000/ws", password: secret}`))
	require.NoError(t, err)

	data, err := cfg.ControlYAML()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "vehicle_sync_interval_ms: 25")
	assert.Contains(t, out, "threshold_ms: 500")
	assert.NotContains(t, out, "secret")
}

func TestShippedConfigLoads(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := LoadBootstrapConfig(filepath.Join("..", "..", "config"))
	require.NoError(t, err)

	assert.Equal(t, 25*time.Millisecond, cfg.Control.VehicleSyncInterval())
	assert.Equal(t, 10*time.Second, cfg.Control.IdleTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Latency.Threshold())
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Influx.Enabled)
}
