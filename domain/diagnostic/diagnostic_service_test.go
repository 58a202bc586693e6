package diagnostic

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/operator/domain/teleop"
)

type stubLink struct{}

func (stubLink) Connected() bool { return true }
func (stubLink) Connects() int64 { return 3 }
func (stubLink) Dropped() int64  { return 7 }

func TestMetricsAggregateSessionEvents(t *testing.T) {
	svc := NewDiagnosticService(stubLink{})
	at := time.Now()

	svc.CommandSent(teleop.CommandMessage{}, at)
	svc.CommandSent(teleop.CommandMessage{}, at)
	svc.CommandAcknowledged(teleop.CommandStatus{}, 10*time.Millisecond, true)
	svc.CommandAcknowledged(teleop.CommandStatus{}, 30*time.Millisecond, true)
	svc.CommandAcknowledged(teleop.CommandStatus{}, 0, false)
	svc.SuppressionChanged(true, time.Second)
	svc.SuppressionChanged(false, time.Millisecond)
	svc.IdleChanged(true)
	svc.ModeChanged(teleop.ModeCamera)

	m := svc.GetMetrics()
	assert.Equal(t, int64(2), m.CommandsSent)
	assert.Equal(t, int64(3), m.Acks)
	assert.Equal(t, int64(2), m.MeasuredAcks)
	assert.Equal(t, 30.0, m.LastRTTMs)
	assert.Equal(t, 20.0, m.AvgRTTMs)
	assert.Equal(t, 30.0, m.MaxRTTMs)
	assert.Equal(t, int64(1), m.Suppressions)
	assert.False(t, m.Suppressed)
	assert.True(t, m.Idle)
	assert.Equal(t, teleop.ModeCamera, m.Mode)
	assert.True(t, m.Connected)
	assert.Equal(t, int64(3), m.Connects)
	assert.Equal(t, int64(7), m.Dropped)
	require.NotNil(t, m.LastCommandAt)
	assert.NotEmpty(t, m.LastCommandAgo)
}

func TestGetMetricsHandler(t *testing.T) {
	svc := NewDiagnosticService(nil)
	svc.CommandSent(teleop.CommandMessage{}, time.Now())

	app := fiber.New()
	app.Get("/diagnostics", svc.GetMetricsHandler)
	resp, err := app.Test(httptest.NewRequest("GET", "/diagnostics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out struct {
		Status  string      `json:"status"`
		Metrics LinkMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, int64(1), out.Metrics.CommandsSent)
	assert.False(t, out.Metrics.Connected)
}

func TestLinkDropped(t *testing.T) {
	svc := NewDiagnosticService(nil)

	svc.LinkDropped(errors.New("read: connection reset"))
	svc.LinkDropped(nil)

	m := svc.GetMetrics()
	assert.Equal(t, int64(2), m.Disconnects)
	assert.Equal(t, "read: connection reset", m.LastLinkError)
}
