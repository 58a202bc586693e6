package teleop

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
)

func newTestService(t *testing.T) *TeleopService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New(16, customlog.Discard())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	svc := NewTeleopService(loop, &fakeChannel{}, nil, nil, customlog.Discard(), DefaultOptions())
	svc.Start()
	return svc
}

func TestTeleopServiceAppliesEventsOnLoop(t *testing.T) {
	svc := newTestService(t)

	svc.HandleGesture(GestureEvent{Axis: AxisDrive, Phase: PhaseStart})
	svc.HandleGesture(GestureEvent{Axis: AxisDrive, Phase: PhaseMove, Force: 0.5, Direction: &Direction{Y: DirDown}})
	svc.HandleCommandStatus([]byte(`{"drive":"-50","steer":null}`))
	svc.SetMode(ModeCamera)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, ModeCamera, snap.Mode)
	assert.Equal(t, ptr(-50), snap.Axes[0].Value)
	assert.Equal(t, ptr(-50), snap.Axes[0].Baseline)

	require.NoError(t, svc.Close(ctx))
}

func TestModeHandler(t *testing.T) {
	svc := newTestService(t)
	app := fiber.New()
	app.Post("/mode", svc.ModeHandler)
	app.Get("/session", svc.SessionHandler)

	req := httptest.NewRequest("POST", "/mode", strings.NewReader(`{"mode":"boat"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("POST", "/mode", strings.NewReader(`{"mode":"camera"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/session", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, ModeCamera, snap.Mode)
}
