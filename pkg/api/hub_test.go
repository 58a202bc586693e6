package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/operator/domain/teleop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

func drain(c *ConsoleClient) []string {
	var out []string
	for {
		select {
		case frame, ok := <-c.Frames():
			if !ok {
				return out
			}
			out = append(out, string(frame))
		default:
			return out
		}
	}
}

func TestHubBroadcastsToEveryConsole(t *testing.T) {
	hub := NewConsoleHub(4, customlog.Discard())
	a, b := hub.Register(), hub.Register()
	require.Equal(t, 2, hub.Clients())

	hub.Broadcast(transport.EventPhotoTaken, true)

	assert.Equal(t, []string{`{"event":"photo_taken","data":true}`}, drain(a))
	assert.Equal(t, []string{`{"event":"photo_taken","data":true}`}, drain(b))
}

func TestHubReplaysStickyState(t *testing.T) {
	hub := NewConsoleHub(4, customlog.Discard())

	hub.ModeChanged(teleop.ModeCamera)
	hub.IdleChanged(true)
	hub.IdleChanged(false)
	hub.SuppressionChanged(true, time.Second)
	hub.Broadcast(transport.EventAlbum, []string{"p1"})
	hub.Broadcast(transport.EventVideoFrame, map[string]string{"image": "AAAA"})

	late := hub.Register()
	assert.Equal(t, []string{
		`{"event":"mode","data":"camera"}`,
		`{"event":"idle","data":false}`,
		`{"event":"latency_warning","data":true}`,
		`{"event":"album","data":["p1"]}`,
	}, drain(late), "only the latest sticky state is replayed, video is not")
}

func TestHubDropsForSlowConsole(t *testing.T) {
	hub := NewConsoleHub(2, customlog.Discard())
	slow := hub.Register()

	// The queue also reserves room for the sticky replay.
	capacity := 2 + len(stickyEvents)
	for i := 0; i < capacity+3; i++ {
		hub.Broadcast(transport.EventVideoFrame, i)
	}

	assert.Len(t, drain(slow), capacity)
	assert.Equal(t, int64(3), hub.Dropped())
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	hub := NewConsoleHub(2, customlog.Discard())
	c := hub.Register()

	hub.Unregister(c)
	hub.Unregister(c)
	hub.Broadcast(transport.EventIdle, true)

	_, ok := <-c.Frames()
	assert.False(t, ok)
	assert.Zero(t, hub.Clients())
}

func TestHubClose(t *testing.T) {
	hub := NewConsoleHub(2, customlog.Discard())
	c := hub.Register()

	hub.Close()
	hub.Unregister(c)

	_, ok := <-c.Frames()
	assert.False(t, ok)
	assert.Zero(t, hub.Clients())
}
