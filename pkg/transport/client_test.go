package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// vehicleServer is a fake vehicle endpoint that records every envelope and
// lets the test push frames to the current connection.
type vehicleServer struct {
	*httptest.Server

	mu        sync.Mutex
	received  []Envelope
	passwords []string
	conns     []*ws.Conn

	// dropFirst closes the first connection right after the upgrade.
	dropFirst bool
}

func newVehicleServer(t *testing.T, dropFirst bool) *vehicleServer {
	t.Helper()
	vs := &vehicleServer{dropFirst: dropFirst}
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		vs.mu.Lock()
		vs.passwords = append(vs.passwords, r.URL.Query().Get("password"))
		vs.conns = append(vs.conns, c)
		first := len(vs.conns) == 1
		vs.mu.Unlock()

		if first && vs.dropFirst {
			return
		}

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			vs.mu.Lock()
			vs.received = append(vs.received, env)
			vs.mu.Unlock()
		}
	}))
	t.Cleanup(vs.Close)
	return vs
}

func (vs *vehicleServer) wsURL() string {
	return "ws" + strings.TrimPrefix(vs.URL, "http")
}

func (vs *vehicleServer) envelopes() []Envelope {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	cp := make([]Envelope, len(vs.received))
	copy(cp, vs.received)
	return cp
}

func (vs *vehicleServer) push(t *testing.T, frame string) {
	t.Helper()
	var c *ws.Conn
	require.Eventually(t, func() bool {
		vs.mu.Lock()
		defer vs.mu.Unlock()
		if len(vs.conns) == 0 {
			return false
		}
		c = vs.conns[len(vs.conns)-1]
		return true
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.WriteMessage(ws.TextMessage, []byte(frame)))
}

func startClient(t *testing.T, opts Options, d *Dispatcher, setup ...func(*Client)) (*Client, <-chan struct{}) {
	t.Helper()
	if d == nil {
		d = NewDispatcher(customlog.Discard())
	}
	client := NewClient(opts, d, customlog.Discard())
	connected := make(chan struct{}, 4)
	client.OnConnect(func() { connected <- struct{}{} })
	for _, fn := range setup {
		fn(client)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
		<-done
	})
	return client, connected
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
	}
}

func TestClientSendsEnvelopesWithPassword(t *testing.T) {
	vs := newVehicleServer(t, false)
	client, connected := startClient(t, Options{URL: vs.wsURL(), Password: "s3cret"}, nil)
	waitFor(t, connected)

	require.NoError(t, client.Send(EventCommand, map[string]interface{}{"drive": 40, "steer": nil, "device": "vehicle"}))
	require.NoError(t, client.Send(EventLatencyProblem, nil))

	assert.Eventually(t, func() bool { return len(vs.envelopes()) == 2 }, 2*time.Second, 10*time.Millisecond)
	got := vs.envelopes()
	assert.Equal(t, EventCommand, got[0].Event)
	assert.JSONEq(t, `{"drive":40,"steer":null,"device":"vehicle"}`, string(got[0].Data))
	assert.Equal(t, EventLatencyProblem, got[1].Event)
	assert.Empty(t, got[1].Data)

	vs.mu.Lock()
	assert.Equal(t, []string{"s3cret"}, vs.passwords)
	vs.mu.Unlock()
}

func TestClientDispatchesInboundEvents(t *testing.T) {
	vs := newVehicleServer(t, false)
	d := NewDispatcher(customlog.Discard())
	statuses := make(chan string, 1)
	d.RegisterHandlerFunc(EventCommandStatus, func(data []byte) error {
		statuses <- string(data)
		return nil
	})
	_, connected := startClient(t, Options{URL: vs.wsURL()}, d)
	waitFor(t, connected)

	vs.push(t, `{"event":"video_frame","data":{"image":"AA=="}}`)
	vs.push(t, `{"event":"command_status","data":{"drive":40,"steer":null}}`)

	select {
	case data := <-statuses:
		assert.JSONEq(t, `{"drive":40,"steer":null}`, data)
	case <-time.After(2 * time.Second):
		t.Fatal("command_status was not dispatched")
	}
}

func TestClientSendWhileDisconnectedIsDropped(t *testing.T) {
	client := NewClient(Options{URL: "ws://127.0.0.1:1"}, NewDispatcher(customlog.Discard()), customlog.Discard())

	err := client.Send(EventIdle, true)
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.True(t, errors.Is(client.Probe(1), ErrNotConnected))
	assert.Equal(t, int64(1), client.Dropped())
}

func TestClientProbeRoundTrip(t *testing.T) {
	vs := newVehicleServer(t, false)
	pongs := make(chan uint64, 1)
	client, connected := startClient(t, Options{URL: vs.wsURL()}, nil, func(c *Client) {
		c.OnPong(func(seq uint64) { pongs <- seq })
	})
	waitFor(t, connected)

	require.NoError(t, client.Probe(7))

	select {
	case seq := <-pongs:
		assert.Equal(t, uint64(7), seq)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	vs := newVehicleServer(t, true)
	client, connected := startClient(t, Options{
		URL:                  vs.wsURL(),
		ReconnectInterval:    10 * time.Millisecond,
		MaxReconnectInterval: 20 * time.Millisecond,
	}, nil)

	waitFor(t, connected)
	waitFor(t, connected)
	assert.GreaterOrEqual(t, client.Connects(), int64(2))
}
