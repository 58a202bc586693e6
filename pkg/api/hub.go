package api

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/open-teleop/operator/domain/teleop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

// DefaultClientBuffer is the per-console outbound queue length.
const DefaultClientBuffer = 32

// stickyEvents are replayed to a console when it connects, in this order.
var stickyEvents = []string{
	transport.EventMode,
	transport.EventIdle,
	transport.EventLatencyWarning,
	transport.EventAlbum,
}

// ConsoleHub fans events out to every connected operator console. It is a
// session observer, so suppression, idle and mode changes reach the UI
// without further wiring.
type ConsoleHub struct {
	teleop.NopObserver

	logger customlog.Logger
	buffer int

	mu      sync.RWMutex
	clients map[*ConsoleClient]struct{}
	last    map[string][]byte

	dropped atomic.Int64
}

var _ teleop.Observer = (*ConsoleHub)(nil)

// ConsoleClient is one registered console. Frames arrive on Frames until
// the client is unregistered.
type ConsoleClient struct {
	frames chan []byte
	once   sync.Once
}

// Frames returns the queue of encoded envelopes for this console.
func (c *ConsoleClient) Frames() <-chan []byte { return c.frames }

func (c *ConsoleClient) close() { c.once.Do(func() { close(c.frames) }) }

// NewConsoleHub creates an empty hub. A non-positive buffer uses
// DefaultClientBuffer.
func NewConsoleHub(buffer int, logger customlog.Logger) *ConsoleHub {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &ConsoleHub{
		logger:  logger,
		buffer:  buffer,
		clients: make(map[*ConsoleClient]struct{}),
		last:    make(map[string][]byte),
	}
}

// Register adds a console and queues the latest sticky state for it.
func (h *ConsoleHub) Register() *ConsoleClient {
	c := &ConsoleClient{frames: make(chan []byte, h.buffer+len(stickyEvents))}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, event := range stickyEvents {
		if frame, ok := h.last[event]; ok {
			c.frames <- frame
		}
	}
	h.clients[c] = struct{}{}
	h.logger.Infof("Console connected (%d active)", len(h.clients))
	return c
}

// Unregister removes a console and closes its queue. It is safe to call
// more than once.
func (h *ConsoleHub) Unregister(c *ConsoleClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.logger.Infof("Console disconnected (%d active)", len(h.clients))
	}
	h.mu.Unlock()
	c.close()
}

// Clients returns the number of connected consoles.
func (h *ConsoleHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts frames discarded because a console fell behind.
func (h *ConsoleHub) Dropped() int64 { return h.dropped.Load() }

// Broadcast encodes one envelope and offers it to every console. A console
// whose queue is full misses the frame.
func (h *ConsoleHub) Broadcast(event string, payload interface{}) {
	frame, err := transport.NewEnvelope(event, payload)
	if err != nil {
		h.logger.Errorf("Failed to encode console %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if isSticky(event) {
		h.last[event] = frame
	}
	for c := range h.clients {
		select {
		case c.frames <- frame:
		default:
			if n := h.dropped.Add(1); n == 1 || n%100 == 0 {
				h.logger.Debugf("Console queue full, %d frames dropped so far", n)
			}
		}
	}
}

// Close unregisters every console.
func (h *ConsoleHub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*ConsoleClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *ConsoleHub) SuppressionChanged(suppressed bool, _ time.Duration) {
	h.Broadcast(transport.EventLatencyWarning, suppressed)
}

func (h *ConsoleHub) IdleChanged(idle bool) {
	h.Broadcast(transport.EventIdle, idle)
}

func (h *ConsoleHub) ModeChanged(mode teleop.DeviceMode) {
	h.Broadcast(transport.EventMode, mode)
}

func isSticky(event string) bool {
	for _, e := range stickyEvents {
		if e == event {
			return true
		}
	}
	return false
}
