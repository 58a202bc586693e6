// Package transport maintains the WebSocket link to the vehicle. Outbound
// frames go through a bounded queue drained by a single writer; delivery is
// at-most-once and nothing is retried.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// Options configures a Client
type Options struct {
	URL                  string
	Password             string
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	WriteTimeout         time.Duration
	QueueSize            int
}

func (o *Options) applyDefaults() {
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = time.Second
	}
	if o.MaxReconnectInterval < o.ReconnectInterval {
		o.MaxReconnectInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 2 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
}

// Client is the vehicle link. Send and Probe may be called from any
// goroutine; inbound frames are dispatched on the read goroutine.
type Client struct {
	opts       Options
	dispatcher *Dispatcher
	logger     customlog.Logger
	dialer     *ws.Dialer

	sendCh chan []byte

	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	done   chan struct{}

	onConnect    func()
	onDisconnect func(err error)
	onPong       func(seq uint64)

	connects atomic.Int64
	dropped  atomic.Int64
}

// NewClient creates a disconnected client; call Run to start dialling.
func NewClient(opts Options, dispatcher *Dispatcher, logger customlog.Logger) *Client {
	opts.applyDefaults()
	return &Client{
		opts:       opts,
		dispatcher: dispatcher,
		logger:     logger,
		dialer:     ws.DefaultDialer,
		sendCh:     make(chan []byte, opts.QueueSize),
		done:       make(chan struct{}),
	}
}

// OnConnect registers fn to run after every successful dial.
func (c *Client) OnConnect(fn func()) { c.onConnect = fn }

// OnDisconnect registers fn to run when an established link drops.
func (c *Client) OnDisconnect(fn func(err error)) { c.onDisconnect = fn }

// OnPong registers fn to receive probe replies.
func (c *Client) OnPong(fn func(seq uint64)) { c.onPong = fn }

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connects counts successful dials.
func (c *Client) Connects() int64 { return c.connects.Load() }

// Dropped counts outbound frames that were discarded.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Send queues one event for the vehicle. It never blocks: when the link is
// down or the queue is full the frame is dropped and an error returned.
func (c *Client) Send(event string, payload interface{}) error {
	if !c.Connected() {
		c.dropped.Add(1)
		return ErrNotConnected
	}
	frame, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	select {
	case c.sendCh <- frame:
		return nil
	default:
		c.dropped.Add(1)
		return ErrQueueFull
	}
}

// Probe writes a ping frame carrying seq. The reply arrives through the
// OnPong callback.
func (c *Client) Probe(seq uint64) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	payload := []byte(strconv.FormatUint(seq, 10))
	if err := conn.WriteControl(ws.PingMessage, payload, time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Run dials the vehicle and keeps the link up, reconnecting with
// exponential backoff, until ctx is cancelled or Close is called.
func (c *Client) Run(ctx context.Context) error {
	target, err := c.target()
	if err != nil {
		return err
	}

	backoff := c.opts.ReconnectInterval
	for attempt := 1; ; attempt++ {
		if c.isClosed() {
			return ErrClientClosed
		}

		conn, _, err := c.dialer.DialContext(ctx, target, nil)
		if err == nil {
			c.logger.Infof("Connected to vehicle at %s", c.opts.URL)
			attempt = 0
			backoff = c.opts.ReconnectInterval
			linkErr := c.serve(ctx, conn)
			if c.isClosed() || ctx.Err() != nil {
				return nil
			}
			c.logger.Warnf("Vehicle link lost: %v", linkErr)
			if c.onDisconnect != nil {
				c.onDisconnect(linkErr)
			}
		} else {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warnf("Vehicle dial failed (attempt %d): %v", attempt, err)
		}

		c.logger.Infof("Reconnecting to vehicle in %v", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.opts.MaxReconnectInterval {
			backoff = c.opts.MaxReconnectInterval
		}
	}
}

// serve runs the read and write loops for one connection and returns when
// either fails.
func (c *Client) serve(ctx context.Context, conn *ws.Conn) error {
	conn.SetPongHandler(func(appData string) error {
		seq, err := strconv.ParseUint(appData, 10, 64)
		if err != nil {
			c.logger.Debugf("Ignoring pong with payload %q", appData)
			return nil
		}
		if c.onPong != nil {
			c.onPong(seq)
		}
		return nil
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	c.mu.Unlock()
	c.drain()

	c.connects.Add(1)
	if c.onConnect != nil {
		c.onConnect()
	}

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(conn, stop)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	err := c.readLoop(conn)

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	close(stop)
	_ = conn.Close()
	<-writerDone
	return err
}

// writeLoop drains sendCh and writes frames to conn. A failed write closes
// the connection so the read loop returns too.
func (c *Client) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case frame := <-c.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.logger.Warnf("Vehicle link SetWriteDeadline error: %v", err)
				_ = conn.Close()
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, frame); err != nil {
				c.logger.Warnf("Vehicle link write error: %v", err)
				_ = conn.Close()
				return
			}
		}
	}
}

// readLoop dispatches inbound frames until the connection fails.
func (c *Client) readLoop(conn *ws.Conn) error {
	for {
		mt, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != ws.TextMessage {
			c.logger.Debugf("Ignoring non-text vehicle frame type: %d", mt)
			continue
		}
		if err := c.dispatcher.Dispatch(frame); err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				c.logger.Debugf("Vehicle frame not handled: %v", err)
			} else {
				c.logger.Warnf("Vehicle frame rejected: %v", err)
			}
		}
	}
}

// drain discards frames queued for a previous connection.
func (c *Client) drain() {
	for {
		select {
		case <-c.sendCh:
			c.dropped.Add(1)
		default:
			return
		}
	}
}

func (c *Client) target() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", fmt.Errorf("invalid vehicle URL: %w", err)
	}
	if c.opts.Password != "" {
		q := u.Query()
		q.Set("password", c.opts.Password)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close sends a close frame and stops Run.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(c.opts.WriteTimeout),
		)
		return conn.Close()
	}
	return nil
}
