package zeromq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// ErrPublisherClosed is returned by PublishMessage after Close.
var ErrPublisherClosed = errors.New("zeromq publisher is closed")

// Publisher sends topic-framed messages on a bound PUB socket
type Publisher struct {
	socket  *zmq4.Socket
	address string
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

// NewPublisher creates a PUB socket bound to address
func NewPublisher(address string, logger customlog.Logger) (*Publisher, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	// Configure socket options
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	logger.Infof("Telemetry publisher bound on %s", address)

	return &Publisher{
		socket:  socket,
		address: address,
		logger:  logger,
		running: true,
	}, nil
}

// Address is the endpoint the socket is bound to
func (p *Publisher) Address() string {
	return p.address
}

// PublishMessage sends a message with the given topic
func (p *Publisher) PublishMessage(topic string, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrPublisherClosed
	}

	// Send two frames in sequence (topic first, then message)
	if _, err := p.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := p.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	if p.socket != nil {
		p.socket.Close()
		p.socket = nil
	}
	p.logger.Infof("Telemetry publisher on %s closed", p.address)
}
