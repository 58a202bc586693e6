package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// Common errors
var (
	ErrNotConnected   = errors.New("vehicle link is not connected")
	ErrQueueFull      = errors.New("vehicle link send queue is full")
	ErrClientClosed   = errors.New("vehicle link client is closed")
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownEvent   = errors.New("unknown event")
)

// Envelope is the JSON frame exchanged with the vehicle
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes payload under the given event name. A nil payload
// leaves data out of the frame.
func NewEnvelope(event string, payload interface{}) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Handler defines the interface for handlers that process one inbound event
type Handler interface {
	HandleEvent(data []byte) error
}

// HandlerFunc is a function type that implements Handler
type HandlerFunc func(data []byte) error

// HandleEvent calls the function
func (f HandlerFunc) HandleEvent(data []byte) error {
	return f(data)
}

// Dispatcher routes inbound frames to the handler registered for their event
type Dispatcher struct {
	handlers map[string]Handler
	logger   customlog.Logger
	mu       sync.RWMutex
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(logger customlog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// RegisterHandler adds a handler for a specific event
func (d *Dispatcher) RegisterHandler(event string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[event] = handler
	d.logger.Debugf("Registered handler for event: %s", event)
}

// RegisterHandlerFunc adds a function handler for a specific event
func (d *Dispatcher) RegisterHandlerFunc(event string, fn func(data []byte) error) {
	d.RegisterHandler(event, HandlerFunc(fn))
}

// Dispatch decodes one frame and hands its data to the matching handler
func (d *Dispatcher) Dispatch(frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Event == "" {
		return fmt.Errorf("%w: missing event name", ErrInvalidMessage)
	}

	d.mu.RLock()
	handler, exists := d.handlers[env.Event]
	d.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, env.Event)
	}
	if err := handler.HandleEvent(env.Data); err != nil {
		return fmt.Errorf("handler for %s failed: %w", env.Event, err)
	}
	return nil
}
