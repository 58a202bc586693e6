package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/operator/domain/teleop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

// SessionControl is the part of the teleop service the console drives.
type SessionControl interface {
	HandleGesture(ev teleop.GestureEvent)
	SetMode(mode teleop.DeviceMode)
}

// PhotoControl is the part of the media service the console drives.
type PhotoControl interface {
	TakePhoto()
	DeletePhoto(id string) error
}

// NewConsoleDispatcher routes inbound console events to the session and
// media services.
func NewConsoleDispatcher(session SessionControl, photos PhotoControl, logger customlog.Logger) *transport.Dispatcher {
	d := transport.NewDispatcher(logger)

	d.RegisterHandlerFunc(transport.EventGesture, func(data []byte) error {
		var ev teleop.GestureEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("invalid gesture: %w", err)
		}
		session.HandleGesture(ev)
		return nil
	})

	d.RegisterHandlerFunc(transport.EventMode, func(data []byte) error {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid mode: %w", err)
		}
		mode, err := teleop.ParseDeviceMode(raw)
		if err != nil {
			return err
		}
		session.SetMode(mode)
		return nil
	})

	d.RegisterHandlerFunc(transport.EventPhoto, func([]byte) error {
		photos.TakePhoto()
		return nil
	})

	d.RegisterHandlerFunc(transport.EventDeletePhoto, func(data []byte) error {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("invalid photo id: %w", err)
		}
		return photos.DeletePhoto(id)
	})

	return d
}

// UpgradeMiddleware rejects plain HTTP requests to the console socket.
func UpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ConsoleWebSocketHandler serves one operator console connection: frames
// queued by the hub are written out while inbound events are dispatched.
func ConsoleWebSocketHandler(hub *ConsoleHub, dispatcher *transport.Dispatcher, logger customlog.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		logger.Infof("Console WebSocket connected: %s", conn.RemoteAddr())
		client := hub.Register()

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for frame := range client.Frames() {
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					logger.Debugf("Console WS write failed: %v", err)
					// Unblock the reader so the handler returns.
					conn.Close()
					for range client.Frames() {
					}
					return
				}
			}
		}()

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
					!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
					logger.Errorf("Console WS read error: %v", err)
				} else {
					logger.Infof("Console WS connection closed: %v", err)
				}
				break
			}
			if mt != websocket.TextMessage {
				logger.Debugf("Ignoring non-text console message type: %d", mt)
				continue
			}
			if err := dispatcher.Dispatch(msg); err != nil {
				logger.Warnf("Console event rejected: %v", err)
			}
		}

		hub.Unregister(client)
		<-writerDone
		logger.Infof("Console WebSocket disconnected: %s", conn.RemoteAddr())
	})
}
