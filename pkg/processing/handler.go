package processing

import (
	"errors"
	"fmt"

	telemetry "github.com/open-teleop/operator/pkg/flatbuffers/teleop/telemetry"
	customlog "github.com/open-teleop/operator/pkg/log"
)

// MessagePublisher defines the interface for publishing messages
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// EventWriter stores a decoded link event, e.g. in a time-series database
type EventWriter interface {
	WriteLinkEvent(ev *telemetry.LinkEvent) error
}

// NewFanoutProcessor returns an EventProcessor that publishes the raw
// FlatBuffer on topic and hands the decoded event to each writer. Either
// side may be nil.
func NewFanoutProcessor(publisher MessagePublisher, topic string, writers ...EventWriter) EventProcessor {
	return func(ev *telemetry.LinkEvent) error {
		var errs []error
		if publisher != nil {
			if err := publisher.PublishMessage(topic, ev.Table().Bytes); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", ev.Kind(), err))
			}
		}
		for _, w := range writers {
			if w == nil {
				continue
			}
			if err := w.WriteLinkEvent(ev); err != nil {
				errs = append(errs, fmt.Errorf("write %s: %w", ev.Kind(), err))
			}
		}
		return errors.Join(errs...)
	}
}

// LoggingResultHandler logs processing results
type LoggingResultHandler struct {
	logger customlog.Logger
}

// NewLoggingResultHandler creates a new logging result handler
func NewLoggingResultHandler(logger customlog.Logger) *LoggingResultHandler {
	return &LoggingResultHandler{logger: logger}
}

// HandleResult handles a processed event result
func (h *LoggingResultHandler) HandleResult(result *ProcessResult) {
	if result.Error != nil {
		h.logger.Warnf("Failed to export %s link event: %v", result.Kind, result.Error)
		return
	}
	h.logger.Debugf("Exported %s link event (%d bytes, timestamp: %d)", result.Kind, result.Size, result.Timestamp)
}

// CreateHandlerFunc creates a ResultHandler function for the ProcessingPool
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(processResult *ProcessResult) {
		if processResult == nil {
			h.logger.Errorf("Received nil ProcessResult")
			return
		}
		h.HandleResult(processResult)
	}
}
