package telemetry

import (
	"sync/atomic"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/operator/domain/teleop"
	fb "github.com/open-teleop/operator/pkg/flatbuffers/teleop/telemetry"
	customlog "github.com/open-teleop/operator/pkg/log"
)

// Clock stamps events that carry no time of their own. The session's loop
// satisfies it, so every event shares the clock CommandSent times come from.
type Clock interface {
	Now() time.Time
}

// Submitter accepts encoded events without blocking.
type Submitter interface {
	Submit(ev *fb.LinkEvent) bool
}

// Recorder is a session observer that encodes every event and submits it.
// Its methods run on the event loop, which also owns the builder.
type Recorder struct {
	sink    Submitter
	clock   Clock
	logger  customlog.Logger
	builder *flatbuffers.Builder
	mode    teleop.DeviceMode

	submitted atomic.Int64
	dropped   atomic.Int64
}

var _ teleop.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder that feeds sink.
func NewRecorder(sink Submitter, clock Clock, initial teleop.DeviceMode, logger customlog.Logger) *Recorder {
	return &Recorder{
		sink:    sink,
		clock:   clock,
		logger:  logger,
		builder: flatbuffers.NewBuilder(128),
		mode:    initial,
	}
}

// Submitted counts accepted events.
func (r *Recorder) Submitted() int64 { return r.submitted.Load() }

// Dropped counts events the sink refused.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) CommandSent(cmd teleop.CommandMessage, at time.Time) {
	r.record(Event{Kind: fb.LinkEventKindCommandSent, At: at, Device: string(cmd.Device), Drive: cmd.Drive, Steer: cmd.Steer})
}

func (r *Recorder) CommandAcknowledged(status teleop.CommandStatus, rtt time.Duration, measured bool) {
	e := Event{Kind: fb.LinkEventKindCommandAck, At: r.clock.Now(), Device: string(r.mode), Drive: status.Drive, Steer: status.Steer}
	if measured {
		e.RTT = rtt
	}
	r.record(e)
}

func (r *Recorder) SuppressionChanged(suppressed bool, rtt time.Duration) {
	r.record(Event{Kind: fb.LinkEventKindSuppressionChanged, At: r.clock.Now(), Device: string(r.mode), RTT: rtt, Flag: suppressed})
}

func (r *Recorder) IdleChanged(idle bool) {
	r.record(Event{Kind: fb.LinkEventKindIdleChanged, At: r.clock.Now(), Device: string(r.mode), Flag: idle})
}

func (r *Recorder) ModeChanged(mode teleop.DeviceMode) {
	r.mode = mode
	r.record(Event{Kind: fb.LinkEventKindModeChanged, At: r.clock.Now(), Device: string(mode)})
}

func (r *Recorder) record(e Event) {
	if r.sink.Submit(Root(Encode(r.builder, e))) {
		r.submitted.Add(1)
		return
	}
	if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
		r.logger.Warnf("Telemetry backlog: %d link events dropped", n)
	}
}
