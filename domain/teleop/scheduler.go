package teleop

import (
	"time"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

// Channel is the outbound side of the vehicle link. Delivery is
// best-effort; an error means the message was dropped.
type Channel interface {
	Send(event string, payload interface{}) error
}

// SchedulerOptions holds the per-mode tick cadence.
type SchedulerOptions struct {
	VehicleInterval time.Duration
	CameraInterval  time.Duration
}

// CommandScheduler emits at most one CommandMessage per tick. Vehicle
// commands are positional, so they are only sent when some axis differs
// from the acknowledged baseline; camera commands are incremental and are
// sent every tick.
type CommandScheduler struct {
	clock    eventloop.Scheduler
	channel  Channel
	latency  *LatencyMonitor
	observer Observer
	logger   customlog.Logger

	drive, steer *Axis
	mode         DeviceMode
	intervals    map[DeviceMode]time.Duration

	tick    eventloop.Slot
	running bool
}

// NewCommandScheduler creates a stopped scheduler in vehicle mode.
func NewCommandScheduler(clock eventloop.Scheduler, channel Channel, latency *LatencyMonitor, observer Observer, logger customlog.Logger, drive, steer *Axis, opts SchedulerOptions) *CommandScheduler {
	return &CommandScheduler{
		clock:    clock,
		channel:  channel,
		latency:  latency,
		observer: observer,
		logger:   logger,
		drive:    drive,
		steer:    steer,
		mode:     ModeVehicle,
		intervals: map[DeviceMode]time.Duration{
			ModeVehicle: opts.VehicleInterval,
			ModeCamera:  opts.CameraInterval,
		},
	}
}

// Start arms the tick timer for the current mode.
func (s *CommandScheduler) Start() {
	s.running = true
	s.Reschedule()
}

// Stop cancels the tick timer.
func (s *CommandScheduler) Stop() {
	s.running = false
	s.tick.Stop()
}

// Mode is the current device mode.
func (s *CommandScheduler) Mode() DeviceMode {
	return s.mode
}

// Interval is the tick cadence for the current mode.
func (s *CommandScheduler) Interval() time.Duration {
	return s.intervals[s.mode]
}

// SetMode switches the device mode and restarts the tick timer with the new
// cadence. It reports whether the mode changed.
func (s *CommandScheduler) SetMode(mode DeviceMode) bool {
	if mode == s.mode {
		return false
	}
	s.logger.Infof("Device mode %s -> %s", s.mode, mode)
	s.mode = mode
	s.Reschedule()
	return true
}

// Reschedule replaces the tick timer. It is called on mode changes and axis
// activity toggles; the previous timer is stopped before the new one exists.
func (s *CommandScheduler) Reschedule() {
	if !s.running {
		return
	}
	interval := s.Interval()
	if interval <= 0 {
		s.logger.Errorf("No tick interval configured for mode %s", s.mode)
		s.tick.Stop()
		return
	}
	s.tick.Replace(s.clock.Every(interval, s.OnTick))
}

// OnTick runs one emission decision.
func (s *CommandScheduler) OnTick() {
	drive, steer := s.drive.Value(), s.steer.Value()

	if s.latency.Suppressed() {
		return
	}
	if s.mode == ModeVehicle && !s.drive.Differs(drive) && !s.steer.Differs(steer) {
		return
	}

	cmd := CommandMessage{Drive: drive, Steer: steer, Device: s.mode}
	now := s.clock.Now()
	s.latency.RecordSend(now)
	if err := s.channel.Send(transport.EventCommand, cmd); err != nil {
		s.logger.Debugf("Command dropped (drive=%s steer=%s): %v", formatValue(drive), formatValue(steer), err)
	}
	s.observer.CommandSent(cmd, now)
}

// OnAck applies a command_status. Baselines are overwritten, nulls
// included, unless emission is currently suppressed; the outstanding
// latency sample is resolved either way.
func (s *CommandScheduler) OnAck(status CommandStatus) {
	if !s.latency.Suppressed() {
		s.drive.setBaseline(status.Drive)
		s.steer.setBaseline(status.Steer)
	}
	rtt, measured := s.latency.Resolve(s.clock.Now())
	s.observer.CommandAcknowledged(status, rtt, measured)
}
