package teleop

import (
	"time"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
)

// Options configures a Session. Zero values fall back to the defaults below
// except IdleTimeout and LatencyThreshold, where zero disables the feature.
type Options struct {
	VehicleInterval  time.Duration
	CameraInterval   time.Duration
	IdleTimeout      time.Duration
	LatencyThreshold time.Duration
	ProbeInterval    time.Duration
	InitialMode      DeviceMode
}

const (
	DefaultVehicleInterval  = 25 * time.Millisecond
	DefaultCameraInterval   = 50 * time.Millisecond
	DefaultIdleTimeout      = 10 * time.Second
	DefaultLatencyThreshold = 500 * time.Millisecond
	DefaultProbeInterval    = time.Second
)

// DefaultOptions returns the stock cadence and timeouts.
func DefaultOptions() Options {
	return Options{
		VehicleInterval:  DefaultVehicleInterval,
		CameraInterval:   DefaultCameraInterval,
		IdleTimeout:      DefaultIdleTimeout,
		LatencyThreshold: DefaultLatencyThreshold,
		ProbeInterval:    DefaultProbeInterval,
		InitialMode:      ModeVehicle,
	}
}

// Session is the operator's control state: the two axes, the command
// scheduler, the latency monitor and the idle supervisor. Every method must
// be called from the goroutine that owns clock.
type Session struct {
	clock  eventloop.Scheduler
	logger customlog.Logger

	drive, steer *Axis
	latency      *LatencyMonitor
	idle         *IdleSupervisor
	scheduler    *CommandScheduler
	observer     Observer

	started bool
	closed  bool
}

// NewSession wires the components together. prober may be nil.
func NewSession(clock eventloop.Scheduler, channel Channel, prober Prober, observer Observer, logger customlog.Logger, opts Options) *Session {
	if observer == nil {
		observer = NopObserver{}
	}
	if opts.VehicleInterval <= 0 {
		opts.VehicleInterval = DefaultVehicleInterval
	}
	if opts.CameraInterval <= 0 {
		opts.CameraInterval = DefaultCameraInterval
	}
	if opts.InitialMode == "" {
		opts.InitialMode = ModeVehicle
	}

	s := &Session{
		clock:    clock,
		logger:   logger,
		drive:    NewAxis(AxisDrive, Vertical),
		steer:    NewAxis(AxisSteer, Horizontal),
		observer: observer,
	}
	s.latency = NewLatencyMonitor(clock, channel, prober, observer,
		logger.WithField("component", "latency"),
		LatencyOptions{Threshold: opts.LatencyThreshold, ProbeInterval: opts.ProbeInterval})
	s.idle = NewIdleSupervisor(clock, channel, observer,
		logger.WithField("component", "idle"), opts.IdleTimeout)
	s.scheduler = NewCommandScheduler(clock, channel, s.latency, observer,
		logger.WithField("component", "scheduler"), s.drive, s.steer,
		SchedulerOptions{VehicleInterval: opts.VehicleInterval, CameraInterval: opts.CameraInterval})
	s.scheduler.mode = opts.InitialMode
	return s
}

// Start arms the tick and idle timers and announces the idle state.
func (s *Session) Start() {
	if s.started || s.closed {
		return
	}
	s.started = true
	s.scheduler.Start()
	s.idle.Start()
	s.logger.Infof("Session started in %s mode", s.scheduler.Mode())
}

// OnInput applies one gesture event.
func (s *Session) OnInput(ev GestureEvent) {
	if s.closed {
		return
	}
	axis := s.axis(ev.Axis)
	if axis == nil {
		s.logger.Warnf("Ignoring gesture for unknown axis %q", ev.Axis)
		return
	}

	switch ev.Phase {
	case PhaseStart:
		if axis.Start() {
			s.scheduler.Reschedule()
		}
	case PhaseEnd:
		if axis.End() {
			s.scheduler.Reschedule()
		}
	case PhaseMove:
		if !ev.Qualifying() {
			return
		}
		axis.Set(Translate(axis.Orientation, ev.Force, *ev.Direction))
		s.idle.OnActivity()
	default:
		s.logger.Debugf("Ignoring gesture phase %q on %s", ev.Phase, ev.Axis)
	}
}

// OnTick runs one scheduler tick immediately.
func (s *Session) OnTick() {
	if s.closed {
		return
	}
	s.scheduler.OnTick()
}

// OnAck applies a command_status from the vehicle.
func (s *Session) OnAck(status CommandStatus) {
	if s.closed {
		return
	}
	s.scheduler.OnAck(status)
}

// OnModeChange switches between vehicle and camera control.
func (s *Session) OnModeChange(mode DeviceMode) {
	if s.closed {
		return
	}
	if s.scheduler.SetMode(mode) {
		s.observer.ModeChanged(mode)
	}
}

// OnProbeAck reports the reply to a link probe.
func (s *Session) OnProbeAck(seq uint64) {
	if s.closed {
		return
	}
	s.latency.OnProbeAck(seq, s.clock.Now())
}

// OnConnect re-announces the idle flag after the link (re)connects so the
// vehicle knows whether to stream video.
func (s *Session) OnConnect() {
	if s.closed || !s.started {
		return
	}
	s.idle.Announce()
}

// Close stops every timer. Further events are ignored.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.scheduler.Stop()
	s.idle.Stop()
	s.latency.Stop()
	s.logger.Infof("Session closed")
}

// Mode is the current device mode.
func (s *Session) Mode() DeviceMode {
	return s.scheduler.Mode()
}

// Suppressed reports whether commands are currently withheld.
func (s *Session) Suppressed() bool {
	return s.latency.Suppressed()
}

// Idle reports the operator idle flag.
func (s *Session) Idle() bool {
	return s.idle.Idle()
}

// Snapshot is a point-in-time view of the session for the API.
type Snapshot struct {
	Mode         DeviceMode     `json:"mode"`
	Axes         []AxisSnapshot `json:"axes"`
	Suppressed   bool           `json:"suppressed"`
	Suppressions int            `json:"suppressions"`
	LastRTTMs    float64        `json:"last_rtt_ms"`
	Idle         bool           `json:"idle"`
	LastActivity time.Time      `json:"last_activity"`
	TickInterval string         `json:"tick_interval"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Mode:         s.scheduler.Mode(),
		Axes:         []AxisSnapshot{s.drive.snapshot(), s.steer.snapshot()},
		Suppressed:   s.latency.Suppressed(),
		Suppressions: s.latency.Suppressions(),
		LastRTTMs:    float64(s.latency.LastRTT()) / float64(time.Millisecond),
		Idle:         s.idle.Idle(),
		LastActivity: s.idle.LastActivity(),
		TickInterval: s.scheduler.Interval().String(),
	}
}

func (s *Session) axis(name AxisName) *Axis {
	switch name {
	case AxisDrive:
		return s.drive
	case AxisSteer:
		return s.steer
	}
	return nil
}
