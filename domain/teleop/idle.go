package teleop

import (
	"time"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

// IdleSupervisor flags the operator idle after a period without qualifying
// input so the vehicle can stop pushing video frames. A zero timeout
// disables it: no timer is armed and idle never becomes true.
type IdleSupervisor struct {
	clock    eventloop.Scheduler
	channel  Channel
	observer Observer
	logger   customlog.Logger
	timeout  time.Duration

	timer        eventloop.Slot
	idle         bool
	lastActivity time.Time
}

// NewIdleSupervisor creates a supervisor; call Start to arm it.
func NewIdleSupervisor(clock eventloop.Scheduler, channel Channel, observer Observer, logger customlog.Logger, timeout time.Duration) *IdleSupervisor {
	return &IdleSupervisor{
		clock:    clock,
		channel:  channel,
		observer: observer,
		logger:   logger,
		timeout:  timeout,
	}
}

// Start arms the first timer and announces the current state.
func (s *IdleSupervisor) Start() {
	s.lastActivity = s.clock.Now()
	if s.timeout > 0 {
		s.arm()
	}
	s.Announce()
}

// OnActivity records a qualifying input, clearing idle and rearming the timer.
func (s *IdleSupervisor) OnActivity() {
	s.lastActivity = s.clock.Now()
	if s.timeout <= 0 {
		return
	}
	if s.idle {
		s.idle = false
		s.logger.Infof("Operator active again")
		s.notify()
	}
	s.arm()
}

// Announce sends the current idle flag on the channel without changing it.
func (s *IdleSupervisor) Announce() {
	if err := s.channel.Send(transport.EventIdle, s.idle); err != nil {
		s.logger.Debugf("Idle state not sent: %v", err)
	}
}

// Idle reports the current flag.
func (s *IdleSupervisor) Idle() bool {
	return s.idle
}

// LastActivity is the time of the last qualifying input.
func (s *IdleSupervisor) LastActivity() time.Time {
	return s.lastActivity
}

// Stop cancels the pending timer.
func (s *IdleSupervisor) Stop() {
	s.timer.Stop()
}

func (s *IdleSupervisor) arm() {
	s.timer.Replace(s.clock.AfterFunc(s.timeout, s.expire))
}

func (s *IdleSupervisor) expire() {
	if s.idle {
		return
	}
	s.idle = true
	s.logger.Infof("No operator input for %v, entering idle", s.timeout)
	s.notify()
}

func (s *IdleSupervisor) notify() {
	s.Announce()
	s.observer.IdleChanged(s.idle)
}
