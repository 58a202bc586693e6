package teleop

import (
	"time"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

// Prober sends a link probe (a WebSocket ping). The reply is reported back
// through Session.OnProbeAck with the same sequence number.
type Prober interface {
	Probe(seq uint64) error
}

// LatencyOptions configures a LatencyMonitor.
type LatencyOptions struct {
	// Threshold is the longest acceptable round trip. Zero disables
	// suppression entirely.
	Threshold time.Duration
	// ProbeInterval is the ping cadence while suppressed.
	ProbeInterval time.Duration
}

// LatencyMonitor measures command round trips and decides whether command
// emission must be withheld.
//
// At most one sample is outstanding: a send before the previous
// acknowledgement overwrites sentAt. The watchdog is armed by the first
// unacknowledged send only, so a steady stream of sends cannot postpone it.
type LatencyMonitor struct {
	clock    eventloop.Scheduler
	channel  Channel
	prober   Prober
	observer Observer
	logger   customlog.Logger
	opts     LatencyOptions

	pending  bool
	sentAt   time.Time
	watchdog eventloop.Slot

	suppressed bool
	probe      eventloop.Slot
	probeSeq   uint64
	// inflight maps each unanswered probe to its send time. Entries older
	// than the threshold are pruned, since their replies cannot recover.
	inflight map[uint64]time.Time

	lastRTT      time.Duration
	suppressions int
}

// NewLatencyMonitor creates a monitor; prober may be nil, in which case
// suppression only clears on a prompt command acknowledgement.
func NewLatencyMonitor(clock eventloop.Scheduler, channel Channel, prober Prober, observer Observer, logger customlog.Logger, opts LatencyOptions) *LatencyMonitor {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = time.Second
	}
	return &LatencyMonitor{
		clock:    clock,
		channel:  channel,
		prober:   prober,
		observer: observer,
		logger:   logger,
		opts:     opts,
		inflight: make(map[uint64]time.Time),
	}
}

// Suppressed reports whether commands must currently be withheld.
func (m *LatencyMonitor) Suppressed() bool {
	return m.suppressed
}

// LastRTT is the most recent measured round trip.
func (m *LatencyMonitor) LastRTT() time.Duration {
	return m.lastRTT
}

// Suppressions counts how many times suppression was entered.
func (m *LatencyMonitor) Suppressions() int {
	return m.suppressions
}

// RecordSend stores the send time of the newest outstanding command.
func (m *LatencyMonitor) RecordSend(at time.Time) {
	m.sentAt = at
	if m.pending || m.opts.Threshold <= 0 {
		m.pending = true
		return
	}
	m.pending = true
	m.watchdog.Replace(m.clock.AfterFunc(m.opts.Threshold, m.onWatchdog))
}

// Resolve closes the outstanding sample at ack time. ok is false when no
// sample was outstanding, e.g. an unsolicited status or a duplicate.
func (m *LatencyMonitor) Resolve(at time.Time) (rtt time.Duration, ok bool) {
	m.watchdog.Stop()
	if !m.pending {
		return 0, false
	}
	m.pending = false
	rtt = at.Sub(m.sentAt)
	m.lastRTT = rtt

	if m.opts.Threshold <= 0 {
		return rtt, true
	}
	if rtt > m.opts.Threshold {
		m.logger.Warnf("Command round trip %v exceeds threshold %v", rtt, m.opts.Threshold)
		m.suppress(rtt)
	} else if m.suppressed {
		m.recover(rtt)
	}
	return rtt, true
}

// OnProbeAck handles the reply to a probe. Any probe still in flight is
// measured against its own send time; unknown or pruned sequence numbers are
// ignored.
func (m *LatencyMonitor) OnProbeAck(seq uint64, at time.Time) {
	if !m.suppressed {
		return
	}
	sentAt, ok := m.inflight[seq]
	if !ok {
		m.logger.Debugf("Ignoring reply to unknown probe %d", seq)
		return
	}
	delete(m.inflight, seq)
	rtt := at.Sub(sentAt)
	m.lastRTT = rtt
	if rtt <= m.opts.Threshold {
		m.recover(rtt)
		return
	}
	m.logger.Debugf("Probe %d round trip %v still above threshold", seq, rtt)
}

// Stop cancels the internal timers.
func (m *LatencyMonitor) Stop() {
	m.watchdog.Stop()
	m.probe.Stop()
	clear(m.inflight)
}

// InFlight is the number of probes awaiting a reply.
func (m *LatencyMonitor) InFlight() int {
	return len(m.inflight)
}

func (m *LatencyMonitor) onWatchdog() {
	if !m.pending {
		return
	}
	waited := m.clock.Now().Sub(m.sentAt)
	m.logger.Warnf("No command acknowledgement within %v", m.opts.Threshold)
	m.suppress(waited)
}

func (m *LatencyMonitor) suppress(rtt time.Duration) {
	if m.suppressed {
		return
	}
	m.suppressed = true
	m.suppressions++
	m.logger.Warnf("High latency detected, withholding commands")

	if err := m.channel.Send(transport.EventLatencyProblem, nil); err != nil {
		m.logger.Debugf("Could not report latency problem: %v", err)
	}
	m.observer.SuppressionChanged(true, rtt)

	if m.prober != nil {
		m.sendProbe()
		m.probe.Replace(m.clock.Every(m.opts.ProbeInterval, m.sendProbe))
	}
}

func (m *LatencyMonitor) recover(rtt time.Duration) {
	m.suppressed = false
	m.pending = false
	m.watchdog.Stop()
	m.probe.Stop()
	clear(m.inflight)
	m.logger.Infof("Latency recovered (%v), resuming commands", rtt)
	m.observer.SuppressionChanged(false, rtt)
}

func (m *LatencyMonitor) sendProbe() {
	now := m.clock.Now()
	for seq, sentAt := range m.inflight {
		if now.Sub(sentAt) > m.opts.Threshold {
			delete(m.inflight, seq)
		}
	}

	m.probeSeq++
	m.inflight[m.probeSeq] = now
	if err := m.prober.Probe(m.probeSeq); err != nil {
		m.logger.Debugf("Probe %d not sent: %v", m.probeSeq, err)
	}
}
