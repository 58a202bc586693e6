package teleop

import (
	"errors"
	"testing"
	"time"

	"github.com/open-teleop/operator/pkg/eventloop/eventlooptest"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var errLinkDown = errors.New("link down")

type sentMessage struct {
	event   string
	payload interface{}
}

type fakeChannel struct {
	sent []sentMessage
	err  error
}

func (c *fakeChannel) Send(event string, payload interface{}) error {
	c.sent = append(c.sent, sentMessage{event: event, payload: payload})
	return c.err
}

func (c *fakeChannel) payloads(event string) []interface{} {
	var out []interface{}
	for _, m := range c.sent {
		if m.event == event {
			out = append(out, m.payload)
		}
	}
	return out
}

func (c *fakeChannel) commands() []CommandMessage {
	var out []CommandMessage
	for _, p := range c.payloads(transport.EventCommand) {
		out = append(out, p.(CommandMessage))
	}
	return out
}

func (c *fakeChannel) idleFlags() []bool {
	var out []bool
	for _, p := range c.payloads(transport.EventIdle) {
		out = append(out, p.(bool))
	}
	return out
}

type fakeProber struct {
	seqs []uint64
}

func (p *fakeProber) Probe(seq uint64) error {
	p.seqs = append(p.seqs, seq)
	return nil
}

func (p *fakeProber) last() uint64 {
	if len(p.seqs) == 0 {
		return 0
	}
	return p.seqs[len(p.seqs)-1]
}

type recordingObserver struct {
	NopObserver
	sent         int
	acks         []time.Duration
	suppressions []bool
	idle         []bool
	modes        []DeviceMode
}

func (o *recordingObserver) CommandSent(CommandMessage, time.Time) { o.sent++ }

func (o *recordingObserver) CommandAcknowledged(_ CommandStatus, rtt time.Duration, measured bool) {
	if measured {
		o.acks = append(o.acks, rtt)
	}
}

func (o *recordingObserver) SuppressionChanged(suppressed bool, _ time.Duration) {
	o.suppressions = append(o.suppressions, suppressed)
}

func (o *recordingObserver) IdleChanged(idle bool) { o.idle = append(o.idle, idle) }

func (o *recordingObserver) ModeChanged(mode DeviceMode) { o.modes = append(o.modes, mode) }

type harness struct {
	clock    *eventlooptest.Manual
	channel  *fakeChannel
	prober   *fakeProber
	observer *recordingObserver
	session  *Session
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		clock:    eventlooptest.NewManual(epoch),
		channel:  &fakeChannel{},
		prober:   &fakeProber{},
		observer: &recordingObserver{},
	}
	h.session = NewSession(h.clock, h.channel, h.prober, h.observer, customlog.Discard(), opts)
	h.session.Start()
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) hold(axis AxisName, force float64, d Direction) {
	h.session.OnInput(GestureEvent{Axis: axis, Phase: PhaseStart})
	h.move(axis, force, d)
}

func (h *harness) move(axis AxisName, force float64, d Direction) {
	h.session.OnInput(GestureEvent{Axis: axis, Phase: PhaseMove, Force: force, Direction: &d})
}

func ptr(v int) *int {
	return &v
}
