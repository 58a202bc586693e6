package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/operator/domain/teleop"
	"github.com/open-teleop/operator/pkg/eventloop/eventlooptest"
	fb "github.com/open-teleop/operator/pkg/flatbuffers/teleop/telemetry"
	customlog "github.com/open-teleop/operator/pkg/log"
)

type fakeSubmitter struct {
	accept bool
	events []Event
}

func (f *fakeSubmitter) Submit(ev *fb.LinkEvent) bool {
	if !f.accept {
		return false
	}
	f.events = append(f.events, Decode(ev))
	return true
}

func TestRecorderEncodesSessionEvents(t *testing.T) {
	sink := &fakeSubmitter{accept: true}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := eventlooptest.NewManual(at)
	r := NewRecorder(sink, clock, teleop.ModeVehicle, customlog.Discard())

	r.CommandSent(teleop.CommandMessage{Drive: intPtr(40), Device: teleop.ModeVehicle}, at)
	clock.Advance(8 * time.Millisecond)
	r.CommandAcknowledged(teleop.CommandStatus{Drive: intPtr(40)}, 8*time.Millisecond, true)
	r.CommandAcknowledged(teleop.CommandStatus{}, 8*time.Millisecond, false)
	r.SuppressionChanged(true, 600*time.Millisecond)
	r.ModeChanged(teleop.ModeCamera)
	r.IdleChanged(true)

	require.Len(t, sink.events, 6)
	assert.Equal(t, int64(6), r.Submitted())
	assert.Zero(t, r.Dropped())

	sent := sink.events[0]
	assert.Equal(t, fb.LinkEventKindCommandSent, sent.Kind)
	assert.True(t, at.Equal(sent.At))
	assert.Equal(t, "vehicle", sent.Device)
	assert.Equal(t, 40, *sent.Drive)
	assert.Nil(t, sent.Steer)

	for _, e := range sink.events[1:] {
		assert.True(t, at.Add(8*time.Millisecond).Equal(e.At), "%s stamped from the session clock", e.Kind)
	}
	assert.Equal(t, 8*time.Millisecond, sink.events[1].RTT)
	assert.Zero(t, sink.events[2].RTT, "unmeasured acks carry no rtt")

	assert.Equal(t, fb.LinkEventKindSuppressionChanged, sink.events[3].Kind)
	assert.True(t, sink.events[3].Flag)

	assert.Equal(t, "camera", sink.events[4].Device)
	assert.Equal(t, "camera", sink.events[5].Device, "later events follow the new mode")
	assert.True(t, sink.events[5].Flag)
}

func TestRecorderCountsDrops(t *testing.T) {
	sink := &fakeSubmitter{}
	r := NewRecorder(sink, eventlooptest.NewManual(time.Time{}), teleop.ModeVehicle, customlog.Discard())

	for i := 0; i < 3; i++ {
		r.IdleChanged(i%2 == 0)
	}

	assert.Zero(t, r.Submitted())
	assert.Equal(t, int64(3), r.Dropped())
}
