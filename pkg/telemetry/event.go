// Package telemetry turns session events into FlatBuffer LinkEvents and
// queues them for export.
package telemetry

import (
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	fb "github.com/open-teleop/operator/pkg/flatbuffers/teleop/telemetry"
)

// Event is the decoded form of a LinkEvent.
type Event struct {
	Kind   fb.LinkEventKind
	At     time.Time
	Device string
	Drive  *int
	Steer  *int
	RTT    time.Duration
	// Flag carries the suppressed or idle state for the matching kinds.
	Flag bool
}

// Encode serialises e into a fresh buffer, reusing b's scratch space.
func Encode(b *flatbuffers.Builder, e Event) []byte {
	b.Reset()

	var device flatbuffers.UOffsetT
	if e.Device != "" {
		device = b.CreateString(e.Device)
	}

	fb.LinkEventStart(b)
	fb.LinkEventAddKind(b, e.Kind)
	fb.LinkEventAddTimestampNs(b, e.At.UnixNano())
	if e.Device != "" {
		fb.LinkEventAddDevice(b, device)
	}
	if e.Drive != nil {
		fb.LinkEventAddDrive(b, int32(*e.Drive))
		fb.LinkEventAddHasDrive(b, true)
	}
	if e.Steer != nil {
		fb.LinkEventAddSteer(b, int32(*e.Steer))
		fb.LinkEventAddHasSteer(b, true)
	}
	fb.LinkEventAddRttUs(b, e.RTT.Microseconds())
	fb.LinkEventAddFlag(b, e.Flag)
	fb.FinishLinkEventBuffer(b, fb.LinkEventEnd(b))

	return append([]byte(nil), b.FinishedBytes()...)
}

// Decode reads a LinkEvent table back into an Event.
func Decode(ev *fb.LinkEvent) Event {
	e := Event{
		Kind:   ev.Kind(),
		At:     time.Unix(0, ev.TimestampNs()),
		Device: string(ev.Device()),
		RTT:    time.Duration(ev.RttUs()) * time.Microsecond,
		Flag:   ev.Flag(),
	}
	if ev.HasDrive() {
		v := int(ev.Drive())
		e.Drive = &v
	}
	if ev.HasSteer() {
		v := int(ev.Steer())
		e.Steer = &v
	}
	return e
}

// Root returns the LinkEvent view over buf.
func Root(buf []byte) *fb.LinkEvent {
	return fb.GetRootAsLinkEvent(buf, 0)
}
