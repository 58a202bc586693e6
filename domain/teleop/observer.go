package teleop

import "time"

// Observer receives session events for diagnostics, telemetry and the
// operator console. Methods are called on the loop goroutine and must not
// block.
type Observer interface {
	CommandSent(cmd CommandMessage, at time.Time)
	CommandAcknowledged(status CommandStatus, rtt time.Duration, measured bool)
	SuppressionChanged(suppressed bool, rtt time.Duration)
	IdleChanged(idle bool)
	ModeChanged(mode DeviceMode)
}

// Observers fans every event out to each member in order.
type Observers []Observer

var _ Observer = Observers(nil)

func (o Observers) CommandSent(cmd CommandMessage, at time.Time) {
	for _, obs := range o {
		obs.CommandSent(cmd, at)
	}
}

func (o Observers) CommandAcknowledged(status CommandStatus, rtt time.Duration, measured bool) {
	for _, obs := range o {
		obs.CommandAcknowledged(status, rtt, measured)
	}
}

func (o Observers) SuppressionChanged(suppressed bool, rtt time.Duration) {
	for _, obs := range o {
		obs.SuppressionChanged(suppressed, rtt)
	}
}

func (o Observers) IdleChanged(idle bool) {
	for _, obs := range o {
		obs.IdleChanged(idle)
	}
}

func (o Observers) ModeChanged(mode DeviceMode) {
	for _, obs := range o {
		obs.ModeChanged(mode)
	}
}

// NopObserver can be embedded to implement only some Observer methods.
type NopObserver struct{}

func (NopObserver) CommandSent(CommandMessage, time.Time)                  {}
func (NopObserver) CommandAcknowledged(CommandStatus, time.Duration, bool) {}
func (NopObserver) SuppressionChanged(bool, time.Duration)                 {}
func (NopObserver) IdleChanged(bool)                                       {}
func (NopObserver) ModeChanged(DeviceMode)                                 {}
