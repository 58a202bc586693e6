package teleop

// AxisName identifies a control dimension.
type AxisName string

const (
	AxisDrive AxisName = "drive"
	AxisSteer AxisName = "steer"
)

// Axis holds the live and acknowledged state of one control dimension.
// The magnitude is written by gesture input; the baseline only by the
// scheduler when an acknowledgement arrives.
type Axis struct {
	Name        AxisName
	Orientation Orientation

	current  int
	active   bool
	baseline *int
}

// NewAxis creates an inactive axis with no baseline.
func NewAxis(name AxisName, o Orientation) *Axis {
	return &Axis{Name: name, Orientation: o}
}

// Value is the magnitude to send, or nil while the axis is not held.
func (a *Axis) Value() *int {
	if !a.active {
		return nil
	}
	return intPtr(a.current)
}

// Start marks the axis held and resets its magnitude. It reports whether
// the activity flag changed.
func (a *Axis) Start() bool {
	changed := !a.active
	a.active = true
	a.current = 0
	return changed
}

// End releases the axis. It reports whether the activity flag changed.
func (a *Axis) End() bool {
	changed := a.active
	a.active = false
	return changed
}

// Set stores a translated magnitude, clamped to [-100,100].
func (a *Axis) Set(v int) {
	switch {
	case v > 100:
		v = 100
	case v < -100:
		v = -100
	}
	a.current = v
}

// Active reports whether the axis is held.
func (a *Axis) Active() bool {
	return a.active
}

// Baseline is the last value the vehicle acknowledged.
func (a *Axis) Baseline() *int {
	if a.baseline == nil {
		return nil
	}
	return intPtr(*a.baseline)
}

// Differs reports whether v is not what the vehicle last acknowledged.
func (a *Axis) Differs(v *int) bool {
	return !sameValue(v, a.baseline)
}

func (a *Axis) setBaseline(v *int) {
	if v == nil {
		a.baseline = nil
		return
	}
	a.baseline = intPtr(*v)
}

// AxisSnapshot is the read-only view exposed by the session API.
type AxisSnapshot struct {
	Name     AxisName `json:"name"`
	Active   bool     `json:"active"`
	Value    *int     `json:"value"`
	Baseline *int     `json:"baseline"`
}

func (a *Axis) snapshot() AxisSnapshot {
	return AxisSnapshot{Name: a.Name, Active: a.active, Value: a.Value(), Baseline: a.Baseline()}
}
