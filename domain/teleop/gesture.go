package teleop

import "math"

// Orientation is the screen axis a control dimension listens to.
type Orientation int

const (
	// Vertical axes are negative when pushed down.
	Vertical Orientation = iota
	// Horizontal axes are negative when pushed left.
	Horizontal
)

// Direction names reported by the touch joystick.
const (
	DirLeft  = "left"
	DirRight = "right"
	DirUp    = "up"
	DirDown  = "down"
)

// Direction is the joystick's coarse direction on each screen axis.
type Direction struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// IsZero reports whether no direction was reported at all.
func (d Direction) IsZero() bool {
	return d.X == "" && d.Y == ""
}

// Reverse flips both components.
func (d Direction) Reverse() Direction {
	flip := map[string]string{DirLeft: DirRight, DirRight: DirLeft, DirUp: DirDown, DirDown: DirUp}
	return Direction{X: flip[d.X], Y: flip[d.Y]}
}

// Sign is -1 when d points to the negative side of o, else 1.
func (d Direction) Sign(o Orientation) int {
	switch o {
	case Vertical:
		if d.Y == DirDown {
			return -1
		}
	case Horizontal:
		if d.X == DirLeft {
			return -1
		}
	}
	return 1
}

// Translate converts a force in [0,1] and a direction into a signed
// magnitude in [-100,100]. Out-of-range force is clamped.
func Translate(o Orientation, force float64, d Direction) int {
	if math.IsNaN(force) || force <= 0 {
		return 0
	}
	if force > 1 {
		force = 1
	}
	// Half away from zero: Translate(o, f, d) == -Translate(o, f, d.Reverse()).
	return int(math.Round(force * float64(d.Sign(o)) * 100))
}

// Phase is the joystick lifecycle stage of a gesture event.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseMove  Phase = "move"
	PhaseEnd   Phase = "end"
)

// GestureEvent is one raw joystick sample for one axis.
type GestureEvent struct {
	Axis      AxisName   `json:"axis"`
	Phase     Phase      `json:"phase"`
	Force     float64    `json:"force,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
}

// Qualifying reports whether the event counts as operator activity: a move
// with non-zero force and a direction.
func (e GestureEvent) Qualifying() bool {
	return e.Phase == PhaseMove && e.Force != 0 && e.Direction != nil && !e.Direction.IsZero()
}
