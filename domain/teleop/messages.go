package teleop

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// DeviceMode selects what the two axes drive.
type DeviceMode string

const (
	// ModeVehicle sends positional drive/steer values.
	ModeVehicle DeviceMode = "vehicle"
	// ModeCamera sends incremental pan/tilt values.
	ModeCamera DeviceMode = "camera"
)

// ParseDeviceMode validates a mode name coming from the console.
func ParseDeviceMode(s string) (DeviceMode, error) {
	switch DeviceMode(s) {
	case ModeVehicle, ModeCamera:
		return DeviceMode(s), nil
	}
	return "", fmt.Errorf("unknown device mode %q", s)
}

// CommandMessage is the snapshot sent on every emitting tick. A nil axis
// value means the axis is not held.
type CommandMessage struct {
	Drive  *int       `json:"drive"`
	Steer  *int       `json:"steer"`
	Device DeviceMode `json:"device"`
}

// CommandStatus is the vehicle's view of the last command it applied.
type CommandStatus struct {
	Drive *int `json:"drive"`
	Steer *int `json:"steer"`
}

// ParseCommandStatus decodes a command_status payload. Missing, null and
// malformed fields all decode to nil; numeric strings are accepted.
func ParseCommandStatus(raw []byte) CommandStatus {
	return CommandStatus{
		Drive: lenientInt(gjson.GetBytes(raw, "drive")),
		Steer: lenientInt(gjson.GetBytes(raw, "steer")),
	}
}

// UnmarshalJSON applies the same leniency when decoding through encoding/json.
func (s *CommandStatus) UnmarshalJSON(data []byte) error {
	*s = ParseCommandStatus(data)
	return nil
}

func lenientInt(r gjson.Result) *int {
	switch r.Type {
	case gjson.Number:
		v := int(r.Int())
		return &v
	case gjson.String:
		str := strings.TrimSpace(r.Str)
		if v, err := strconv.Atoi(str); err == nil {
			return &v
		}
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			v := int(f)
			return &v
		}
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}

func sameValue(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatValue(v *int) string {
	if v == nil {
		return "null"
	}
	return strconv.Itoa(*v)
}
