package ws

import "encoding/json"

// Kind tags a channel message variant.
type Kind string

// Channel message kinds exchanged over a module's group.
const (
	// KindControl is a user command for the device.
	KindControl Kind = "control"
	// KindStatus is a device report (online state, logs, sensor values).
	KindStatus Kind = "status"
	// KindAlarmTriggered marks a fired-alarm notification.
	KindAlarmTriggered Kind = "alarm_triggered"
	// KindLog is a free-form device log line.
	KindLog Kind = "log"
)

// Message is the structured payload exchanged over a module's channel.
// Devices authenticate per message via the Device field; it is stripped
// before rebroadcast.
type Message struct {
	Kind Kind `json:"kind,omitempty"`

	// Device carries the module's shared secret on device-sent messages.
	Device string `json:"device,omitempty"`

	// Command and Duration form a user control instruction.
	Command  string `json:"command,omitempty"`
	Duration int64  `json:"duration,omitempty"`
	// Source identifies what produced a control message.
	Source string `json:"source,omitempty"`

	// DeviceLogs are device-reported schedule execution records.
	DeviceLogs []string `json:"device_logs,omitempty"`
	// Sensors maps feature names to their latest raw values.
	Sensors map[string]json.RawMessage `json:"sensors,omitempty"`
}

// ParseMessage decodes one inbound channel message.
func ParseMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}
