// Package logstream follows the device's live log over a WebSocket and
// reconnects with a growing delay when the device cannot be reached.
package logstream

import (
	"encoding/json"
	"fmt"

	"github.com/dimasma0305/shellysync/internal/log"
)

// InfoLevel is the device level shown at informational severity; every other
// level is shown at debug severity.
const InfoLevel = -1

// Message is one log line pushed by the device
type Message struct {
	Timestamp float64 `json:"ts"`
	Level     int     `json:"level"`
	Text      string  `json:"data"`
}

// IsInfo reports whether the message is shown at informational severity
func (m Message) IsInfo() bool {
	return m.Level == InfoLevel
}

type wireMessage struct {
	Timestamp *float64 `json:"ts"`
	Level     *int     `json:"level"`
	Text      *string  `json:"data"`
}

// Decode parses a text frame; every field must be present
func Decode(frame []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(frame, &wire); err != nil {
		return Message{}, err
	}
	switch {
	case wire.Timestamp == nil:
		return Message{}, fmt.Errorf("missing field ts")
	case wire.Level == nil:
		return Message{}, fmt.Errorf("missing field level")
	case wire.Text == nil:
		return Message{}, fmt.Errorf("missing field data")
	}
	return Message{Timestamp: *wire.Timestamp, Level: *wire.Level, Text: *wire.Text}, nil
}

// Sink receives every decoded message
type Sink interface {
	Emit(msg Message)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(msg Message)

// Emit calls f(msg)
func (f SinkFunc) Emit(msg Message) { f(msg) }

// Recorder persists device log lines
type Recorder interface {
	RecordDeviceLog(msg Message)
}

// LogSink prints messages through the tool's logger and optionally records them
type LogSink struct {
	Recorder Recorder
}

// Emit prints msg at informational or debug severity
func (s LogSink) Emit(msg Message) {
	log.Device(msg.IsInfo(), "%s", msg.Text)
	if s.Recorder != nil {
		s.Recorder.RecordDeviceLog(msg)
	}
}
