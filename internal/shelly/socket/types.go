// Package socket exposes the running engine's health over a Unix socket
// using one JSON command and one JSON response per connection.
package socket

import (
	"encoding/json"
	"time"

	"github.com/dimasma0305/shellysync/internal/shelly/journal"
	"github.com/dimasma0305/shellysync/internal/shelly/logstream"
	"github.com/dimasma0305/shellysync/internal/shelly/watcher"
)

// Command actions understood by the server
const (
	ActionStatus  = "status"
	ActionHistory = "history"
)

// Command is sent by the client
type Command struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// Response is returned by the server
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StatusReport is the payload of a status response
type StatusReport struct {
	PID       int              `json:"pid"`
	StartedAt time.Time        `json:"started_at"`
	Host      string           `json:"host"`
	Autorun   bool             `json:"autorun"`
	Journal   bool             `json:"journal"`
	Watcher   watcher.Stats    `json:"watcher"`
	LogStream logstream.Health `json:"log_stream"`
}

// HistoryReport is the payload of a history response
type HistoryReport struct {
	Syncs []journal.SyncEvent `json:"syncs"`
}

// OK builds a successful response carrying data
func OK(message string, data interface{}) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Fail("failed to encode response: " + err.Error())
	}
	return Response{Success: true, Message: message, Data: raw}
}

// Fail builds an error response
func Fail(msg string) Response {
	return Response{Success: false, Error: msg}
}

// IntArg returns the integer argument key, or def when absent
func (c Command) IntArg(key string, def int) int {
	if c.Data == nil {
		return def
	}
	if v, ok := c.Data[key].(float64); ok {
		return int(v)
	}
	return def
}
