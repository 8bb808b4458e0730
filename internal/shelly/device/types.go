//nolint:revive // Struct field names match RPC payloads
package device

import (
	"fmt"
)

// RPC endpoints of the script registry
const (
	EndpointList    = "/rpc/Script.List"
	EndpointCreate  = "/rpc/Script.Create"
	EndpointPutCode = "/rpc/Script.PutCode"
	EndpointStart   = "/rpc/Script.Start"
	EndpointStop    = "/rpc/Script.Stop"
)

// Script is the device's view of one stored script. Enable and Running are
// nil when the device has not reported them.
type Script struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enable  *bool  `json:"enable,omitempty"`
	Running *bool  `json:"running,omitempty"`
}

// IsRunning reports whether the device says the script is running
func (s Script) IsRunning() bool {
	return s.Running != nil && *s.Running
}

// IsStopped reports whether the device says the script is not running.
// Unknown state is neither running nor stopped.
func (s Script) IsStopped() bool {
	return s.Running != nil && !*s.Running
}

func (s Script) String() string {
	return fmt.Sprintf("%s (id %d, running %s)", s.Name, s.ID, triState(s.Running))
}

func triState(b *bool) string {
	if b == nil {
		return "unknown"
	}
	if *b {
		return "yes"
	}
	return "no"
}

// scriptEntry is the wire shape of a Script.List entry; id and name are required.
type scriptEntry struct {
	ID      *int    `json:"id"`
	Name    *string `json:"name"`
	Enable  *bool   `json:"enable"`
	Running *bool   `json:"running"`
}

type listResponse struct {
	Scripts *[]scriptEntry `json:"scripts"`
}

type createRequest struct {
	Name string `json:"name"`
}

type createResponse struct {
	ID *int `json:"id"`
}

type putCodeRequest struct {
	ID     int    `json:"id"`
	Code   string `json:"code"`
	Append bool   `json:"append"`
}

type idRequest struct {
	ID int `json:"id"`
}
