package socket

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client talks to a running engine over its status socket
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// SetTimeout sets the connection timeout for the client
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SendCommand sends a command and returns the raw response
func (c *Client) SendCommand(action string, data map[string]interface{}) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to status socket %s: %w", c.socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(Command{Action: action, Data: data}); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var response Response
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response, nil
}

func (c *Client) call(action string, data map[string]interface{}, out interface{}) error {
	resp, err := c.SendCommand(action, data)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s failed: %s", action, resp.Error)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", action, err)
	}
	return nil
}

// Status fetches the live status report
func (c *Client) Status() (*StatusReport, error) {
	var report StatusReport
	if err := c.call(ActionStatus, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// History fetches up to limit recent sync attempts
func (c *Client) History(limit int) (*HistoryReport, error) {
	var report HistoryReport
	if err := c.call(ActionHistory, map[string]interface{}{"limit": limit}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// IsRunning checks if the engine answers on the socket
func (c *Client) IsRunning() bool {
	_, err := c.Status()
	return err == nil
}

// WaitForEngine waits for the engine to answer on the socket
func (c *Client) WaitForEngine(maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if c.IsRunning() {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("engine did not become available within %v", maxWait)
}
