package logstream

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
)

const (
	// BackoffStep is added to the reconnect delay after every failure
	BackoffStep = 5 * time.Second

	handshakeTimeout = 10 * time.Second
)

// Status is the connection state of the log stream
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnected    Status = "connected"
	StatusFailed       Status = "failed"
	StatusStopped      Status = "stopped"
)

// Health is a snapshot of the log stream state
type Health struct {
	Status      Status        `json:"status"`
	URL         string        `json:"url,omitempty"`
	RetryDelay  time.Duration `json:"retry_delay"`
	Failures    int           `json:"failures"`
	Connects    int           `json:"connects"`
	Messages    uint64        `json:"messages"`
	Restarts    int           `json:"restarts"`
	LastError   string        `json:"last_error,omitempty"`
	ConnectedAt time.Time     `json:"connected_at,omitempty"`
}

// Client follows ws://{host}:{port}/debug/log. It is independent of the
// device RPC client and never gives up while its context is alive.
type Client struct {
	url            string
	dialer         *websocket.Dialer
	sink           Sink
	step           time.Duration
	resetOnConnect bool
	sleep          func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	health Health
}

// URL builds the log endpoint address for host and port
func URL(host string, port int) string {
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "ws://")
	host = strings.TrimSuffix(host, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/debug/log"
}

// New creates a log stream client. Missing host or port is a configuration
// error the client cannot recover from.
func New(conf config.Config, sink Sink) (*Client, error) {
	if err := conf.RequireLogStream(); err != nil {
		return nil, err
	}
	conf = conf.Normalize()
	if sink == nil {
		sink = LogSink{}
	}

	endpoint := URL(conf.Host, conf.LogPort)
	return &Client{
		url: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		sink:           sink,
		step:           BackoffStep,
		resetOnConnect: conf.ResetBackoffOnConnect,
		sleep:          sleepContext,
		health:         Health{Status: StatusDisconnected, URL: endpoint},
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// URL returns the endpoint the client dials
func (c *Client) URL() string {
	return c.url
}

// State returns the current health snapshot
func (c *Client) State() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

func (c *Client) update(fn func(h *Health)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.health)
}

// Run connects, forwards messages to the sink and reconnects until ctx is
// cancelled. Each failure adds BackoffStep to the delay before the next dial.
func (c *Client) Run(ctx context.Context) error {
	var delay time.Duration

	defer c.update(func(h *Health) { h.Status = StatusStopped })

	for {
		if err := c.sleep(ctx, delay); err != nil {
			return nil
		}

		conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay += c.step
			c.update(func(h *Health) {
				h.Status = StatusDisconnected
				h.Failures++
				h.RetryDelay = delay
				h.LastError = err.Error()
			})
			log.Error("Failed to listen the websocket at %s, retrying in %s ...", c.url, delay)
			log.ErrorH2("Due to -> %v", err)
			continue
		}

		if c.resetOnConnect {
			delay = 0
		}
		c.update(func(h *Health) {
			h.Status = StatusConnected
			h.Connects++
			h.RetryDelay = delay
			h.ConnectedAt = time.Now()
		})
		log.Info("Listening to the device log at %s", c.url)

		err = c.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}

		delay += c.step
		c.update(func(h *Health) {
			h.Status = StatusDisconnected
			h.Failures++
			h.RetryDelay = delay
			h.LastError = err.Error()
		})
		log.Error("Lost the device log at %s, reconnecting in %s ...", c.url, delay)
		log.ErrorH2("Due to -> %v", err)
	}
}

// readLoop forwards frames until the connection fails or ctx is cancelled
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := Decode(frame)
		if err != nil {
			log.Debug("Failed to deserialize the message: %v", err)
			log.DebugH2("raw message -> %s", frame)
			continue
		}

		c.update(func(h *Health) { h.Messages++ })
		c.sink.Emit(msg)
	}
}
