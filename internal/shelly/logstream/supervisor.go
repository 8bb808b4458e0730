package logstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

// DefaultRestartDelay is the pause before a crashed client is restarted
const DefaultRestartDelay = 5 * time.Second

// Supervisor owns the log stream client goroutine. A panic restarts the
// client; a configuration error marks the stream failed and stops it. The
// synchronization unit keeps running either way.
type Supervisor struct {
	conf         config.Config
	sink         Sink
	restartDelay time.Duration
	newClient    func(config.Config, Sink) (*Client, error)

	mu       sync.Mutex
	client   *Client
	failure  error
	restarts int
	running  bool
	done     chan struct{}
}

// NewSupervisor prepares a supervisor; nothing runs until Start
func NewSupervisor(conf config.Config, sink Sink) *Supervisor {
	return &Supervisor{
		conf:         conf,
		sink:         sink,
		restartDelay: DefaultRestartDelay,
		newClient:    New,
		done:         make(chan struct{}),
	}
}

// Start launches the client in its own goroutine and returns immediately
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.loop(ctx)
	}()
}

// Done is closed once the supervised client has stopped for good
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) loop(ctx context.Context) {
	for {
		client, err := s.newClient(s.conf, s.sink)
		if err != nil {
			s.fail(err)
			return
		}
		s.mu.Lock()
		s.client = client
		s.mu.Unlock()

		err = s.runOnce(ctx, client)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			return
		}
		if errors.IsConfigError(err) {
			s.fail(err)
			return
		}

		s.mu.Lock()
		s.restarts++
		s.failure = nil
		restarts := s.restarts
		s.mu.Unlock()
		log.Error("Something went wrong and killed the logger, restarting in %s (restart #%d) -> %v", s.restartDelay, restarts, err)

		if sleepContext(ctx, s.restartDelay) != nil {
			return
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context, client *Client) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("log stream panicked: %v", r)
		}
	}()
	return client.Run(ctx)
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
	log.Error("Failed to start the logger -> %v", err)
	log.ErrorH2("Device log streaming is disabled; file synchronization continues")
}

// State reports the health of the log stream, including supervisor failures
func (s *Supervisor) State() Health {
	s.mu.Lock()
	client, failure, restarts, running := s.client, s.failure, s.restarts, s.running
	s.mu.Unlock()

	var h Health
	if client != nil {
		h = client.State()
	} else {
		h = Health{Status: StatusDisconnected}
		if !running {
			h.Status = StatusStopped
		}
	}
	h.Restarts = restarts
	if failure != nil {
		h.Status = StatusFailed
		h.LastError = failure.Error()
	}
	return h
}
