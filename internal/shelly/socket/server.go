package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dimasma0305/shellysync/internal/log"
)

// requestTimeout bounds how long one client may take to send its command
const requestTimeout = 30 * time.Second

// Server answers status queries from the CLI over a unix socket
type Server struct {
	path    string
	handler CommandHandler

	mu       sync.Mutex
	listener net.Listener
	inflight sync.WaitGroup
}

// NewServer creates a server for path; nothing listens until Init
func NewServer(path string, handler CommandHandler) *Server {
	return &Server{path: path, handler: handler}
}

// Init listens on the socket path, replacing a socket left by a dead engine.
// Only the owner may connect.
func (s *Server) Init() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Warn("Stale socket %s could not be removed: %v", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	log.Debug("Status socket listening on %s", s.path)
	return nil
}

// Close stops accepting, waits for in-flight requests and removes the socket file
func (s *Server) Close() error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener == nil {
		return nil
	}
	err := listener.Close()
	s.inflight.Wait()

	if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
		log.Warn("Failed to remove socket %s: %v", s.path, rmErr)
	}
	return err
}

// Run serves requests until ctx is cancelled or the server is closed
func (s *Server) Run(ctx context.Context) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error("Status socket accept failed: %v", err)
			continue
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.serve(conn)
		}()
	}
}

// serve answers exactly one command per connection
func (s *Server) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	enc := json.NewEncoder(conn)
	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		_ = enc.Encode(Fail(fmt.Sprintf("Failed to decode command: %v", err)))
		return
	}

	log.Debug("Status socket command: %s", cmd.Action)
	if err := enc.Encode(s.dispatch(cmd)); err != nil {
		log.Debug("Status socket client went away: %v", err)
	}
}

func (s *Server) dispatch(cmd Command) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Status command %q panicked: %v", cmd.Action, r)
			resp = Fail(fmt.Sprintf("internal error handling %q", cmd.Action))
		}
	}()
	return s.handler.HandleCommand(cmd)
}
