package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// FakeLogServer serves /debug/log like a device: every accepted connection
// receives the scripted frames and is then closed, or held open when Hold is set.
type FakeLogServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	refuse   int
	frames   []string
	hold     bool
	accepted int
	attempts int
	conns    []*websocket.Conn
	done     chan struct{}
}

// NewFakeLogServer starts a fake log endpoint
func NewFakeLogServer(t *testing.T) *FakeLogServer {
	t.Helper()

	s := &FakeLogServer{done: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/log", s.handle)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		close(s.done)
		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		s.Server.Close()
	})
	return s
}

// Host returns the host part of the server address
func (s *FakeLogServer) Host() string {
	host, _, _ := net.SplitHostPort(strings.TrimPrefix(s.Server.URL, "http://"))
	return host
}

// Port returns the port part of the server address
func (s *FakeLogServer) Port() int {
	_, port, _ := net.SplitHostPort(strings.TrimPrefix(s.Server.URL, "http://"))
	p, _ := strconv.Atoi(port)
	return p
}

// RefuseNext rejects the next n handshakes with 503
func (s *FakeLogServer) RefuseNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse = n
}

// SetFrames sets the text frames pushed to every accepted connection
func (s *FakeLogServer) SetFrames(frames ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append([]string(nil), frames...)
}

// Hold keeps accepted connections open after the frames are sent
func (s *FakeLogServer) Hold(hold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = hold
}

// Accepted counts successful handshakes
func (s *FakeLogServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Attempts counts handshake attempts, refused or not
func (s *FakeLogServer) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *FakeLogServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.attempts++
	if s.refuse > 0 {
		s.refuse--
		s.mu.Unlock()
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	frames := append([]string(nil), s.frames...)
	hold := s.hold
	s.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.accepted++
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}

	if hold {
		<-s.done
	}
	_ = conn.Close()
}
