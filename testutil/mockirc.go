// Package testutil provides mock servers for tests: an IRC-over-WebSocket
// endpoint that behaves like Twitch chat, and httptest-backed HTTP APIs for
// history and emote providers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// MockIRCServer accepts IRC-over-WebSocket sessions and lets tests inspect
// received lines and inject server lines.
type MockIRCServer struct {
	*httptest.Server

	// RejectLogin makes the server answer NICK with a login failure NOTICE
	// instead of 001.
	RejectLogin bool

	mu       sync.Mutex
	sessions []*MockIRCSession
}

// MockIRCSession is one accepted connection.
type MockIRCSession struct {
	mu       sync.Mutex
	ws       *websocket.Conn
	received []string
}

// NewMockIRCServer starts the server; it is shut down via t.Cleanup.
func NewMockIRCServer(t *testing.T) *MockIRCServer {
	t.Helper()
	m := &MockIRCServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := &MockIRCSession{ws: ws}
		m.mu.Lock()
		m.sessions = append(m.sessions, sess)
		m.mu.Unlock()
		go sess.serve(m.RejectLogin)
	}))
	t.Cleanup(m.Close)
	return m
}

// URL returns the ws:// endpoint for the server.
func (m *MockIRCServer) URL() string {
	return "ws" + strings.TrimPrefix(m.Server.URL, "http")
}

// Sessions returns the accepted sessions so far.
func (m *MockIRCServer) Sessions() []*MockIRCSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockIRCSession(nil), m.sessions...)
}

// SessionCount returns how many connections were accepted.
func (m *MockIRCServer) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (s *MockIRCSession) serve(rejectLogin bool) {
	for {
		_, payload, err := s.ws.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(payload), "\r\n") {
			if line == "" {
				continue
			}
			s.mu.Lock()
			s.received = append(s.received, line)
			s.mu.Unlock()
			switch {
			case strings.HasPrefix(line, "NICK "):
				if rejectLogin {
					s.Inject(":tmi.twitch.tv NOTICE * :Login authentication failed")
				} else {
					nick := strings.TrimPrefix(line, "NICK ")
					s.Inject(":tmi.twitch.tv 001 " + nick + " :Welcome, GLHF!")
				}
			case strings.HasPrefix(line, "PING "):
				s.Inject("PONG " + strings.TrimPrefix(line, "PING "))
			}
		}
	}
}

// Inject writes a raw server line to the client.
func (s *MockIRCSession) Inject(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ws.WriteMessage(websocket.TextMessage, []byte(line))
}

// Received returns a copy of the lines the client has sent.
func (s *MockIRCSession) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Drop closes the underlying socket, simulating a transport failure.
func (s *MockIRCSession) Drop() {
	_ = s.ws.Close()
}
