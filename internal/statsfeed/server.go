// Package statsfeed broadcasts live connection statistics over WebSocket,
// using a per-client send channel and register/unregister-on-disconnect
// pattern.
package statsfeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arkforge/pktudp/internal/obslog"
)

// Snapshot is one broadcast stats frame.
type Snapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	PktID               uint64    `json:"pkt_id"`
	PktSz               uint32    `json:"pkt_sz"`
	Direction           string    `json:"direction"`
	PeerAddr            string    `json:"peer_addr"`
	FramesRetransmitted int       `json:"frames_retransmitted"`
	DurationMS          float64   `json:"duration_ms"`
}

type client struct {
	conn *websocket.Conn
	send chan Snapshot
}

// Server is an HTTP server exposing a /stats WebSocket endpoint that fans
// out every Publish call to all connected dashboard clients.
type Server struct {
	upgrader websocket.Upgrader
	log      *obslog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a stats feed server.
func New(log *obslog.Logger) *Server {
	if log == nil {
		log = obslog.GetDefault()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the /stats WebSocket HTTP handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleWebSocket)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("statsfeed: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Snapshot, 64)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
	}()

	for snap := range c.send {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Publish fans snap out to every connected dashboard client, dropping it
// for any client whose buffer is full rather than blocking.
func (s *Server) Publish(snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- snap:
		default:
			s.log.Warn("statsfeed: client buffer full, dropping snapshot")
		}
	}
}

// ListenAndServe starts the HTTP server on addr. It blocks until the server
// stops or errors.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/stats", s.Handler())
	return http.ListenAndServe(addr, mux)
}
