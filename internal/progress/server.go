// Package progress is the optional local dashboard for a running export:
// an HTTP+WebSocket server that streams track-count events as the PDB and
// ANLZ writers work, for a companion UI.
package progress

import (
	"encoding/json"
	"net/http"
	"sync"

	"rekordboxport/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Event is one progress update broadcast to every connected client.
type Event struct {
	Stage   string `json:"stage"` // "rows", "anlz", "done"
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server broadcasts Events to every connected WebSocket client.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	addr    string
	http    *http.Server
}

// New builds a Server that will listen on addr once Start is called.
func New(addr string) *Server {
	s := &Server{
		clients: make(map[*websocket.Conn]struct{}),
		addr:    addr,
	}
	router := mux.NewRouter()
	router.HandleFunc("/events", s.handleWebSocket)
	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start runs the HTTP server in the background. Call Close to stop it.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("progress server stopped", logger.ErrorField(err))
		}
	}()
	logger.Info("progress server listening", logger.String("addr", s.addr))
}

func (s *Server) Close() error {
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()
	return s.http.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// The dashboard only receives; drain incoming control frames until the
	// client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends ev to every currently connected client, dropping it for
// clients whose write fails (they'll be pruned on their next read error).
func (s *Server) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("marshal progress event failed", logger.ErrorField(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("progress broadcast failed", logger.ErrorField(err))
		}
	}
}
