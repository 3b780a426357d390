package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Status pages are served from other hosts than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans ledger snapshots out to connected websocket clients
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Snapshot
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a websocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Snapshot, 8),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run dispatches hub events; call it once in a goroutine
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case snap := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(snap); err != nil {
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a snapshot for every connected client
func (h *Hub) Broadcast(snap Snapshot) {
	select {
	case h.broadcast <- snap:
	default:
		// A stalled hub must not block the cherry-pick loop.
	}
}

func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Send the current state before registering so this write cannot
		// race a hub broadcast; clients don't wait for the next change.
		if snap, err := s.snapshot(); err == nil {
			conn.WriteJSON(snap)
		}
		s.hub.register <- conn

		// Drain reads to detect disconnect.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					s.hub.unregister <- conn
					return
				}
			}
		}()
	}
}
