// Package api serves read-only campaign status over HTTP: JSON endpoints
// for dashboards and a websocket stream that pushes a fresh snapshot
// whenever the ledger file changes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hochfrequenz/cherry-orch/internal/ledger"
)

// Server is the HTTP status server for one ledger file
type Server struct {
	ledgerPath string
	format     ledger.Format
	links      ledger.Links
	mux        *http.ServeMux
	hub        *Hub
	httpServer *http.Server
}

// NewServer creates a status server over the ledger at ledgerPath
func NewServer(ledgerPath string, format ledger.Format, links ledger.Links, addr string) *Server {
	s := &Server{
		ledgerPath: ledgerPath,
		format:     format,
		links:      links,
		mux:        http.NewServeMux(),
		hub:        NewHub(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{Addr: addr, Handler: s.mux}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/records", s.recordsHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler())
}

// Handler exposes the mux, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the hub and blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	go s.hub.Run()
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NotifyChange reloads the ledger and pushes a snapshot to every websocket
// client. Wired to the ledger file watcher.
func (s *Server) NotifyChange() {
	snap, err := s.snapshot()
	if err != nil {
		return
	}
	s.hub.Broadcast(snap)
}

func (s *Server) snapshot() (Snapshot, error) {
	led, err := ledger.Load(s.ledgerPath, s.format, s.links)
	if err != nil {
		return Snapshot{}, err
	}
	return makeSnapshot(led), nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
