package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/model"
	"BeaconBot/internal/parser"
	"BeaconBot/internal/util"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Server publishes status snapshots to websocket clients and serves the
// latest status and the match log over HTTP.
type Server struct {
	Addr   string
	store  *Store
	codec  *parser.CSVParser
	log    hclog.Logger
	mux    *http.ServeMux
	server *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  model.Status
}

// NewServer constructs a Server listening on addr. store may be nil.
func NewServer(addr string, store *Store) *Server {
	s := &Server{
		Addr:    addr,
		store:   store,
		codec:   parser.NewCSVParser(),
		log:     util.Logger("telemetry"),
		mux:     http.NewServeMux(),
		clients: map[*websocket.Conn]bool{},
	}
	s.registerRoutes()
	return s
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start binds the listener and serves in the background.
// An empty address disables the HTTP side; Publish still records to the store.
func (s *Server) Start() error {
	if s.Addr == "" {
		s.log.Info("telemetry server not started (empty address)")
		return nil
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("telemetry listen: %w", err)
	}
	s.server = &http.Server{Addr: s.Addr, Handler: s.mux}
	s.log.Info("listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the HTTP server and disconnects websocket clients.
func (s *Server) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warn("shutdown error", "error", err)
		}
	}
	s.mu.Lock()
	for c := range s.clients {
		_ = c.Close()
		delete(s.clients, c)
	}
	s.mu.Unlock()
}

// Publish records a status, stores it in the match log and broadcasts it as CSV.
func (s *Server) Publish(st model.Status) {
	s.mu.Lock()
	s.latest = st
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.AppendStatus(st); err != nil && !errors.Is(err, ErrNoMatch) && !errors.Is(err, ErrClosed) {
			s.log.Warn("store status failed", "error", err)
		}
	}
	line, err := s.codec.EncodeStatus(st)
	if err != nil {
		s.log.Warn("encode status failed", "error", err)
		return
	}
	s.broadcast(line)
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Latest returns the last published status.
func (s *Server) Latest() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Server) broadcast(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			_ = c.Close()
			delete(s.clients, c)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Latest())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "match log disabled", http.StatusNotFound)
		return
	}
	id := s.store.Current()
	if q := r.URL.Query().Get("match"); q != "" {
		v, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		id = v
	}
	entries, err := s.store.Entries(id)
	if errors.Is(err, ErrNoMatch) {
		http.Error(w, "no such match", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to read match log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "match log disabled", http.StatusNotFound)
		return
	}
	matches, err := s.store.Matches()
	if err != nil {
		http.Error(w, "failed to read matches", http.StatusInternalServerError)
		return
	}
	writeJSON(w, matches)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
