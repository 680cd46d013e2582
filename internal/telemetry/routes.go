package telemetry

import (
	"net/http"
)

// registerRoutes sets up the operator endpoints. Everything is read-only.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/status", readOnly(s.handleStatus))
	s.mux.HandleFunc("/api/log", readOnly(s.handleLog))
	s.mux.HandleFunc("/api/matches", readOnly(s.handleMatches))
	s.mux.HandleFunc("/ws", s.handleWS)
}

// readOnly rejects anything but GET and HEAD.
func readOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
