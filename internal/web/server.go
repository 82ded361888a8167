// Package web provides the HTTP dashboard and forensic API for the monitor.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/evohome-monitor/internal/status"
	"github.com/sweeney/evohome-monitor/internal/store"
)

// Server serves the dashboard and JSON API.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	store      *store.Store
}

// New creates a Server that reads state from the tracker and forensic data
// from the store. The store may be nil; forensic endpoints then return 503.
func New(addr string, tracker *status.Tracker, st *store.Store) *Server {
	s := &Server{tracker: tracker, store: st}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /forensics", s.handleForensics)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /api/zone/{id}/history", s.handleZoneHistory)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()

	var recent []store.EventRecord
	if s.store != nil {
		if events, err := s.store.Events(store.EventFilter{Days: 1}); err == nil {
			if len(events) > 10 {
				events = events[:10]
			}
			recent = events
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderDashboard(w, snap, recent)
}

func (s *Server) handleForensics(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "forensic store not available", http.StatusServiceUnavailable)
		return
	}

	days := queryInt(r, "days", 30)
	diag, err := s.store.Diagnostics(days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderForensics(w, diag, days)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	if snap.System == nil {
		http.Error(w, "no state available yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, buildStateJSON(snap))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "forensic store not available", http.StatusServiceUnavailable)
		return
	}

	filter := store.EventFilter{
		ZoneID:         r.URL.Query().Get("zone_id"),
		OverrideType:   r.URL.Query().Get("override_type"),
		Days:           queryInt(r, "days", 30),
		SuspiciousOnly: r.URL.Query().Get("suspicious_only") == "true",
	}
	events, err := s.store.Events(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []store.EventRecord{}
	}

	writeJSON(w, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "forensic store not available", http.StatusServiceUnavailable)
		return
	}

	diag, err := s.store.Diagnostics(queryInt(r, "days", 30))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, diag)
}

func (s *Server) handleZoneHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "forensic store not available", http.StatusServiceUnavailable)
		return
	}

	zoneID := r.PathValue("id")
	history, err := s.store.ZoneHistory(zoneID, queryInt(r, "hours", 24))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []store.ZoneHistoryRecord{}
	}

	writeJSON(w, map[string]any{"zone_id": zoneID, "history": history})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildHealthJSON(s.tracker.Snapshot()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
