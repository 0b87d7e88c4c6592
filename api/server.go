// Package api exposes the orientation pipeline over HTTP: JSON snapshots of
// the current state and history, plus a websocket stream of live changes.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"orientd/orientation"
	"orientd/storage"
)

// StatsProvider contributes a named section to the /stats payload.
type StatsProvider interface {
	GetSnapshot() map[string]interface{}
}

type Server struct {
	pipeline *orientation.Pipeline
	store    *storage.TransitionStore // optional
	extra    map[string]StatsProvider

	upgrader websocket.Upgrader
}

func NewServer(pipeline *orientation.Pipeline, store *storage.TransitionStore) *Server {
	return &Server{
		pipeline: pipeline,
		store:    store,
		extra:    make(map[string]StatsProvider),
		upgrader: websocket.Upgrader{
			// The daemon serves localhost dashboards; cross-origin pages
			// are fine.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// AddStatsProvider attaches an extra stats section under the given name.
func (s *Server) AddStatsProvider(name string, p StatsProvider) {
	s.extra[name] = p
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", s.handleCurrent)
	mux.HandleFunc("/api/orientation/recent", s.handleRecent)
	mux.HandleFunc("/api/orientation/history", s.handleHistory)
	mux.HandleFunc("/api/orientation/stats", s.handleStats)
	mux.HandleFunc("/api/orientation/stream", s.handleStream)
	return mux
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]interface{}{
		"running": s.pipeline.Running(),
	}
	if state, ok := s.pipeline.Current(); ok {
		resp["orientation"] = state.String()
	}
	if tr, ok := s.pipeline.Buffers().LatestTransition(); ok {
		resp["last_transition"] = tr
	}
	writeJSON(w, resp)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := queryInt(r, "n", 20)
	writeJSON(w, map[string]interface{}{
		"transitions": s.pipeline.Buffers().RecentTransitions(n),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "No transition store configured", http.StatusNotFound)
		return
	}

	n := queryInt(r, "n", 50)
	transitions, err := s.store.Recent(n)
	if err != nil {
		http.Error(w, "Failed to query transitions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	counts, err := s.store.CountByState()
	if err != nil {
		http.Error(w, "Failed to count transitions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"transitions": transitions,
		"counts":      counts,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"pipeline": s.pipeline.Stats(),
	}
	for name, p := range s.extra {
		stats[name] = p.GetSnapshot()
	}
	writeJSON(w, stats)
}

// handleStream upgrades to a websocket and pushes every orientation change
// until the client goes away. The current state is sent immediately so
// clients need not wait for the next rotation.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := make(chan orientation.Transition, 16)
	token := s.pipeline.AddListener(func(tr orientation.Transition) {
		select {
		case updates <- tr:
		default: // slow client, drop
		}
	})
	defer s.pipeline.RemoveListener(token)

	if tr, ok := s.pipeline.Buffers().LatestTransition(); ok {
		if err := conn.WriteJSON(tr); err != nil {
			return
		}
	}

	// Reader goroutine just watches for the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case tr := <-updates:
			if err := conn.WriteJSON(tr); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
