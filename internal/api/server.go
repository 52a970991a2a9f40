// Package api serves a running simulation over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (operator control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tanukai/factorytown/internal/engine"
	"github.com/tanukai/factorytown/internal/persistence"
)

// Intervener applies operator interventions to a running simulation.
// Implementations must be safe to call concurrently with stepping.
type Intervener interface {
	InjectWealth(amount float64) error
}

// Server serves simulation state over HTTP.
type Server struct {
	Hub       *Hub
	DB        *persistence.DB // nil when the run is not being recorded
	RunID     string
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.
	Intervene Intervener

	upgrader websocket.Upgrader
}

// Handler builds the route table. Split from Start for tests.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/ws", s.handleStream)

	mux.HandleFunc("/api/v1/intervention", s.adminOnly(s.handleIntervention))

	return mux
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "recording", s.DB != nil)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Hub.Last()
	writeJSON(w, map[string]any{
		"name":       "Factorytown",
		"run_id":     s.RunID,
		"tick":       snap.Tick,
		"day":        snap.Day,
		"phase":      snap.Phase,
		"headcount":  snap.Headcount,
		"unemployed": snap.Unemployed,
		"price":      snap.Price,
		"inventory":  snap.Inventory,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Hub.Last())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "history not available (run not recorded)", http.StatusServiceUnavailable)
		return
	}

	fromTick := uint64(0)
	toTick := uint64(1<<63 - 1) // Max int64, avoids uint64 high-bit SQLite driver issue.
	limit := 100

	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 64); err == nil {
			fromTick = v
		}
	}
	if t := r.URL.Query().Get("to"); t != "" {
		if v, err := strconv.ParseUint(t, 10, 64); err == nil {
			toTick = v
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 2000 {
			limit = v
		}
	}

	snaps, err := s.DB.SnapshotHistory(s.RunID, fromTick, toTick, limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		writeJSON(w, []engine.Snapshot{})
		return
	}
	if snaps == nil {
		snaps = []engine.Snapshot{}
	}
	writeJSON(w, snaps)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "events not available (run not recorded)", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	events, err := s.DB.RecentEvents(s.RunID, limit)
	if err != nil {
		slog.Error("events query failed", "error", err)
		writeJSON(w, []engine.Event{})
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Intervene == nil {
		http.Error(w, "intervention not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Type   string  `json:"type"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case "wealth":
		if err := s.Intervene.InjectWealth(req.Amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{
			"success": true,
			"details": fmt.Sprintf("stimulus of %.1f granted to every worker", req.Amount),
		})
	default:
		http.Error(w, "unknown intervention type (use: wealth)", http.StatusBadRequest)
	}
}

// handleStream upgrades to a websocket and pushes one JSON snapshot per
// tick until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(id)
	slog.Info("stream client connected", "sub_id", id)

	// Catch-up frame so a fresh client is never empty.
	if err := writeSnapshot(conn, s.Hub.Last()); err != nil {
		return
	}

	// Reader loop only to observe close; inbound frames are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "sub_id", id)
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap engine.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
