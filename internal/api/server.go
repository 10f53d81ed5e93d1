// Package api provides the HTTP API for observing the economy.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/persistence"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

const maxStreamConns = 8

// Server serves the economy over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; snapshots are disabled without it
	Catalog  catalog.Lookup
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	streamConns int32
	upgrader    websocket.Upgrader
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	controlLimiter := NewRateLimiter(60, time.Minute)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/companies", s.handleCompanies)
	mux.HandleFunc("/api/v1/facilities", s.handleFacilities)
	mux.HandleFunc("/api/v1/facility/", s.handleFacilityDetail)
	mux.HandleFunc("/api/v1/technology", s.handleTechnology)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/control", s.adminOnly(RateLimitMiddleware(controlLimiter, s.handleControl)))

	return corsMiddleware(mux)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly guards POST requests; GET passes through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no TYCOON_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Sim.View(func(st *state.Store, ctx state.TickContext) {
		operational := 0
		for _, f := range st.Facilities {
			if f.Operational {
				operational++
			}
		}
		player := ""
		if c, ok := st.Companies[ctx.PlayerCompanyID]; ok {
			player = c.Name
		}
		status = map[string]any{
			"name":           "tycoon-sim",
			"tick":           ctx.Tick,
			"sim_date":       engine.SimDate(ctx.Tick),
			"player_company": ctx.PlayerCompanyID,
			"player_name":    player,
			"player_cash":    ctx.PlayerCash,
			"companies":      len(st.Companies),
			"facilities":     len(st.Facilities),
			"operational":    operational,
			"ledger_entries": st.Tech.Len(),
		}
	})
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Report())
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	type companyEntry struct {
		ID              state.EntityID `json:"id"`
		Name            string         `json:"name"`
		Cash            int64          `json:"cash"`
		Reputation      int            `json:"reputation"`
		MonthlyExpenses int64          `json:"monthly_expenses"`
		Facilities      int            `json:"facilities"`
		IsPlayer        bool           `json:"is_player"`
	}

	var result []companyEntry
	s.Sim.View(func(st *state.Store, ctx state.TickContext) {
		counts := make(map[state.EntityID]int)
		for _, f := range st.Facilities {
			counts[f.CompanyID]++
		}
		result = make([]companyEntry, 0, len(st.Companies))
		for _, id := range st.CompanyIDs() {
			c := st.Companies[id]
			cash, _ := st.Cash(id)
			result = append(result, companyEntry{
				ID:              id,
				Name:            c.Name,
				Cash:            cash,
				Reputation:      c.Reputation,
				MonthlyExpenses: c.MonthlyExpenses,
				Facilities:      counts[id],
				IsPlayer:        id == ctx.PlayerCompanyID,
			})
		}
	})
	writeJSON(w, result)
}

type facilityEntry struct {
	state.FacilityRecord
	BuildingName string `json:"building_name,omitempty"`
	BuildingKind string `json:"building_kind,omitempty"`
}

func (s *Server) describe(rec state.FacilityRecord) facilityEntry {
	e := facilityEntry{FacilityRecord: rec}
	if s.Catalog != nil {
		if def, ok := s.Catalog.Building(rec.BuildingID); ok {
			e.BuildingName = def.Name
			e.BuildingKind = string(def.Kind)
		}
	}
	return e
}

// handleFacilities lists facilities, optionally filtered by ?company=ID.
func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	var company uint64
	if c := r.URL.Query().Get("company"); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			http.Error(w, "invalid company id", http.StatusBadRequest)
			return
		}
		company = id
	}

	var result []facilityEntry
	s.Sim.View(func(st *state.Store, _ state.TickContext) {
		result = make([]facilityEntry, 0, len(st.Facilities))
		for _, id := range st.FacilityIDs() {
			if company != 0 && st.Facilities[id].CompanyID != company {
				continue
			}
			rec, _ := st.FacilityRecord(id)
			result = append(result, s.describe(rec))
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleFacilityDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/facility/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid facility id", http.StatusBadRequest)
		return
	}

	var (
		rec   state.FacilityRecord
		found bool
	)
	s.Sim.View(func(st *state.Store, _ state.TickContext) {
		rec, found = st.FacilityRecord(id)
	})
	if !found {
		http.Error(w, "facility not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s.describe(rec))
}

// handleTechnology lists ledger entries, optionally filtered by ?company=ID.
func (s *Server) handleTechnology(w http.ResponseWriter, r *http.Request) {
	type techEntry struct {
		tech.Entry
		Tier        int    `json:"tier"`
		ProductName string `json:"product_name,omitempty"`
	}

	var company uint64
	if c := r.URL.Query().Get("company"); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			http.Error(w, "invalid company id", http.StatusBadRequest)
			return
		}
		company = id
	}

	var result []techEntry
	s.Sim.View(func(st *state.Store, _ state.TickContext) {
		entries := st.Tech.Entries()
		result = make([]techEntry, 0, len(entries))
		for _, e := range entries {
			if company != 0 && e.CompanyID != company {
				continue
			}
			te := techEntry{Entry: *e, Tier: tech.Tier(e.TechLevel)}
			if s.Catalog != nil {
				if p, ok := s.Catalog.Product(e.ProductID); ok {
					te.ProductName = p.Name
				}
			}
			result = append(result, te)
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(0)

	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	if events == nil {
		events = []engine.Event{}
	}

	writeJSON(w, events[start:])
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveSimulation(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}

// handleControl applies one operator control to a facility.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type           string  `json:"type"`
		FacilityID     uint64  `json:"facility_id"`
		Utilization    float64 `json:"utilization,omitempty"`
		Operational    bool    `json:"operational,omitempty"`
		ProductID      int     `json:"product_id,omitempty"`
		RecipeID       int     `json:"recipe_id,omitempty"`
		Salary         int64   `json:"salary,omitempty"`
		TrainingBudget int64   `json:"training_budget,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.FacilityID == 0 {
		http.Error(w, "facility_id required", http.StatusBadRequest)
		return
	}

	var (
		desc string
		err  error
	)
	switch req.Type {
	case "utilization":
		desc, err = s.Sim.SetUtilization(req.FacilityID, req.Utilization)
	case "operational":
		desc, err = s.Sim.SetOperational(req.FacilityID, req.Operational)
	case "research":
		desc, err = s.Sim.AssignResearch(req.FacilityID, catalog.ProductID(req.ProductID))
	case "recipe":
		desc, err = s.Sim.AssignRecipe(req.FacilityID, catalog.RecipeID(req.RecipeID))
	case "payroll":
		desc, err = s.Sim.SetPayroll(req.FacilityID, req.Salary, req.TrainingBudget)
	default:
		http.Error(w, "unknown control type (use: utilization, operational, research, recipe, payroll)", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"success": true, "details": desc})
}

// handleStream upgrades to a websocket and pushes every monthly report.
// The latest report is sent immediately as catch-up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streamConns, 1)
	defer atomic.AddInt32(&s.streamConns, -1)
	if current > maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID)

	// Reader goroutine: notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v engine.SimStats) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(v) == nil
	}
	if !send(s.Sim.Report()) {
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case report, ok := <-ch:
			if !ok || !send(report) {
				return
			}
		case <-heartbeat.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
