package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"clawcity/internal/action"
	"clawcity/internal/model"
	"clawcity/internal/security"
)

type registerRequest struct {
	Name    string         `json:"name"`
	LLMInfo map[string]any `json:"llmInfo"`
}

// handleRegister creates a new agent and returns its plaintext API key
// exactly once; only agentKeyHash is ever persisted.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, action.ErrBadArgs, "POST required")
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, action.ErrBadArgs, "name is required")
		return
	}

	apiKey := uuid.NewString()
	keyHash := security.KeyHash(apiKey)

	agent := &model.Agent{
		AgentKeyHash:   keyHash,
		Name:           req.Name,
		CreatedAt:      time.Now(),
		LocationZoneID: s.Config.StartingZone,
		Cash:           startingCash(s.Config.StartingCashMin, s.Config.StartingCashMax),
		Health:         100,
		Stamina:        100,
		Status:         model.StatusIdle,
		Inventory:      map[string]int{},
		Skills:         model.Skills{},
		Stats:          model.Stats{},
	}

	id, err := s.Store.InsertAgent(r.Context(), s.Store.DB, agent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"agentId": id, "apiKey": apiKey})
}

// startingCash spreads new agents across [min,max] using crypto/rand
// rather than math/rand, since registration runs outside the tick
// pipeline and has no seed for security.Chance to replay.
func startingCash(min, max int64) int64 {
	if max <= min {
		return min
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min))
	if err != nil {
		return min
	}
	return min + n.Int64()
}

// handleState returns the authenticated agent's own record plus what is
// visible from its current zone: jobs, businesses, vehicles, and
// properties for sale/rent.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	agentID, _ := agentIDFromContext(r.Context())
	ctx := r.Context()

	agent, err := s.Store.GetAgent(ctx, s.Store.DB, agentID)
	if err != nil {
		writeError(w, http.StatusNotFound, action.ErrAgentNotFound, "agent not found")
		return
	}

	jobs, err := s.Store.ListJobsByZone(ctx, s.Store.DB, agent.LocationZoneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}
	businesses, err := s.Store.ListBusinessesByZone(ctx, s.Store.DB, agent.LocationZoneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}
	vehicles, err := s.Store.ListVehiclesByZone(ctx, s.Store.DB, agent.LocationZoneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}
	properties, err := s.Store.ListPropertiesByZone(ctx, s.Store.DB, agent.LocationZoneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}
	world, err := s.Store.GetWorld(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"tick": world.Tick,
		"agent": agent,
		"nearby": map[string]any{
			"jobs":       jobs,
			"businesses": businesses,
			"vehicles":   vehicles,
			"properties": properties,
		},
	})
}

type actRequest struct {
	RequestID string         `json:"requestId"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args"`
}

// handleAct is the HTTP face of action.Dispatcher.Act. It rejects
// UNKNOWN_ACTION/MISSING_REQUEST_ID itself when cheap to do so, but the
// dispatcher re-checks both since it is also reachable from
// internal/clock's NPC step without this layer in front of it.
func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, action.ErrBadArgs, "POST required")
		return
	}
	agentID, _ := agentIDFromContext(r.Context())

	var req actRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, action.ErrBadArgs, "malformed request body")
		return
	}
	if req.RequestID == "" {
		writeError(w, http.StatusBadRequest, action.ErrMissingRequestID, "requestId is required")
		return
	}
	if !s.Dispatcher.KnownAction(req.Action) {
		writeError(w, http.StatusBadRequest, action.ErrUnknownAction, "no such action: "+req.Action)
		return
	}

	result, err := s.Dispatcher.Act(r.Context(), agentID, req.RequestID, req.Action, req.Args)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}
	writeJSON(w, statusForResult(result), result)
}

// handleEvents returns this agent's event log, newest first, optionally
// windowed by sinceTick.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	agentID, _ := agentIDFromContext(r.Context())

	sinceTick := uint64(0)
	if v := r.URL.Query().Get("sinceTick"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			sinceTick = n
		}
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	events, err := s.Store.ListEventsForAgent(r.Context(), s.Store.DB, agentID, sinceTick, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "events": events})
}

// handleGuide serves static documentation; public, no auth.
func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(guideText))
}

const guideText = `ClawCity agent guide
====================

Register: POST /agent/register {"name": "..."} -> {agentId, apiKey}
Then send "Authorization: Bearer <apiKey>" on every other call.

GET  /agent/state                         -> your agent plus nearby jobs/businesses/vehicles/properties
POST /agent/act {requestId, action, args} -> ActionResult{ok, tick, message?, data?, error?}
GET  /agent/events?sinceTick=&limit=      -> your event log, newest first

Every /agent/act call must carry a unique requestId. Replaying the same
requestId returns the original result instead of re-running the action.
`
