package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/aria/internal/memory"
)

// AddMemoryRequest stores a fact for a user directly, bypassing the
// conversational capture heuristic.
type AddMemoryRequest struct {
	Text       string   `json:"text"`
	Importance *float64 `json:"importance,omitempty"`
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	users, turns := s.history.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"memory_provider":  s.gateway.ProviderName(),
		"history_users":    users,
		"history_turns":    turns,
		"history_capacity": s.history.Capacity(),
	})
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", 50)

	var (
		records []memory.Record
		err     error
	)
	if query := strings.TrimSpace(r.URL.Query().Get("search")); query != "" {
		records, err = s.gateway.Search(r.Context(), userID, query, limit)
	} else {
		records, err = s.gateway.List(r.Context(), userID, limit)
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, "memory_unavailable", "memory provider is unavailable")
		return
	}
	if records == nil {
		records = []memory.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"memories": records,
		"count":    len(records),
	})
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req AddMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	importance := 0.5
	if req.Importance != nil {
		importance = *req.Importance
	}

	rec, err := s.gateway.Remember(r.Context(), userID, req.Text, importance)
	if err != nil {
		respondError(w, http.StatusBadGateway, "memory_unavailable", "memory provider is unavailable")
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

// handleMemoryContext shows the context a message would be answered with,
// without running a turn. Debug surface.
func (s *Server) handleMemoryContext(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query parameter message is required")
		return
	}

	pc := s.builder.Assemble(r.Context(), userID, message)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":        userID,
		"message":        message,
		"segments":       pc.Segments,
		"degraded":       pc.Degraded,
		"fact_count":     pc.FactCount,
		"turn_count":     pc.TurnCount,
		"context_length": pc.Size(),
	})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	memoryID := chi.URLParam(r, "memoryID")

	if err := s.gateway.Delete(r.Context(), userID, memoryID); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "memory_not_found", "no such memory")
			return
		}
		respondError(w, http.StatusBadGateway, "memory_unavailable", "memory provider is unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"deleted": memoryID,
	})
}

func (s *Server) handleClearMemories(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := s.gateway.Clear(r.Context(), userID); err != nil {
		respondError(w, http.StatusBadGateway, "memory_unavailable", "memory provider is unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"cleared": true,
	})
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
