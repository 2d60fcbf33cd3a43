// Package httpapi exposes the chat, history and memory surfaces over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/history"
	"github.com/antoniostano/aria/internal/memory"
	"github.com/antoniostano/aria/internal/observability"
	"github.com/antoniostano/aria/internal/prompt"
	"github.com/antoniostano/aria/internal/turn"
)

type Server struct {
	cfg          config.Config
	orchestrator *turn.Orchestrator
	history      *history.Store
	gateway      *memory.Gateway
	builder      *prompt.Builder
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, orchestrator *turn.Orchestrator, hist *history.Store, gateway *memory.Gateway, builder *prompt.Builder, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		history:      hist,
		gateway:      gateway,
		builder:      builder,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly
				// opened up; non-browser clients omit Origin and pass.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChatStream)
	r.Post("/api/chat/sync", s.handleChatSync)
	r.Post("/api/chat/{userID}/cancel", s.handleCancelTurn)
	r.Get("/api/chat/ws", s.handleChatWS)

	r.Get("/api/history/{userID}", s.handleGetHistory)
	r.Delete("/api/history/{userID}", s.handleClearHistory)

	r.Get("/api/memories/stats", s.handleMemoryStats)
	r.Get("/api/memories/{userID}/context", s.handleMemoryContext)
	r.Get("/api/memories/{userID}", s.handleListMemories)
	r.Post("/api/memories/{userID}", s.handleAddMemory)
	r.Delete("/api/memories/{userID}/{memoryID}", s.handleDeleteMemory)
	r.Delete("/api/memories/{userID}", s.handleClearMemories)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "aria",
		"health":  "/healthz",
		"chat":    "/api/chat",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"memory_provider": s.gateway.ProviderName(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"active_turns": s.orchestrator.ActiveTurns(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
