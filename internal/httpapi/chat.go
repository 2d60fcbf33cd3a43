package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/aria/internal/frame"
	"github.com/antoniostano/aria/internal/history"
	"github.com/antoniostano/aria/internal/turn"
)

// ChatRequest is the turn submission payload.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the non-streaming reply.
type ChatResponse struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return ChatRequest{}, false
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)
	if req.UserID == "" || req.Message == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id and message are required")
		return ChatRequest{}, false
	}
	return req, true
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	// The SSE writer is created lazily so an immediate rejection can still
	// go out as a plain JSON error instead of an event stream.
	var sse *frame.SSEWriter
	ensureSSE := func() error {
		if sse != nil {
			return nil
		}
		var err error
		sse, err = frame.NewSSEWriter(w)
		return err
	}

	_, err := s.orchestrator.Run(r.Context(), req.UserID, req.Message, func(fragment string) error {
		if err := ensureSSE(); err != nil {
			return err
		}
		return sse.WriteContent(fragment)
	})
	if err != nil {
		if sse == nil {
			if errors.Is(err, turn.ErrConcurrentTurn) {
				respondError(w, http.StatusConflict, "concurrent_turn_rejected", err.Error())
				return
			}
			if ensureSSE() != nil {
				respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
				return
			}
		}
		_ = sse.WriteError(turnErrorMessage(err))
		return
	}

	if ensureSSE() != nil {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
		return
	}
	_ = sse.WriteDone()
}

func (s *Server) handleChatSync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	var agg frame.Aggregator
	completed, err := s.orchestrator.Run(r.Context(), req.UserID, req.Message, agg.Append)
	if err != nil {
		status, code := turnErrorStatus(err)
		respondError(w, status, code, turnErrorMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, ChatResponse{
		UserID:    req.UserID,
		Message:   req.Message,
		Response:  completed.AssistantText,
		Timestamp: completed.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleCancelTurn(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	cancelled := s.orchestrator.CancelActive(userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   userID,
		"cancelled": cancelled,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	turns := s.history.Recent(userID, 0)
	if turns == nil {
		turns = []history.Turn{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"history": turns,
		"count":   len(turns),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.history.Clear(userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"cleared": true,
	})
}

func turnErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, turn.ErrConcurrentTurn):
		return http.StatusConflict, "concurrent_turn_rejected"
	case errors.Is(err, turn.ErrTurnTimeout):
		return http.StatusGatewayTimeout, "provider_timeout"
	case errors.Is(err, turn.ErrTurnCancelled):
		return http.StatusRequestTimeout, "turn_cancelled"
	default:
		return http.StatusBadGateway, "provider_error"
	}
}

func turnErrorMessage(err error) string {
	switch {
	case errors.Is(err, turn.ErrConcurrentTurn):
		return "another turn is already in progress for this user"
	case errors.Is(err, turn.ErrTurnTimeout):
		return "the assistant took too long to respond"
	case errors.Is(err, turn.ErrTurnCancelled):
		return "the turn was cancelled"
	default:
		return "the assistant is currently unavailable"
	}
}
