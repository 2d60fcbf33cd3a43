package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/aria/internal/protocol"
	"github.com/antoniostano/aria/internal/turn"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 2 << 20
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	// Only the writer goroutine touches the connection for writes; turn
	// goroutines and the read loop publish through outbound.
	send := func(msg any) {
		select {
		case outbound <- msg:
		case <-ctx.Done():
		}
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ChatMessage:
			s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeChatMessage)).Inc()
			go s.runTurnWS(ctx, msg, send)
		case protocol.ClientControl:
			s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeClientControl)).Inc()
			if msg.Action == "cancel" {
				s.orchestrator.CancelActive(msg.UserID)
			} else {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					UserID:    msg.UserID,
					Code:      "unsupported_action",
					Retryable: false,
					Detail:    "unknown control action " + msg.Action,
				})
			}
		}
	}

	cancel()
	<-writerDone
}

// runTurnWS executes one turn and publishes its deltas and terminal event.
func (s *Server) runTurnWS(ctx context.Context, msg protocol.ChatMessage, send func(any)) {
	_, err := s.orchestrator.Run(ctx, msg.UserID, msg.Text, func(fragment string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		send(protocol.AssistantDelta{
			Type:    protocol.TypeAssistantDelta,
			UserID:  msg.UserID,
			Content: fragment,
		})
		return nil
	})
	if err != nil {
		_, code := turnErrorStatus(err)
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			UserID:    msg.UserID,
			Code:      code,
			Retryable: !errors.Is(err, turn.ErrConcurrentTurn),
			Detail:    turnErrorMessage(err),
		})
		send(protocol.TurnEnd{
			Type:   protocol.TypeTurnEnd,
			UserID: msg.UserID,
			Reason: wsEndReason(err),
		})
		return
	}
	send(protocol.TurnEnd{
		Type:   protocol.TypeTurnEnd,
		UserID: msg.UserID,
		Reason: "completed",
	})
}

func wsEndReason(err error) string {
	if errors.Is(err, turn.ErrTurnCancelled) {
		return "cancelled"
	}
	return "failed"
}

func messageTypeOf(msg any) (protocol.MessageType, bool) {
	switch m := msg.(type) {
	case protocol.AssistantDelta:
		return m.Type, true
	case protocol.TurnEnd:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
