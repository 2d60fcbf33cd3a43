// Package protocol defines the websocket chat payloads.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage    MessageType = "chat_message"
	TypeClientControl  MessageType = "client_control"
	TypeAssistantDelta MessageType = "assistant_delta"
	TypeTurnEnd        MessageType = "turn_end"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatMessage starts a new turn for a user.
type ChatMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Text   string      `json:"text"`
}

// ClientControl carries client actions; the only supported action is cancel.
type ClientControl struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Action string      `json:"action"`
}

// AssistantDelta is one streamed fragment of the assistant reply.
type AssistantDelta struct {
	Type    MessageType `json:"type"`
	UserID  string      `json:"user_id"`
	Content string      `json:"content"`
}

// TurnEnd terminates a turn's delta stream. Reason is "completed",
// "cancelled" or "failed".
type TurnEnd struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Reason string      `json:"reason"`
}

// ErrorEvent reports a turn failure to the client.
type ErrorEvent struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound client payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" || msg.Text == "" {
			return nil, errors.New("invalid chat_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
