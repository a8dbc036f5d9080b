package events

import (
	"encoding/json"
	"fmt"
)

// Event type names carried on the wire by the daemon's SSE stream
const (
	TypeInboundMessage  = "inbound_message"
	TypeOutboundMessage = "outbound_message"
	TypeTypingState     = "typing_state"
	TypeProcessEvent    = "process_event"
)

// InboundMessage is a message a user sent into a channel
type InboundMessage struct {
	AgentID   string `json:"agent_id"`
	ChannelID string `json:"channel_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
}

// OutboundMessage is a message the bot sent to a channel
type OutboundMessage struct {
	AgentID   string `json:"agent_id"`
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// TypingState is a typing indicator transition for a channel
type TypingState struct {
	AgentID   string `json:"agent_id"`
	ChannelID string `json:"channel_id"`
	IsTyping  bool   `json:"is_typing"`
}

// ProcessEvent is the forward-compatible envelope for agent-internal events.
// The inner event keeps its raw encoding; consumers that recognize the inner
// type decode it themselves, everyone else ignores it.
type ProcessEvent struct {
	AgentID string          `json:"agent_id"`
	Event   json.RawMessage `json:"event"`
}

// Payload is the tagged result of decoding an event's data. Decoded holds
// the typed struct when structured parsing succeeded and is nil otherwise;
// Raw always carries the original data so a handler can apply its own
// policy instead of the event being silently dropped.
type Payload struct {
	Decoded interface{}
	Raw     string
}

// IsRaw reports whether structured parsing failed for this payload
func (p Payload) IsRaw() bool {
	return p.Decoded == nil
}

// Handler receives every payload dispatched for its registered event type
type Handler func(p Payload)

// HandlerTable maps event type names to handlers. Tables are swapped
// wholesale; the client reads the current table at dispatch time.
type HandlerTable map[string]Handler

// decodePayload parses data into the typed struct registered for the event
// name. Unknown names decode into a generic map so handlers for extension
// events still get structured data when the payload is well-formed JSON.
func decodePayload(eventType, data string) (interface{}, error) {
	switch eventType {
	case TypeInboundMessage:
		var msg InboundMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		return &msg, nil
	case TypeOutboundMessage:
		var msg OutboundMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		return &msg, nil
	case TypeTypingState:
		var state TypingState
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		return &state, nil
	case TypeProcessEvent:
		var ev ProcessEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		return &ev, nil
	default:
		var generic map[string]interface{}
		if err := json.Unmarshal([]byte(data), &generic); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
		}
		return generic, nil
	}
}
