// ABOUTME: Typed event union for the multi-agent chat stream protocol.
// ABOUTME: Maps SSE frame payloads to Events and Events back to wire JSON for the server side.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind discriminates the type of a stream event.
type EventKind string

const (
	EventConnected     EventKind = "connected"
	EventStatus        EventKind = "status"
	EventContent       EventKind = "content"
	EventAgentComplete EventKind = "agent_complete"
	EventTransition    EventKind = "transition"
	EventComplete      EventKind = "complete"
	EventDone          EventKind = "done"
	EventError         EventKind = "error"
)

// ErrMissingType reports a structurally valid payload without a type field.
var ErrMissingType = errors.New("event payload missing type field")

// Event is one parsed stream event. Kind determines which of the remaining
// fields are meaningful; unused fields are zero.
type Event struct {
	Kind      EventKind
	SessionID string // connected
	Agent     string // connected (current agent), agent_complete
	Message   string // status, transition hand-off note, error
	Delta     string // content
	FromAgent string // transition
	ToAgent   string // transition
}

// wireEvent is the JSON shape of an event frame payload.
type wireEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Message   string `json:"message,omitempty"`
	Delta     string `json:"delta,omitempty"`
	FromAgent string `json:"from_agent,omitempty"`
	ToAgent   string `json:"to_agent,omitempty"`
}

// ParseEvent parses a frame payload into an Event. A payload that is not a
// JSON object or lacks a type field is a frame parse failure: the caller
// logs it and moves on, it never aborts the stream. A payload whose type is
// not a known kind parses successfully; the accumulator discards it.
func ParseEvent(payload string) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return Event{}, fmt.Errorf("parsing event payload: %w", err)
	}
	if w.Type == "" {
		return Event{}, ErrMissingType
	}

	return Event{
		Kind:      EventKind(w.Type),
		SessionID: w.SessionID,
		Agent:     w.Agent,
		Message:   w.Message,
		Delta:     w.Delta,
		FromAgent: w.FromAgent,
		ToAgent:   w.ToAgent,
	}, nil
}

// MarshalJSON renders the event as a frame payload object with the type tag.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Type:      string(e.Kind),
		SessionID: e.SessionID,
		Agent:     e.Agent,
		Message:   e.Message,
		Delta:     e.Delta,
		FromAgent: e.FromAgent,
		ToAgent:   e.ToAgent,
	})
}
