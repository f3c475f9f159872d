// ABOUTME: Tests for frame payload parsing into typed events.
// ABOUTME: Covers each event kind, malformed payloads, missing type, and round-tripping to wire JSON.
package chat

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEventKinds(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
	}{
		{
			"connected",
			`{"type":"connected","session_id":"s1","agent":"inspector"}`,
			Event{Kind: EventConnected, SessionID: "s1", Agent: "inspector"},
		},
		{
			"status",
			`{"type":"status","message":"inspector is thinking..."}`,
			Event{Kind: EventStatus, Message: "inspector is thinking..."},
		},
		{
			"content",
			`{"type":"content","delta":"Hel"}`,
			Event{Kind: EventContent, Delta: "Hel"},
		},
		{
			"agent_complete",
			`{"type":"agent_complete","agent":"inspector"}`,
			Event{Kind: EventAgentComplete, Agent: "inspector"},
		},
		{
			"transition",
			`{"type":"transition","from_agent":"a","to_agent":"b","message":"Handing off..."}`,
			Event{Kind: EventTransition, FromAgent: "a", ToAgent: "b", Message: "Handing off..."},
		},
		{
			"complete",
			`{"type":"complete"}`,
			Event{Kind: EventComplete},
		},
		{
			"done",
			`{"type":"done"}`,
			Event{Kind: EventDone},
		},
		{
			"error",
			`{"type":"error","message":"boom"}`,
			Event{Kind: EventError, Message: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(tt.payload)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, ev)
			}
		})
	}
}

func TestParseEventMalformed(t *testing.T) {
	if _, err := ParseEvent("not json at all"); err == nil {
		t.Error("expected error for non-JSON payload")
	}
	if _, err := ParseEvent(`["array"]`); err == nil {
		t.Error("expected error for non-object payload")
	}
}

func TestParseEventMissingType(t *testing.T) {
	_, err := ParseEvent(`{"message":"no type here"}`)
	if !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
}

func TestParseEventUnknownKindIsNotAParseFailure(t *testing.T) {
	ev, err := ParseEvent(`{"type":"telemetry","message":"x"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventKind("telemetry") {
		t.Errorf("expected kind to pass through, got %q", ev.Kind)
	}
}

func TestParseEventIgnoresExtraFields(t *testing.T) {
	ev, err := ParseEvent(`{"type":"complete","final_response":"...","history":[]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventComplete {
		t.Errorf("expected complete, got %q", ev.Kind)
	}
}

func TestEventMarshalRoundTrip(t *testing.T) {
	in := Event{Kind: EventTransition, FromAgent: "inspector", ToAgent: "kvi_cat_extractor", Message: "note"}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := ParseEvent(string(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}
