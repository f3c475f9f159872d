// ABOUTME: Tests for the in-memory session store, including TTL pruning with a fake clock.
package server

import (
	"io"
	"log"
	"testing"
	"time"
)

func newTestStore(ttl time.Duration) *SessionStore {
	return NewSessionStore(ttl, log.New(io.Discard, "", 0))
}

func TestGetOrCreateNewSession(t *testing.T) {
	store := newTestStore(0)

	state := store.GetOrCreate("", "inspector")
	if state.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if state.CurrentAgent != "inspector" {
		t.Errorf("expected starting agent inspector, got %q", state.CurrentAgent)
	}
	if len(state.Messages) != 0 {
		t.Errorf("expected empty history, got %d messages", len(state.Messages))
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 session, got %d", store.Len())
	}
}

func TestGetOrCreateHonorsClientSuppliedID(t *testing.T) {
	store := newTestStore(0)

	state := store.GetOrCreate("client-id", "inspector")
	if state.ID != "client-id" {
		t.Errorf("expected session id %q, got %q", "client-id", state.ID)
	}

	again := store.GetOrCreate("client-id", "inspector")
	if again.ID != "client-id" || store.Len() != 1 {
		t.Errorf("expected the same session back, got id=%q len=%d", again.ID, store.Len())
	}
}

func TestUpdateAndCurrentAgent(t *testing.T) {
	store := newTestStore(0)
	state := store.GetOrCreate("", "inspector")

	store.Update(state.ID, []HistoryMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}, "kvi_cat_evaluator")

	agent, ok := store.CurrentAgent(state.ID)
	if !ok || agent != "kvi_cat_evaluator" {
		t.Errorf("expected kvi_cat_evaluator, got %q ok=%v", agent, ok)
	}

	refreshed := store.GetOrCreate(state.ID, "inspector")
	if len(refreshed.Messages) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(refreshed.Messages))
	}
	if refreshed.CurrentAgent != "kvi_cat_evaluator" {
		t.Errorf("expected stored agent preserved, got %q", refreshed.CurrentAgent)
	}
}

func TestUpdateUnknownSessionIgnored(t *testing.T) {
	store := newTestStore(0)
	store.Update("ghost", []HistoryMessage{{Role: "user", Content: "hi"}}, "inspector")
	if store.Len() != 0 {
		t.Errorf("expected no session created by Update, got %d", store.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := newTestStore(0)
	state := store.GetOrCreate("", "inspector")
	store.Update(state.ID, []HistoryMessage{{Role: "user", Content: "hi"}}, "inspector")

	snap := store.GetOrCreate(state.ID, "inspector")
	snap.Messages[0].Content = "mutated"

	fresh := store.GetOrCreate(state.ID, "inspector")
	if fresh.Messages[0].Content != "hi" {
		t.Error("expected stored history to be unaffected by snapshot mutation")
	}
}

func TestTTLPruning(t *testing.T) {
	store := newTestStore(time.Hour)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	stale := store.GetOrCreate("", "inspector")
	now = now.Add(30 * time.Minute)
	live := store.GetOrCreate("", "inspector")

	// The stale session passes the first check but expires after another hour.
	now = now.Add(15 * time.Minute)
	if _, ok := store.CurrentAgent(stale.ID); !ok {
		t.Error("expected session within TTL to survive")
	}

	now = now.Add(2 * time.Hour)
	if _, ok := store.CurrentAgent(stale.ID); ok {
		t.Error("expected stale session to be pruned")
	}
	if _, ok := store.CurrentAgent(live.ID); ok {
		t.Error("expected idle session to be pruned after TTL")
	}
}

func TestTTLRefreshOnAccess(t *testing.T) {
	store := newTestStore(time.Hour)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	state := store.GetOrCreate("", "inspector")
	for i := 0; i < 3; i++ {
		now = now.Add(45 * time.Minute)
		store.GetOrCreate(state.ID, "inspector")
	}

	if _, ok := store.CurrentAgent(state.ID); !ok {
		t.Error("expected accessed session to stay alive past the original TTL")
	}
}
