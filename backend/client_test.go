// ABOUTME: Tests for the backend HTTP client and the turn runner against httptest servers.
// ABOUTME: Covers streamed turn assembly, transport failure before any event, simple mode, and health gating.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mshokrnezhad/KPI2KVI/chat"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func streamHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func TestTurnRunnerStreamedTurn(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		`{"type":"connected","session_id":"s1"}`,
		`{"type":"status","message":"thinking"}`,
		`{"type":"content","delta":"He"}`,
		`{"type":"content","delta":"llo"}`,
		`{"type":"agent_complete","agent":"x"}`,
		`{"type":"done"}`,
	))
	defer srv.Close()

	store := chat.NewConversation()
	session := chat.NewSession(discardLogger())
	var updates []Update
	runner := NewTurnRunner(NewClient(srv.URL), store, session, discardLogger(), func(u Update) {
		updates = append(updates, u)
	})

	if err := runner.Run(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected user + ai message, got %d", len(snap))
	}
	if snap[0].Sender != chat.SenderUser || snap[0].Text != "hi" {
		t.Errorf("expected user message first, got %+v", snap[0])
	}
	if snap[1].Sender != chat.SenderAI || snap[1].Text != "Hello" {
		t.Errorf("expected assembled ai reply, got %+v", snap[1])
	}
	if id, _ := session.Get(); id != "s1" {
		t.Errorf("expected session id %q, got %q", "s1", id)
	}

	if len(updates) == 0 {
		t.Fatal("expected snapshot updates")
	}
	last := updates[len(updates)-1]
	if last.Typing {
		t.Error("final update must have typing cleared")
	}
}

// Transport failure before any event: exactly one ai message with the
// generic fallback, typing false.
func TestTurnRunnerTransportFailureBeforeAnyEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := chat.NewConversation()
	var last Update
	runner := NewTurnRunner(NewClient(srv.URL), store, chat.NewSession(discardLogger()), discardLogger(), func(u Update) {
		last = u
	})

	err := runner.Run(context.Background(), "hi")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", te.Status)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected user + error message, got %d", len(snap))
	}
	if snap[1].Sender != chat.SenderAI || snap[1].Text != chat.GenericErrorText {
		t.Errorf("expected generic fallback ai message, got %+v", snap[1])
	}
	if last.Typing {
		t.Error("typing must be false after transport failure")
	}
}

func TestTurnRunnerUnreachableBackend(t *testing.T) {
	store := chat.NewConversation()
	runner := NewTurnRunner(NewClient("http://127.0.0.1:1"), store, chat.NewSession(discardLogger()), discardLogger(), nil)

	err := runner.Run(context.Background(), "hi")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 || snap[1].Text != chat.GenericErrorText {
		t.Fatalf("expected generic fallback message, got %+v", snap)
	}
}

func TestTurnRunnerRejectsConcurrentTurn(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"status\",\"message\":\"thinking\"}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		<-release
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
	}))
	defer srv.Close()

	store := chat.NewConversation()
	runner := NewTurnRunner(NewClient(srv.URL), store, chat.NewSession(discardLogger()), discardLogger(), nil)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(context.Background(), "first") }()

	<-started
	if err := runner.Run(context.Background(), "second"); !errors.Is(err, chat.ErrTurnActive) {
		t.Errorf("expected ErrTurnActive, got %v", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
}

func TestTurnRunnerSimpleMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"session_id":"s9","reply":"plain reply"}`)
	}))
	defer srv.Close()

	store := chat.NewConversation()
	session := chat.NewSession(discardLogger())
	runner := NewTurnRunner(NewClient(srv.URL), store, session, discardLogger(), nil)

	if err := runner.RunSimple(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := store.Snapshot()
	if len(snap) != 2 || snap[1].Text != "plain reply" || snap[1].Sender != chat.SenderAI {
		t.Fatalf("expected direct commit of reply, got %+v", snap)
	}
	if id, _ := session.Get(); id != "s9" {
		t.Errorf("expected session id %q, got %q", "s9", id)
	}
}

func TestClientHealth(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","service":"kpi2kvi-backend"}`)
	}))
	defer ok.Close()

	if err := NewClient(ok.URL).Health(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	degraded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"degraded"}`)
	}))
	defer degraded.Close()

	if err := NewClient(degraded.URL).Health(context.Background()); err == nil {
		t.Error("expected error for non-ok status")
	}

	if err := NewClient("http://127.0.0.1:1").Health(context.Background()); err == nil {
		t.Error("expected error for unreachable backend")
	}
}

func TestClientOpenStreamSendsSessionID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	body, err := c.OpenStream(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = io.ReadAll(body)
	_ = body.Close()
	if got != `{"message":"hello","session_id":null}` {
		t.Errorf("expected null session_id on first turn, got %s", got)
	}

	body, err = c.OpenStream(context.Background(), "again", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = io.ReadAll(body)
	_ = body.Close()
	if got != `{"message":"again","session_id":"s1"}` {
		t.Errorf("expected bound session_id, got %s", got)
	}
}
