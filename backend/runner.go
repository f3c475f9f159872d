// ABOUTME: TurnRunner funnels one turn at a time through the stream client and the chat accumulator.
// ABOUTME: Enforces the single-active-turn precondition and publishes snapshots to the UI.
package backend

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/mshokrnezhad/KPI2KVI/chat"
)

// Update is the presentation-facing snapshot published after every visible
// mutation. It is a copy taken on the turn's sequential path, so consumers
// never touch the live store.
type Update struct {
	Messages []chat.Message
	Typing   bool
}

// TurnRunner owns the conversation store and session for one client and runs
// turns against the backend. All store mutation happens inside Run (or
// RunSimple) on the calling goroutine, preserving the store's single-writer
// discipline.
type TurnRunner struct {
	client   *Client
	store    *chat.Conversation
	session  *chat.Session
	log      *log.Logger
	onUpdate func(Update)
	active   atomic.Bool
}

// NewTurnRunner creates a TurnRunner. onUpdate may be nil; a nil logger
// falls back to the package default.
func NewTurnRunner(client *Client, store *chat.Conversation, session *chat.Session, logger *log.Logger, onUpdate func(Update)) *TurnRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &TurnRunner{
		client:   client,
		store:    store,
		session:  session,
		log:      logger,
		onUpdate: onUpdate,
	}
}

// Active reports whether a turn is currently in progress.
func (r *TurnRunner) Active() bool { return r.active.Load() }

// Run submits the user message and drives the streamed turn to completion.
// Starting a turn while one is active returns chat.ErrTurnActive without
// touching any state. Every exit path leaves the store with exactly zero or
// one new ai message and typing cleared.
func (r *TurnRunner) Run(ctx context.Context, message string) error {
	if !r.active.CompareAndSwap(false, true) {
		return chat.ErrTurnActive
	}
	defer r.active.Store(false)

	r.store.Append(chat.Message{ID: chat.NewMessageID(), Text: message, Sender: chat.SenderUser})

	var turn *chat.Turn
	turn = chat.NewTurn(r.store, r.session,
		chat.WithLogger(r.log),
		chat.WithNotify(func() { r.publish(turn.Typing()) }),
	)
	r.publish(turn.Typing())

	sessionID, _ := r.session.Get()
	body, err := r.client.OpenStream(ctx, message, sessionID)
	if err != nil {
		// Transport failure before any event: one generic error message.
		turn.Abort(chat.GenericErrorText)
		return err
	}
	defer func() { _ = body.Close() }()

	return chat.RunTurn(ctx, body, turn, r.log)
}

// RunSimple submits the user message over the non-streaming endpoint. The
// reply bypasses the accumulator entirely: one direct commit of the whole
// text.
func (r *TurnRunner) RunSimple(ctx context.Context, message string) error {
	if !r.active.CompareAndSwap(false, true) {
		return chat.ErrTurnActive
	}
	defer r.active.Store(false)

	r.store.Append(chat.Message{ID: chat.NewMessageID(), Text: message, Sender: chat.SenderUser})
	r.publish(true)

	sessionID, _ := r.session.Get()
	reply, newSessionID, err := r.client.Send(ctx, message, sessionID)
	if err != nil {
		r.store.Append(chat.Message{ID: chat.NewMessageID(), Text: chat.GenericErrorText, Sender: chat.SenderAI})
		r.publish(false)
		return err
	}

	r.session.BindIfAbsent(newSessionID)
	r.store.Append(chat.Message{ID: chat.NewMessageID(), Text: reply, Sender: chat.SenderAI})
	r.publish(false)
	return nil
}

func (r *TurnRunner) publish(typing bool) {
	if r.onUpdate == nil {
		return
	}
	r.onUpdate(Update{Messages: r.store.Snapshot(), Typing: typing})
}
