// ABOUTME: Turn accumulator: the state machine that assembles one coherent ai reply
// ABOUTME: from heterogeneous stream events, committing buffered text atomically per agent.
package chat

import "log"

// GenericErrorText is the user-facing fallback shown when a turn fails
// without a server-supplied message.
const GenericErrorText = "Sorry, something went wrong. Please try again."

// Turn tracks the in-progress reply for one user submission. Content deltas
// are buffered in currentAgentContent and withheld from the store until the
// producing agent's contribution is whole; each commit makes the accumulated
// text visible as exactly one ai message, inserted on first commit and
// updated in place afterwards.
//
// A Turn is terminal once the stream ends, a done event arrives, the turn is
// aborted, or it is cancelled. Events arriving after that are ignored so a
// late chunk cannot resurrect a finished turn.
type Turn struct {
	store   *Conversation
	session *Session
	log     *log.Logger
	notify  func()

	aiMessageID         string
	completeResponse    string
	currentAgentContent string
	aiMessageAdded      bool
	typing              bool
	terminal            bool
}

// TurnOption configures optional Turn behavior.
type TurnOption func(*Turn)

// WithLogger sets the logger used for swallowed anomalies.
func WithLogger(logger *log.Logger) TurnOption {
	return func(t *Turn) {
		if logger != nil {
			t.log = logger
		}
	}
}

// WithNotify registers a function invoked after every state change visible to
// presentation. It runs on the turn's own sequential path; implementations
// typically snapshot the store and hand the copy to the UI.
func WithNotify(fn func()) TurnOption {
	return func(t *Turn) { t.notify = fn }
}

// NewTurn creates a Turn bound to the store and session it mutates. The ai
// message id is fixed at creation and stays stable for the life of the turn.
func NewTurn(store *Conversation, session *Session, opts ...TurnOption) *Turn {
	t := &Turn{
		store:       store,
		session:     session,
		log:         log.Default(),
		aiMessageID: NewMessageID(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Typing reports whether the backend has signalled activity for this turn.
// The send affordance stays disabled while true.
func (t *Turn) Typing() bool { return t.typing }

// Terminal reports whether the turn has finished; terminal turns ignore
// further events.
func (t *Turn) Terminal() bool { return t.terminal }

// AIMessageID returns the id the turn's ai message carries once committed.
func (t *Turn) AIMessageID() string { return t.aiMessageID }

// HandleEvent applies one stream event to the turn. Events of unknown kind
// are discarded without affecting the turn.
func (t *Turn) HandleEvent(ev Event) {
	if t.terminal {
		return
	}

	switch ev.Kind {
	case EventConnected:
		if ev.SessionID != "" {
			t.session.BindIfAbsent(ev.SessionID)
		}

	case EventStatus:
		t.typing = true

	case EventContent:
		t.currentAgentContent += ev.Delta

	case EventAgentComplete:
		t.flush()
		t.commit()

	case EventTransition:
		// Hand-off notes bypass the agent buffer: they belong to no agent's
		// contribution and become visible immediately.
		if ev.Message != "" {
			t.completeResponse += ev.Message
			t.commit()
		}

	case EventComplete:
		// Defensive flush: an agent streamed content but never emitted
		// agent_complete.
		if t.currentAgentContent != "" {
			t.flush()
			t.commit()
		}
		t.typing = false

	case EventDone:
		t.typing = false
		t.terminal = true

	case EventError:
		text := ev.Message
		if text == "" {
			text = GenericErrorText
		}
		// When content was already committed this overwrites it rather than
		// appending an error note.
		t.completeResponse = text
		t.commit()
		t.typing = false

	default:
		t.log.Printf("turn event discarded kind=%s", ev.Kind)
		return
	}

	t.changed()
}

// Abort ends the turn after a transport failure. If nothing was committed
// yet a new ai message carries the error text; otherwise the existing
// message is overwritten wholesale, discarding partial content already
// shown.
func (t *Turn) Abort(message string) {
	if t.terminal {
		return
	}
	if message == "" {
		message = GenericErrorText
	}
	t.completeResponse = message
	t.currentAgentContent = ""
	t.commit()
	t.typing = false
	t.terminal = true
	t.changed()
}

// Cancel ends the turn without committing anything further. Used when the
// caller abandons the stream; buffered content is discarded.
func (t *Turn) Cancel() {
	if t.terminal {
		return
	}
	t.currentAgentContent = ""
	t.typing = false
	t.terminal = true
	t.changed()
}

// Finish ends the turn on normal end-of-stream. Typing is cleared on every
// exit path regardless of whether a done event was seen.
func (t *Turn) Finish() {
	if t.terminal {
		return
	}
	t.typing = false
	t.terminal = true
	t.changed()
}

// flush moves the current agent's buffered content into the committed text.
func (t *Turn) flush() {
	t.completeResponse += t.currentAgentContent
	t.currentAgentContent = ""
}

// commit makes the committed text visible: the first commit inserts the
// turn's ai message, later commits update it in place. This guarantees
// exactly one visible ai message per turn no matter how many agents or
// transitions contributed.
func (t *Turn) commit() {
	if !t.aiMessageAdded {
		t.store.Append(Message{
			ID:     t.aiMessageID,
			Text:   t.completeResponse,
			Sender: SenderAI,
		})
		t.aiMessageAdded = true
		return
	}
	t.store.UpdateText(t.aiMessageID, t.completeResponse)
}

func (t *Turn) changed() {
	if t.notify != nil {
		t.notify()
	}
}
