// ABOUTME: Message model and the ordered conversation store consumed by presentation.
// ABOUTME: Provides append/update-by-id/snapshot with ULID message identifiers.
package chat

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one entry in the conversation. ID is stable for the life of the
// turn that created it; Text is mutable until that turn ends.
type Message struct {
	ID     string
	Text   string
	Sender Sender
}

// NewMessageID generates a turn-scoped message identifier.
func NewMessageID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Conversation is the ordered message list. It has a single logical writer:
// all mutation funnels through the turn that is currently running, so the
// store itself carries no lock. Readers on other goroutines must consume
// snapshots handed off from the writer path, never the store directly.
type Conversation struct {
	messages []Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// UpdateText replaces the text of the message with the given id in place.
// Updating an absent id is a no-op; ordering is never disturbed.
func (c *Conversation) UpdateText(id, text string) {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Text = text
			return
		}
	}
}

// Snapshot returns a copy of the conversation in append order.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
