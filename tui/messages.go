// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps a domain event for the tea.Msg interface.
package tui

import (
	"time"

	"github.com/mshokrnezhad/KPI2KVI/chat"
)

// ConversationMsg carries a conversation snapshot published by the turn
// runner into the message loop.
type ConversationMsg struct {
	Messages []chat.Message
	Typing   bool
}

// TurnFinishedMsg signals that a turn has finished, successfully or not.
type TurnFinishedMsg struct {
	Err error
}

// HealthMsg carries the result of a backend health probe.
type HealthMsg struct {
	Err error
}

// HealthTickMsg triggers the next periodic health probe.
type HealthTickMsg struct {
	Time time.Time
}
