// ABOUTME: Bridge connecting the turn runner to the Bubble Tea message loop.
// ABOUTME: Provides update injection and tea.Cmd factories for turns, health probes, and ticks.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mshokrnezhad/KPI2KVI/backend"
)

// Bridge wraps a tea.Program's Send method so the turn runner's update
// callback can inject conversation snapshots into the message loop.
// Typically constructed with program.Send as the argument.
type Bridge struct {
	send func(msg tea.Msg)
}

// NewBridge creates a Bridge that sends messages via the given function.
func NewBridge(send func(msg tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

// PublishUpdate implements the backend.TurnRunner onUpdate signature.
func (b *Bridge) PublishUpdate(u backend.Update) {
	b.send(ConversationMsg{Messages: u.Messages, Typing: u.Typing})
}

// RunTurnCmd returns a tea.Cmd that drives one full turn on the runner.
// Conversation updates arrive separately through the Bridge; the command's
// message only reports completion.
func RunTurnCmd(ctx context.Context, runner *backend.TurnRunner, message string, simple bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if simple {
			err = runner.RunSimple(ctx, message)
		} else {
			err = runner.Run(ctx, message)
		}
		return TurnFinishedMsg{Err: err}
	}
}

// HealthCmd returns a tea.Cmd that probes the backend health endpoint.
func HealthCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		return HealthMsg{Err: client.Health(context.Background())}
	}
}

// HealthTickCmd returns a tea.Cmd that schedules the next health probe.
func HealthTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return HealthTickMsg{Time: t}
	})
}
