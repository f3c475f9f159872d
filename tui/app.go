// ABOUTME: Top-level Bubble Tea model for the chat client: viewport transcript,
// ABOUTME: text input, health gating, and an idle agent-graph view before the first turn.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/mshokrnezhad/KPI2KVI/backend"
	"github.com/mshokrnezhad/KPI2KVI/chat"
	"github.com/mshokrnezhad/KPI2KVI/graph"
)

const defaultHealthInterval = 5 * time.Second

// Config holds the dependencies and knobs for the chat model.
type Config struct {
	Runner *backend.TurnRunner
	Client *backend.Client
	Simple bool
	// AgentCount sets the ring size of the idle agent-graph view.
	AgentCount int
	// HealthInterval is the period between backend health probes.
	HealthInterval time.Duration
}

// Model is the top-level Bubble Tea model for the chat client.
type Model struct {
	runner      *backend.TurnRunner
	client      *backend.Client
	simple      bool
	agents      int
	healthEvery time.Duration

	input    textinput.Model
	vp       viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	messages []chat.Message
	typing   bool
	inflight bool
	// cancelTurn aborts the in-flight turn; nil when idle.
	cancelTurn context.CancelFunc

	healthy       bool
	healthChecked bool
	lastErr       error
	width         int
	height        int
	ready         bool
}

// NewModel creates a chat Model from the given configuration.
func NewModel(cfg Config) Model {
	if cfg.AgentCount <= 0 {
		cfg.AgentCount = 4
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}

	ti := textinput.New()
	ti.Placeholder = "Contacting backend..."
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = StatusStyle

	return Model{
		runner:      cfg.Runner,
		client:      cfg.Client,
		simple:      cfg.Simple,
		agents:      cfg.AgentCount,
		healthEvery: cfg.HealthInterval,
		input:       ti,
		spin:        sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		HealthCmd(m.client),
		HealthTickCmd(m.healthEvery),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case ConversationMsg:
		m.messages = msg.Messages
		m.typing = msg.Typing
		m.refreshViewport()
		return m, nil

	case TurnFinishedMsg:
		m.inflight = false
		m.cancelTurn = nil
		m.typing = false
		switch {
		case msg.Err == nil:
		case errors.Is(msg.Err, context.Canceled):
		case errors.Is(msg.Err, chat.ErrTurnActive):
		default:
			m.lastErr = msg.Err
		}
		return m, nil

	case HealthMsg:
		m.healthChecked = true
		m.healthy = msg.Err == nil
		if m.healthy {
			m.input.Placeholder = "Describe your service..."
		} else {
			m.input.Placeholder = "Backend unavailable"
		}
		return m, nil

	case HealthTickMsg:
		return m, tea.Batch(HealthCmd(m.client), HealthTickCmd(m.healthEvery))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var inputCmd, vpCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.vp, vpCmd = m.vp.Update(msg)
	return m, tea.Batch(inputCmd, vpCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.cancelTurn != nil {
			m.cancelTurn()
		}
		return m, tea.Quit

	case "esc":
		if m.cancelTurn != nil {
			// Cancel the in-flight turn; the runner unwinds without committing.
			m.cancelTurn()
			return m, nil
		}
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || !m.healthy || m.inflight || m.typing {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel
	m.inflight = true
	m.lastErr = nil
	m.input.Reset()
	return m, RunTurnCmd(ctx, m.runner, text, m.simple)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	chromeHeight := 4 // title, status line, input, spacing
	vpHeight := m.height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.vp = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.vp.Width = m.width
		m.vp.Height = vpHeight
	}
	m.input.Width = m.width - 4

	wrap := m.width - 2
	if wrap > 100 {
		wrap = 100
	}
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	); err == nil {
		m.renderer = r
	}
	m.refreshViewport()
	return m
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(m.renderTranscript())
	if atBottom {
		m.vp.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Sender {
		case chat.SenderUser:
			b.WriteString(UserLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Text)
			b.WriteString("\n")
		case chat.SenderAI:
			b.WriteString(AILabelStyle.Render("KPI2KVI"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Text))
		}
	}
	return b.String()
}

func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.width < 30 || m.height < 8 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 30x8.", m.width, m.height)
	}

	title := TitleStyle.Render("KPI2KVI") + StatusStyle.Render("  map your KPIs to key value indicators")

	var body string
	if len(m.messages) == 0 {
		body = m.idleView()
	} else {
		body = m.vp.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		body,
		m.statusLine(),
		m.input.View(),
	)
}

// idleView draws the orchestrator-and-agents graph before the first turn.
func (m Model) idleView() string {
	gh := m.vp.Height - 2
	if gh < 5 {
		return m.vp.View()
	}
	art := graph.Render(graph.Compute(m.agents), m.width, gh)
	hint := StatusStyle.Render("Type a message to start the interview. Esc cancels a turn, Ctrl+C quits.")
	return lipgloss.JoinVertical(lipgloss.Left, GraphStyle.Render(art), "", hint)
}

func (m Model) statusLine() string {
	switch {
	case !m.healthChecked:
		return StatusStyle.Render(m.spin.View() + " contacting backend...")
	case !m.healthy:
		return ErrorStyle.Render("backend unreachable, retrying...")
	case m.lastErr != nil:
		return ErrorStyle.Render("turn failed: " + m.lastErr.Error())
	case m.typing:
		return StatusStyle.Render(m.spin.View() + " assistant is typing...")
	case m.inflight:
		return StatusStyle.Render(m.spin.View() + " waiting for the backend...")
	}
	return StatusBarStyle.Render(fmt.Sprintf("%d messages", len(m.messages)))
}
