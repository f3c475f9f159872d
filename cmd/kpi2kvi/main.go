// ABOUTME: Terminal chat client for the KPI2KVI backend.
// ABOUTME: Wires the HTTP client, conversation store, turn runner, and Bubble Tea UI together.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mshokrnezhad/KPI2KVI/backend"
	"github.com/mshokrnezhad/KPI2KVI/chat"
	"github.com/mshokrnezhad/KPI2KVI/tui"
)

const version = "0.2.0"

func main() {
	loadDotEnv(".env")

	fs := flag.NewFlagSet("kpi2kvi", flag.ContinueOnError)
	backendURL := fs.String("backend", envOrDefault("KPI2KVI_BACKEND", "http://127.0.0.1:8000"), "backend base URL")
	simple := fs.Bool("simple", false, "use the non-streaming chat endpoint")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if *showVersion {
		fmt.Printf("kpi2kvi %s\n", version)
		return
	}

	// Logs go to a file when requested; stderr would fight the TUI for the
	// terminal.
	logger := log.New(io.Discard, "", log.LstdFlags)
	if path := os.Getenv("KPI2KVI_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			logger = log.New(f, "", log.LstdFlags)
		}
	}

	client := backend.NewClient(*backendURL)
	store := chat.NewConversation()
	session := chat.NewSession(logger)

	var program *tea.Program
	bridge := tui.NewBridge(func(msg tea.Msg) { program.Send(msg) })
	runner := backend.NewTurnRunner(client, store, session, logger, bridge.PublishUpdate)

	model := tui.NewModel(tui.Config{
		Runner: runner,
		Client: client,
		Simple: *simple,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "kpi2kvi: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
