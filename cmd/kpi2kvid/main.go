// ABOUTME: KPI2KVI backend daemon: loads configuration, wires the orchestrator
// ABOUTME: behind the HTTP API, and handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mshokrnezhad/KPI2KVI/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kpi2kvid: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := server.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := server.ConfigFromEnv()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	registry, err := server.NewRegistry(logger)
	if err != nil {
		return fmt.Errorf("loading agents: %w", err)
	}
	llm := server.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.DefaultModel)
	orchestrator, err := server.NewOrchestrator(registry, llm, logger)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}
	sessions := server.NewSessionStore(cfg.SessionTTL, logger)
	srv := server.NewServer(cfg, orchestrator, sessions, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Printf("backend listening addr=%s", cfg.Bind)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Printf("shutting down signal=%s", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	}
}
