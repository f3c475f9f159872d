// ABOUTME: HTTP API for the KPI2KVI backend behind a chi router with CORS.
// ABOUTME: Serves the SSE chat stream, the non-streaming chat endpoint, and session/agent lookups.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mshokrnezhad/KPI2KVI/chat"
)

const processingFailedText = "Processing failed. Please try again."

// Server wires the session store and the orchestrator behind the HTTP API.
type Server struct {
	orchestrator *Orchestrator
	sessions     *SessionStore
	router       chi.Router
	log          *log.Logger
}

// ChatRequest is the body of both chat endpoints. A null or empty session_id
// starts a new session.
type ChatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	SessionID string           `json:"session_id"`
	Reply     string           `json:"reply"`
	History   []HistoryMessage `json:"history"`
}

// NewServer creates a Server and builds its routes.
func NewServer(cfg *Config, orchestrator *Orchestrator, sessions *SessionStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		orchestrator: orchestrator,
		sessions:     sessions,
		log:          logger,
	}
	s.router = s.buildRouter(cfg.AllowOrigins)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(allowOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/agents", s.handleAgents)
		r.Get("/session/{sessionID}/agent", s.handleSessionAgent)
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)
	})
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "KPI2KVI backend is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "kpi2kvi-backend",
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	defs := s.orchestrator.registry.List()
	agents := make([]agentInfo, 0, len(defs))
	for _, def := range defs {
		agents = append(agents, agentInfo{Name: def.Name, Description: def.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (s *Server) handleSessionAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	agent, ok := s.sessions.CurrentAgent(sessionID)
	if !ok {
		agent = s.orchestrator.StartingAgent()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"agent":      agent,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	state := s.sessions.GetOrCreate(deref(req.SessionID), s.orchestrator.StartingAgent())
	result, err := s.orchestrator.ProcessMessage(r.Context(), req.Message, state.Messages, state.CurrentAgent)
	if err != nil {
		s.log.Printf("chat failed session=%s err=%v", state.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": processingFailedText})
		return
	}

	s.sessions.Update(state.ID, result.History, result.Agent)
	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: state.ID,
		Reply:     result.Response,
		History:   result.History,
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	state := s.sessions.GetOrCreate(deref(req.SessionID), s.orchestrator.StartingAgent())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	emit := func(evt chat.Event) {
		payload, err := json.Marshal(evt)
		if err != nil {
			s.log.Printf("event marshal failed kind=%s err=%v", evt.Kind, err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if canFlush {
			flusher.Flush()
		}
	}

	emit(chat.Event{Kind: chat.EventConnected, SessionID: state.ID, Agent: state.CurrentAgent})

	result, err := s.orchestrator.ProcessMessageStream(r.Context(), req.Message, state.Messages, state.CurrentAgent, emit)
	if err != nil {
		s.log.Printf("chat stream failed session=%s err=%v", state.ID, err)
		emit(chat.Event{Kind: chat.EventError, Message: processingFailedText})
		emit(chat.Event{Kind: chat.EventDone})
		return
	}

	s.sessions.Update(state.ID, result.History, result.Agent)
	emit(chat.Event{Kind: chat.EventDone})
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return ChatRequest{}, false
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "message is required"})
		return ChatRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode failed err=%v", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
