// ABOUTME: Orchestrates the KPI-to-KVI workflow: inspector interview, category extraction, refinement.
// ABOUTME: Streams per-agent events so the client can assemble the reply incrementally.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mshokrnezhad/KPI2KVI/chat"
)

const (
	extractorAgent  = "kvi_cat_extractor"
	evaluatorAgent  = "kvi_cat_evaluator"
	summarizerAgent = "summarizer"

	extractorQuestion = "Please identify the most relevant KVI categories based on this conversation."
	extractorApology  = "\n\nSorry, I was unable to retrieve the KVI categories due to an unexpected response " +
		"from the extractor. Please try again later or contact support."
)

// TurnResult is the outcome of one orchestrated turn.
type TurnResult struct {
	Response string
	History  []HistoryMessage
	Agent    string
}

// Orchestrator runs user messages through the active agent and advances the
// workflow on completion-phrase hand-offs:
//
//	inspector -> kvi_cat_extractor (structured extraction, then the
//	             evaluator takes follow-ups) -> summarizer
type Orchestrator struct {
	registry *Registry
	llm      Completer
	catalog  []KVICategory
	log      *log.Logger
}

// NewOrchestrator creates an Orchestrator with the embedded KVI catalog.
func NewOrchestrator(registry *Registry, llm Completer, logger *log.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = log.Default()
	}
	catalog, err := LoadKVICatalog()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		registry: registry,
		llm:      llm,
		catalog:  catalog,
		log:      logger,
	}, nil
}

// StartingAgent returns the agent that opens the workflow.
func (o *Orchestrator) StartingAgent() string {
	return o.registry.StartingAgent()
}

// ProcessMessage runs one turn without streaming.
func (o *Orchestrator) ProcessMessage(ctx context.Context, message string, history []HistoryMessage, currentAgent string) (TurnResult, error) {
	return o.ProcessMessageStream(ctx, message, history, currentAgent, func(chat.Event) {})
}

// ProcessMessageStream runs one turn, emitting stream events as the reply is
// produced. The emitted sequence per agent is status, content deltas, then
// agent_complete; hand-offs add a transition event whose note becomes part
// of the visible reply.
func (o *Orchestrator) ProcessMessageStream(ctx context.Context, message string, history []HistoryMessage, currentAgent string, emit func(chat.Event)) (TurnResult, error) {
	def, ok := o.registry.Get(currentAgent)
	if !ok {
		return TurnResult{}, fmt.Errorf("unknown agent: %s", currentAgent)
	}

	o.log.Printf("processing message agent=%s chars=%d", currentAgent, len(message))

	emit(chat.Event{Kind: chat.EventStatus, Message: fmt.Sprintf("%s is thinking...", currentAgent)})

	prompt := renderPrompt(history, message)
	response, err := o.llm.CompleteStream(ctx, def.Model, def.SystemPrompt, prompt, func(delta string) {
		emit(chat.Event{Kind: chat.EventContent, Delta: delta})
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("agent %s: %w", currentAgent, err)
	}
	emit(chat.Event{Kind: chat.EventAgentComplete, Agent: currentAgent})

	updated := append(append([]HistoryMessage(nil), history...),
		HistoryMessage{Role: "user", Content: message},
		HistoryMessage{Role: "assistant", Content: response},
	)

	result := TurnResult{Response: response, History: updated, Agent: currentAgent}

	switch {
	case currentAgent == o.registry.StartingAgent() && def.IsComplete(response):
		result = o.extractCategories(ctx, result, emit)
	case currentAgent == evaluatorAgent && def.IsComplete(response):
		result = o.summarize(ctx, result, emit)
	}

	emit(chat.Event{Kind: chat.EventComplete})
	return result, nil
}

// extractCategories asks the extractor agent for a structured category
// selection and appends the formatted result to the reply. Follow-up
// questions go to the evaluator. A malformed extractor response appends an
// apology and keeps the current agent.
func (o *Orchestrator) extractCategories(ctx context.Context, in TurnResult, emit func(chat.Event)) TurnResult {
	extractor, ok := o.registry.Get(extractorAgent)
	if !ok {
		return in
	}

	o.log.Printf("inspector complete, invoking agent=%s", extractorAgent)
	emit(chat.Event{
		Kind:      chat.EventTransition,
		FromAgent: in.Agent,
		ToAgent:   extractorAgent,
		Message:   "\n\n_Mapping your service to KVI categories..._\n",
	})
	in.Response += "\n\n_Mapping your service to KVI categories..._\n"

	emit(chat.Event{Kind: chat.EventStatus, Message: fmt.Sprintf("%s is thinking...", extractorAgent)})

	raw, err := o.llm.Complete(ctx, extractor.Model, extractor.SystemPrompt, renderPrompt(in.History, extractorQuestion))
	var selections []KVISelection
	if err == nil {
		selections, err = parseKVIExtraction(raw)
	}
	if err != nil {
		o.log.Printf("extractor failed err=%v", err)
		emit(chat.Event{Kind: chat.EventContent, Delta: extractorApology})
		emit(chat.Event{Kind: chat.EventAgentComplete, Agent: extractorAgent})
		in.Response += extractorApology
		in.History = append(in.History,
			HistoryMessage{Role: "user", Content: extractorQuestion},
			HistoryMessage{Role: "assistant", Content: strings.TrimSpace(extractorApology)},
		)
		return in
	}

	formatted := formatKVICategories(o.catalog, selections)
	o.log.Printf("extractor returned categories=%d", len(selections))

	emit(chat.Event{Kind: chat.EventContent, Delta: formatted})
	emit(chat.Event{Kind: chat.EventAgentComplete, Agent: extractorAgent})

	in.Response += formatted
	in.History = append(in.History,
		HistoryMessage{Role: "user", Content: extractorQuestion},
		HistoryMessage{Role: "assistant", Content: strings.TrimSpace(formatted)},
	)
	// The evaluator handles refinement follow-ups; the extractor only ever
	// answers in JSON.
	if _, ok := o.registry.Get(evaluatorAgent); ok {
		in.Agent = evaluatorAgent
	}
	return in
}

// summarize streams a closing summary once the evaluator finishes.
func (o *Orchestrator) summarize(ctx context.Context, in TurnResult, emit func(chat.Event)) TurnResult {
	summarizer, ok := o.registry.Get(summarizerAgent)
	if !ok {
		return in
	}

	emit(chat.Event{
		Kind:      chat.EventTransition,
		FromAgent: in.Agent,
		ToAgent:   summarizerAgent,
		Message:   "\n\n---\n\n",
	})
	in.Response += "\n\n---\n\n"

	emit(chat.Event{Kind: chat.EventStatus, Message: "summarizer is thinking..."})

	summary, err := o.llm.CompleteStream(ctx, summarizer.Model, summarizer.SystemPrompt,
		renderPrompt(in.History, "Summarize the finalized KVI mapping for the user."),
		func(delta string) {
			emit(chat.Event{Kind: chat.EventContent, Delta: delta})
		})
	if err != nil {
		// The turn already carries the evaluator's reply; drop the summary.
		o.log.Printf("summarizer failed err=%v", err)
		return in
	}
	emit(chat.Event{Kind: chat.EventAgentComplete, Agent: summarizerAgent})

	in.Response += summary
	in.History = append(in.History, HistoryMessage{Role: "assistant", Content: summary})
	in.Agent = summarizerAgent
	return in
}

// renderPrompt flattens the conversation history and the latest user message
// into a single prompt.
func renderPrompt(history []HistoryMessage, latest string) string {
	if len(history) == 0 {
		return latest
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&b, "user: %s", latest)
	return b.String()
}
