// ABOUTME: LLM access through an OpenAI-compatible endpoint (OpenRouter) with streaming support.
// ABOUTME: Wraps openai-go with a custom base URL; agents pick their model per request.
package server

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer is the LLM surface the orchestrator depends on. Tests substitute
// a scripted implementation.
type Completer interface {
	// Complete returns the whole response at once.
	Complete(ctx context.Context, model, system, prompt string) (string, error)
	// CompleteStream delivers content deltas through onDelta as they arrive
	// and returns the assembled response.
	CompleteStream(ctx context.Context, model, system, prompt string, onDelta func(string)) (string, error)
}

// OpenRouterClient implements Completer against OpenRouter's Chat
// Completions API (or any OpenAI-compatible provider).
type OpenRouterClient struct {
	client       openai.Client
	defaultModel string
}

// NewOpenRouterClient creates a client with a custom base URL.
func NewOpenRouterClient(apiKey, baseURL, defaultModel string) *OpenRouterClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenRouterClient{
		client:       openai.NewClient(opts...),
		defaultModel: defaultModel,
	}
}

func (c *OpenRouterClient) params(model, system, prompt string) openai.ChatCompletionNewParams {
	if model == "" {
		model = c.defaultModel
	}
	return openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
}

// Complete sends one request and returns the full response text.
func (c *OpenRouterClient) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(model, system, prompt))
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm completion: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream streams the response, invoking onDelta for each content
// fragment, and returns the accumulated text.
func (c *OpenRouterClient) CompleteStream(ctx context.Context, model, system, prompt string, onDelta func(string)) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(model, system, prompt))

	var acc openai.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("llm stream: %w", err)
	}
	if len(acc.Choices) == 0 {
		return "", fmt.Errorf("llm stream: response has no choices")
	}
	return acc.Choices[0].Message.Content, nil
}
