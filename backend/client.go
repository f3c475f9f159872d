// ABOUTME: HTTP client for the KPI2KVI backend: streaming chat, simple chat, and the health probe.
// ABOUTME: Non-success responses and unreachable endpoints surface as TransportError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TransportError reports a turn-level transport failure: the request could
// not be sent, the response status was non-success, or the stream body was
// missing. Unrecoverable for the turn.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// chatRequest is the turn submission body. SessionID is null until the
// backend assigns one.
type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// chatResponse is the non-streaming reply shape.
type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Client talks to one KPI2KVI backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, custom timeouts).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client for the given base URL. The default HTTP client
// carries no overall timeout: streamed turns are open-ended and are bounded
// by the caller's context instead.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenStream submits a turn and returns the streamed response body. The
// caller owns the body and must close it; cancelling ctx aborts the stream.
func (c *Client) OpenStream(ctx context.Context, message, sessionID string) (io.ReadCloser, error) {
	body, err := encodeChatRequest(message, sessionID)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", body)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &TransportError{Op: "stream", Status: resp.StatusCode}
	}
	if resp.Body == nil {
		return nil, &TransportError{Op: "stream", Err: fmt.Errorf("response has no body")}
	}
	return resp.Body, nil
}

// Send submits a turn over the non-streaming endpoint and returns the whole
// reply at once, along with the session id the backend used.
func (c *Client) Send(ctx context.Context, message, sessionID string) (reply, newSessionID string, err error) {
	body, err := encodeChatRequest(message, sessionID)
	if err != nil {
		return "", "", &TransportError{Op: "chat", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", body)
	if err != nil {
		return "", "", &TransportError{Op: "chat", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", &TransportError{Op: "chat", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", &TransportError{Op: "chat", Status: resp.StatusCode}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", "", &TransportError{Op: "chat", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return cr.Reply, cr.SessionID, nil
}

// Health probes the backend once. A nil return means the backend reported
// status ok; the result only gates the send affordance.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "health", Status: resp.StatusCode}
	}

	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return &TransportError{Op: "health", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if hr.Status != "ok" {
		return &TransportError{Op: "health", Err: fmt.Errorf("backend reported status %q", hr.Status)}
	}
	return nil
}

func encodeChatRequest(message, sessionID string) (io.Reader, error) {
	cr := chatRequest{Message: message}
	if sessionID != "" {
		cr.SessionID = &sessionID
	}
	data, err := json.Marshal(cr)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return bytes.NewReader(data), nil
}
