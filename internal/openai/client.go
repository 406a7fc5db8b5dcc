// Package openai is a thin HTTP client for an OpenAI-compatible
// chat-completions endpoint. Services depend on the Completer interface so
// tests can substitute a fake without any network access.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for completion API failures.
var (
	ErrUnreachable = errors.New("completion api unreachable")
	ErrTimeout     = errors.New("completion api timeout")
	ErrAPIStatus   = errors.New("completion api error")
	ErrEmptyChoice = errors.New("completion api returned no choices")
)

// Message roles understood by the chat-completions endpoint.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the completions endpoint.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	User        string    `json:"user,omitempty"`
}

// Usage is the token accounting reported by the API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the subset of the completion payload the service consumes:
// the first choice's message content and the optional usage block.
type ChatResponse struct {
	Text  string
	Usage *Usage
}

// Completer produces a chat completion for a request. Implementations must be
// safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// HTTPClient implements Completer against the REST chat-completions API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a completion client. baseURL carries no trailing
// slash (e.g. "https://api.openai.com").
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	u := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Include the API's error message when it sends one; it is what ends
		// up stored on the ERROR record.
		msg := readAPIError(resp.Body)
		if msg != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrAPIStatus, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: status %d", ErrAPIStatus, resp.StatusCode)
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decoding completion response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, ErrEmptyChoice
	}

	return &ChatResponse{
		Text:  cr.Choices[0].Message.Content,
		Usage: cr.Usage,
	}, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// readAPIError extracts the message from an API error payload, tolerating
// non-JSON bodies.
func readAPIError(r io.Reader) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&e); err != nil {
		return ""
	}
	return e.Error.Message
}

// --- completion response types ---

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Compile-time check that HTTPClient implements Completer.
var _ Completer = (*HTTPClient)(nil)
