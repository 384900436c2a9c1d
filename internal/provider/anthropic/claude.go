package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
	"github.com/aiyo-oss/aiyo/internal/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	defaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"
)

// Client talks to the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Anthropic client. An empty apiKey falls back to
// ANTHROPIC_API_KEY; an empty baseURL uses the public endpoint.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	return "anthropic"
}

// Complete sends one Messages API call and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if c.apiKey == "" {
		return nil, aiyoErrors.New(aiyoErrors.CodeAPIKeyMissing, "ANTHROPIC_API_KEY not set").
			WithSuggestion("Set ANTHROPIC_API_KEY or add api_key to the provider section of aiyo.yaml")
	}

	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, provider.Unreachable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Unreachable(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &provider.StatusError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return parseResponse(body)
}

type messagesRequest struct {
	Model         string       `json:"model"`
	MaxTokens     int          `json:"max_tokens"`
	Temperature   float64      `json:"temperature"`
	System        string       `json:"system,omitempty"`
	Messages      []apiMessage `json:"messages"`
	StopSequences []string     `json:"stop_sequences,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildRequest maps a CompletionRequest onto the Messages API. System-role
// messages are dropped; the prompt travels in the system field.
func (c *Client) buildRequest(req *provider.CompletionRequest) messagesRequest {
	out := messagesRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Temperature:   min(req.Temperature, 1.0), // API range is 0..1
		System:        req.System,
		Messages:      make([]apiMessage, 0, len(req.Messages)),
		StopSequences: req.StopSeqs,
	}
	if out.Model == "" {
		out.Model = c.model
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = 1024
	}
	for _, m := range req.Messages {
		if m.Role != provider.RoleSystem {
			out.Messages = append(out.Messages, apiMessage{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

func parseResponse(body []byte) (*provider.Response, error) {
	var r messagesResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var text []string
	for _, block := range r.Content {
		if block.Type == "text" {
			text = append(text, block.Text)
		}
	}
	return &provider.Response{
		Content:    strings.Join(text, "\n"),
		StopReason: r.StopReason,
		Usage:      provider.Usage{InputTokens: r.Usage.InputTokens, OutputTokens: r.Usage.OutputTokens},
	}, nil
}

// errorMessage pulls error.message out of an API error body, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Type + ": " + e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
