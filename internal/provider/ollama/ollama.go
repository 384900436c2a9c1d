package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/aiyo-oss/aiyo/internal/provider"
)

// DefaultBaseURL is where a local Ollama server listens.
const DefaultBaseURL = "http://localhost:11434"

// Client generates chat replies through an Ollama server.
type Client struct {
	api    *api.Client
	model  string
	numCtx int
}

// NewClient creates a client for model at baseURL.
func NewClient(model, baseURL string, numCtx int, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		api:    api.NewClient(parsed, &http.Client{Timeout: timeout}),
		model:  model,
		numCtx: numCtx,
	}, nil
}

func (c *Client) Name() string {
	return "ollama"
}

// Complete runs a non-streaming /api/chat call.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: provider.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  c.options(req),
	}

	var final api.ChatResponse
	var content string
	err := c.api.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}

	return &provider.Response{
		Content:    content,
		StopReason: final.DoneReason,
		Usage: provider.Usage{
			InputTokens:  final.PromptEvalCount,
			OutputTokens: final.EvalCount,
		},
	}, nil
}

func (c *Client) options(req *provider.CompletionRequest) map[string]any {
	opts := map[string]any{
		"temperature": req.Temperature,
	}
	numCtx := req.NumCtx
	if numCtx == 0 {
		numCtx = c.numCtx
	}
	if numCtx > 0 {
		opts["num_ctx"] = numCtx
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(req.StopSeqs) > 0 {
		opts["stop"] = req.StopSeqs
	}
	return opts
}

// mapError converts ollama client errors into provider error types.
func mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return &provider.StatusError{Status: statusErr.StatusCode, Message: msg}
	}
	return provider.Unreachable(err)
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return mapError(ctx, err)
	}
	return nil
}

// HasModel reports whether the configured model has been pulled.
func (c *Client) HasModel(ctx context.Context) (bool, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return false, mapError(ctx, err)
	}
	for _, m := range resp.Models {
		if m.Name == c.model || m.Model == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return true, nil
		}
	}
	return false, nil
}
