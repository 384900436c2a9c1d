package provider

import (
	"context"
)

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is a completed model reply.
type Response struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider generates replies from a chat model.
type Provider interface {
	Name() string

	// Complete sends the messages and blocks until the full reply is available.
	Complete(ctx context.Context, req *CompletionRequest) (*Response, error)
}

// CompletionRequest is a single generation call. Messages must not contain the
// system prompt; it travels in System.
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	NumCtx      int       `json:"num_ctx,omitempty"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}
