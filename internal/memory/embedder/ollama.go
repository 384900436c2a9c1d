// Package embedder provides memory.Embedder implementations.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Ollama embeds text with an Ollama embedding model.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an embedder for model served at baseURL.
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Ollama{
		client: api.NewClient(parsed, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// Model returns the embedding model name.
func (o *Ollama) Model() string {
	return o.model
}

func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: text,
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("ollama embed (status %d): %s", statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: no embeddings returned")
	}
	return resp.Embeddings[0], nil
}
