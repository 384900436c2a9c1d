package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aiyo-oss/aiyo/internal/config"
	"github.com/aiyo-oss/aiyo/internal/provider"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// MockProvider implements provider.Provider for testing.
type MockProvider struct {
	mu        sync.Mutex
	Responses []*provider.Response // queued responses, consumed in order
	Calls     []*provider.CompletionRequest
	// Handler, when set, answers every call instead of the queue.
	Handler    func(req *provider.CompletionRequest) (*provider.Response, error)
	ShouldFail bool
	FailErr    error
	Delay      time.Duration
	idx        int
}

// Reply queues plain-text responses.
func (m *MockProvider) Reply(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.Responses = append(m.Responses, &provider.Response{Content: t, StopReason: "stop"})
	}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.ShouldFail {
		if m.FailErr != nil {
			return nil, m.FailErr
		}
		return nil, fmt.Errorf("mock provider error")
	}
	if m.Handler != nil {
		return m.Handler(req)
	}

	if m.idx >= len(m.Responses) {
		return &provider.Response{
			Content:    "default mock response",
			StopReason: "stop",
		}, nil
	}

	resp := m.Responses[m.idx]
	m.idx++
	return resp, nil
}

// CallCount returns the number of Complete calls made (thread-safe).
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *MockProvider) LastCall() *provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}

// TestLogger returns a debug-level logger that discards its output.
func TestLogger() *telemetry.Logger {
	return telemetry.NewWriterLogger(io.Discard, slog.LevelDebug)
}

// TestConfig returns the default config pointed at a mock provider and an
// in-memory SQLite fact index.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Name = "test-aiyo"
	cfg.Provider.Name = "mock"
	cfg.Provider.Model = "mock-model"
	cfg.Memory.Backend = "sqlite"
	cfg.Memory.Path = ":memory:"
	cfg.Chat.TypingDelay = "0"
	cfg.Logging.Level = "debug"
	return cfg
}
