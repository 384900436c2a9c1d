package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// testProvider is a minimal mock for retry tests.
type testProvider struct {
	responses []*Response
	errors    []error
	calls     int
}

func (p *testProvider) Name() string { return "test" }

func (p *testProvider) Complete(ctx context.Context, req *CompletionRequest) (*Response, error) {
	idx := p.calls
	p.calls++
	if idx < len(p.errors) && p.errors[idx] != nil {
		return nil, p.errors[idx]
	}
	if idx < len(p.responses) {
		return p.responses[idx], nil
	}
	return &Response{Content: "default", StopReason: "stop"}, nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestRetryProvider_SuccessFirstTry(t *testing.T) {
	inner := &testProvider{
		responses: []*Response{{Content: "ok", StopReason: "stop"}},
	}
	rp := NewRetryProvider(inner, fastRetryConfig())

	resp, err := rp.Complete(context.Background(), &CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("expected 'ok', got %q", resp.Content)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
	if rp.Name() != "test" {
		t.Errorf("expected inner name, got %q", rp.Name())
	}
}

func TestRetryProvider_RetryOnTransientStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			inner := &testProvider{
				errors: []error{
					&StatusError{Status: code, Message: "busy"},
					nil,
				},
				responses: []*Response{nil, {Content: "recovered"}},
			}
			rp := NewRetryProvider(inner, fastRetryConfig())

			resp, err := rp.Complete(context.Background(), &CompletionRequest{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Content != "recovered" {
				t.Errorf("expected 'recovered', got %q", resp.Content)
			}
			if inner.calls != 2 {
				t.Errorf("expected 2 calls, got %d", inner.calls)
			}
		})
	}
}

func TestRetryProvider_NoRetryOnClientError(t *testing.T) {
	for _, code := range []int{400, 401, 404} {
		inner := &testProvider{
			errors: []error{&StatusError{Status: code, Message: "model not found"}},
		}
		rp := NewRetryProvider(inner, fastRetryConfig())

		if _, err := rp.Complete(context.Background(), &CompletionRequest{}); err == nil {
			t.Fatalf("status %d: expected error", code)
		}
		if inner.calls != 1 {
			t.Errorf("status %d: expected 1 call, got %d", code, inner.calls)
		}
	}
}

func TestRetryProvider_MaxRetriesExhausted(t *testing.T) {
	inner := &testProvider{
		errors: []error{
			Unreachable(errors.New("connection refused")),
			Unreachable(errors.New("connection refused")),
			Unreachable(errors.New("connection refused")),
			Unreachable(errors.New("connection refused")),
		},
	}
	rp := NewRetryProvider(inner, fastRetryConfig())

	_, err := rp.Complete(context.Background(), &CompletionRequest{})
	if err == nil {
		t.Fatal("expected error after max retries")
	}
	if !strings.Contains(err.Error(), "max retries (3) exceeded") {
		t.Errorf("unexpected error message: %v", err)
	}
	if inner.calls != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", inner.calls)
	}
}

func TestRetryProvider_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &testProvider{
		errors: []error{
			&StatusError{Status: 503, Message: "unavailable"},
			&StatusError{Status: 503, Message: "unavailable"},
		},
	}
	cfg := fastRetryConfig()
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second
	rp := NewRetryProvider(inner, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rp.Complete(ctx, &CompletionRequest{})
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", inner.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{fmt.Errorf("ollama: %w", Unreachable(errors.New("dial tcp: refused"))), true},
		{&StatusError{Status: 429, Message: "slow down"}, true},
		{&StatusError{Status: 529, Message: "overloaded"}, true},
		{&StatusError{Status: 400, Message: "bad request"}, false},
		{fmt.Errorf("API error (status 503): looks transient but is untyped"), false},
		{errors.New("something else"), false},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRetryProvider_Backoff(t *testing.T) {
	rp := NewRetryProvider(&testProvider{}, RetryConfig{
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     25 * time.Millisecond,
	})
	if d := rp.backoff(0); d != 10*time.Millisecond {
		t.Errorf("attempt 0: expected 10ms, got %v", d)
	}
	if d := rp.backoff(1); d != 20*time.Millisecond {
		t.Errorf("attempt 1: expected 20ms, got %v", d)
	}
	if d := rp.backoff(5); d != 25*time.Millisecond {
		t.Errorf("attempt 5: expected cap 25ms, got %v", d)
	}
}

func TestStatusOf(t *testing.T) {
	err := fmt.Errorf("generate: %w", &StatusError{Status: 404, Message: "model not found"})
	if got := StatusOf(err); got != 404 {
		t.Errorf("expected 404, got %d", got)
	}
	if got := StatusOf(errors.New("plain")); got != 0 {
		t.Errorf("expected 0 for untyped error, got %d", got)
	}
	if !strings.Contains(err.Error(), "API error (status 404)") {
		t.Errorf("unexpected message: %v", err)
	}
}
