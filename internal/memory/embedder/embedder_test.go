package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllama_Embed(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"all-minilm","embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	e, err := NewOllama("all-minilm", server.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	vec, err := e.Embed(context.Background(), "User likes tea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[2] != float32(0.3) {
		t.Errorf("unexpected vector %v", vec)
	}
	if got["model"] != "all-minilm" || got["input"] != "User likes tea" {
		t.Errorf("unexpected request %v", got)
	}
}

func TestOllama_Embed_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	e, err := NewOllama("missing", server.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Embed(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestCached_Memoizes(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	first, err := c.Embed(context.Background(), "tea")
	if err != nil {
		t.Fatal(err)
	}
	c.Wait()

	second, err := c.Embed(context.Background(), "tea")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if first[0] != second[0] {
		t.Errorf("cached vector differs: %v vs %v", first, second)
	}

	if _, err := c.Embed(context.Background(), "coffee"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected a miss for new text, got %d calls", inner.calls)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c, err := NewCached(inner, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Embed(context.Background(), "tea"); err == nil {
		t.Fatal("expected error")
	}
	c.Wait()
	if _, err := c.Embed(context.Background(), "tea"); err == nil {
		t.Fatal("expected error again")
	}
	if inner.calls != 2 {
		t.Errorf("failures should not be cached, got %d calls", inner.calls)
	}
}
