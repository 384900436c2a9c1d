//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aiyo-oss/aiyo/internal/testutil"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// fakeOllama serves /api/chat and /api/embed. Chat replies come from reply;
// continuity checks (num_predict 3) are always answered NO.
type fakeOllama struct {
	*httptest.Server
	mu       sync.Mutex
	embedder *testutil.ConceptEmbedder
	reply    func(last string) string
	prompts  []string
}

func newFakeOllama(t *testing.T) *fakeOllama {
	t.Helper()
	f := &fakeOllama{embedder: &testutil.ConceptEmbedder{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOllama) setReply(fn func(last string) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = fn
}

func (f *fakeOllama) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeOllama) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/":
		w.WriteHeader(http.StatusOK)
	case "/api/embed":
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec, _ := f.embedder.Embed(context.Background(), req.Input)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      req.Model,
			"embeddings": [][]float32{vec},
		})
	case "/api/chat":
		var req struct {
			Model    string                 `json:"model"`
			Messages []chatMessage          `json:"messages"`
			Options  map[string]interface{} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last := ""
		if n := len(req.Messages); n > 0 {
			last = req.Messages[n-1].Content
		}

		var content string
		if np, ok := req.Options["num_predict"].(float64); ok && np == 3 {
			content = "NO"
		} else {
			f.mu.Lock()
			f.prompts = append(f.prompts, last)
			reply := f.reply
			f.mu.Unlock()
			content = "ok"
			if reply != nil {
				content = reply(last)
			}
		}
		body, _ := json.Marshal(map[string]interface{}{
			"model":       req.Model,
			"message":     chatMessage{Role: "assistant", Content: content},
			"done":        true,
			"done_reason": "stop",
		})
		w.Write(append(body, '\n'))
	default:
		http.NotFound(w, r)
	}
}

// writeConfig writes an aiyo.yaml pointing at the fake server.
func writeConfig(t *testing.T, dir, serverURL, backend string) string {
	t.Helper()
	storePath := filepath.Join(dir, "storage", "chroma_db")
	if backend == "sqlite" {
		storePath = filepath.Join(dir, "storage", "facts.db")
	}
	content := fmt.Sprintf(`name: aiyo-it
provider:
  name: ollama
  model: gemma2:9b
  base_url: %s
  max_retries: 0
  timeout: 5s
judge:
  enabled: true
memory:
  backend: %s
  path: %s
  embed_model: all-minilm
  embed_base_url: %s
  cache_size: 64
chat:
  typing_delay: "0"
logging:
  level: error
`, serverURL, backend, storePath, serverURL)

	path := filepath.Join(dir, "aiyo.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
