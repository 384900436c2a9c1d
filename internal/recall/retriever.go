package recall

import (
	"context"
	"strings"

	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// Searcher is the read side of memory.Store.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []memory.Match
	Get(ctx context.Context, id string) (memory.Fact, bool)
}

// Entry is one recalled fact.
type Entry struct {
	Fact     memory.Fact
	Distance float32
	// LastSaved marks the fact saved on an earlier turn and injected
	// regardless of similarity.
	LastSaved bool
}

// Retriever combines similarity search with the last-saved fact.
type Retriever struct {
	store     Searcher
	limit     int
	threshold float32
	metrics   *telemetry.Metrics
}

// NewRetriever creates a Retriever. A negative threshold disables relevance
// filtering.
func NewRetriever(store Searcher, limit int, threshold float64) *Retriever {
	if limit <= 0 {
		limit = 3
	}
	return &Retriever{store: store, limit: limit, threshold: float32(threshold)}
}

func (r *Retriever) SetMetrics(m *telemetry.Metrics) {
	r.metrics = m
}

// Retrieve returns the facts to inject for query. When lastSavedID is set it
// is looked up first; resolved is false if that id no longer exists, so the
// caller can clear it.
func (r *Retriever) Retrieve(ctx context.Context, query, lastSavedID string) (entries []Entry, resolved bool) {
	seen := make(map[string]bool)

	if lastSavedID != "" {
		if f, ok := r.store.Get(ctx, lastSavedID); ok {
			entries = append(entries, Entry{Fact: f, LastSaved: true})
			seen[f.ID] = true
			resolved = true
		}
	}

	for _, m := range r.store.Search(ctx, query, r.limit) {
		if seen[m.Fact.ID] {
			continue
		}
		if r.threshold >= 0 && m.Distance > r.threshold {
			continue
		}
		seen[m.Fact.ID] = true
		entries = append(entries, Entry{Fact: m.Fact, Distance: m.Distance})
	}

	if r.metrics != nil && len(entries) > 0 {
		r.metrics.IncRecalls()
	}
	return entries, resolved
}

// Format renders entries one per line as "[ID: <id>] <text>".
func Format(entries []Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := "[ID: " + e.Fact.ID + "] " + e.Fact.Text
		if e.LastSaved {
			line += " (last saved)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Augment wraps the user's input with a context block. An empty block leaves
// the input unchanged.
func Augment(block, userInput string) string {
	if block == "" {
		return userInput
	}
	return "CONTEXT (Use these facts if relevant):\n" + block + "\n\nUSER: " + userInput
}
