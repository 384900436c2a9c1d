// Package chromem is a memory.Index backed by an embedded chromem-go
// collection persisted under a directory.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/aiyo-oss/aiyo/internal/memory"
)

const (
	metaSource    = "source"
	metaCategory  = "category"
	metaCreatedAt = "created_at"

	// listQuery is embedded to enumerate a collection whose vector dimension
	// was never recorded.
	listQuery = "fact"
)

// Config locates the collection on disk. An empty Path keeps it in memory.
type Config struct {
	Path       string
	Collection string
	Compress   bool
}

// Index stores facts as chromem documents: content is the fact text and the
// metadata carries source, category and created_at.
//
// chromem has no scan API, so List queries with a unit vector of the stored
// dimension. The dimension is recorded on the first Add and kept next to the
// collection in <collection>.dim.json.
type Index struct {
	db       *chromem.DB
	col      *chromem.Collection
	embedder memory.Embedder
	dimPath  string // "" for in-memory collections

	mu  sync.Mutex
	dim int
}

type dimFile struct {
	Dimension int `json:"dimension"`
}

// Open loads or creates the collection. The embedder is only a fallback for
// List on collections written before the dimension was recorded; stored
// vectors always come from the caller.
func Open(cfg Config, embedder memory.Embedder) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = "aiyo_knowledge"
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", cfg.Path, err)
		}
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", cfg.Collection, err)
	}

	x := &Index{db: db, col: col, embedder: embedder}
	if cfg.Path != "" {
		x.dimPath = filepath.Join(cfg.Path, cfg.Collection+".dim.json")
		dim, err := readDim(x.dimPath)
		if err != nil {
			return nil, err
		}
		x.dim = dim
	}
	return x, nil
}

func readDim(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var f dimFile
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Dimension, nil
}

// recordDim remembers the vector dimension the first time a vector is stored.
func (x *Index) recordDim(n int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dim == n {
		return nil
	}
	x.dim = n
	if x.dimPath == "" {
		return nil
	}
	data, err := json.Marshal(dimFile{Dimension: n})
	if err != nil {
		return err
	}
	if err := os.WriteFile(x.dimPath, data, 0644); err != nil {
		return fmt.Errorf("record vector dimension: %w", err)
	}
	return nil
}

// scanVector returns a query vector that every stored document can be compared
// with. It only calls the embedder when the dimension is unknown.
func (x *Index) scanVector(ctx context.Context) ([]float32, error) {
	x.mu.Lock()
	dim := x.dim
	x.mu.Unlock()
	if dim > 0 {
		vec := make([]float32, dim)
		vec[0] = 1
		return vec, nil
	}
	vec, err := x.embedder.Embed(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("embed list query: %w", err)
	}
	return vec, nil
}

func embeddingFunc(e memory.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.Embed(ctx, text)
	}
}

func (x *Index) Add(ctx context.Context, fact memory.Fact, vec []float32) error {
	if err := x.recordDim(len(vec)); err != nil {
		return err
	}
	return x.col.AddDocument(ctx, chromem.Document{
		ID:        fact.ID,
		Content:   fact.Text,
		Embedding: vec,
		Metadata: map[string]string{
			metaSource:    string(fact.Source),
			metaCategory:  fact.Category,
			metaCreatedAt: fact.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
}

// Nearest queries at most min(n, Count) documents; chromem rejects larger n.
func (x *Index) Nearest(ctx context.Context, vec []float32, n int) ([]memory.Match, error) {
	if total := x.col.Count(); n > total {
		n = total
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := x.col.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]memory.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, memory.Match{
			Fact:     toFact(r.ID, r.Content, r.Metadata),
			Distance: memory.DistanceFromSimilarity(r.Similarity),
		})
	}
	return matches, nil
}

func (x *Index) Get(ctx context.Context, id string) (memory.Fact, bool, error) {
	doc, err := x.col.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return memory.Fact{}, false, nil
		}
		return memory.Fact{}, false, err
	}
	return toFact(doc.ID, doc.Content, doc.Metadata), true, nil
}

func (x *Index) Delete(ctx context.Context, id string) (bool, error) {
	_, ok, err := x.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if err := x.col.Delete(ctx, nil, nil, id); err != nil {
		return false, fmt.Errorf("chromem delete %s: %w", id, err)
	}
	return true, nil
}

// List returns every document by querying with one vector against the whole
// collection.
func (x *Index) List(ctx context.Context) ([]memory.Fact, error) {
	n := x.col.Count()
	if n == 0 {
		return nil, nil
	}

	vec, err := x.scanVector(ctx)
	if err != nil {
		return nil, err
	}
	results, err := x.col.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	facts := make([]memory.Fact, 0, len(results))
	for _, r := range results {
		facts = append(facts, toFact(r.ID, r.Content, r.Metadata))
	}
	return facts, nil
}

func (x *Index) Count(ctx context.Context) (int, error) {
	return x.col.Count(), nil
}

// Close is a no-op: chromem writes each document to disk as it is added.
func (x *Index) Close() error {
	return nil
}

func toFact(id, content string, meta map[string]string) memory.Fact {
	created, _ := time.Parse(time.RFC3339Nano, meta[metaCreatedAt])
	return memory.Fact{
		ID:        id,
		Text:      content,
		Source:    memory.Source(meta[metaSource]),
		Category:  meta[metaCategory],
		CreatedAt: created,
	}
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "not found")
}
