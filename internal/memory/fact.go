// Package memory stores facts with semantic search and rejects near-duplicates
// at write time.
package memory

import (
	"context"
	"errors"
	"time"
)

// Source records who asserted a fact.
type Source string

const (
	SourceUser Source = "user"
	SourceAuto Source = "auto"
)

// Fact is a stored unit of knowledge. Facts are never edited; a correction is
// a delete followed by an insert.
type Fact struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    Source    `json:"source"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a search hit. Distance is cosine distance in [0, 2]; lower is closer.
type Match struct {
	Fact     Fact    `json:"fact"`
	Distance float32 `json:"distance"`
}

var (
	// ErrDuplicate means a fact closer than the duplicate threshold already exists.
	ErrDuplicate = errors.New("already known")
	// ErrEmptyText means the fact text was blank after trimming.
	ErrEmptyText = errors.New("fact text is empty")
)

// Embedder turns text into a vector. Equal text must produce equal vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the persistence and nearest-neighbour backend behind a Store.
// Implementations report cosine distance and return Nearest results in
// ascending distance order.
type Index interface {
	Add(ctx context.Context, fact Fact, vec []float32) error
	Nearest(ctx context.Context, vec []float32, n int) ([]Match, error)
	Get(ctx context.Context, id string) (Fact, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Fact, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
