package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// Config tunes a Store.
type Config struct {
	// DuplicateThreshold rejects an insert whose nearest neighbour is closer than this.
	DuplicateThreshold float32
}

// DefaultConfig returns the thresholds the agent ships with.
func DefaultConfig() Config {
	return Config{DuplicateThreshold: 0.25}
}

// Store is the fact memory. Reads degrade to empty results when the backend
// fails; writes report the failure as an error and leave the store unchanged.
type Store struct {
	mu       sync.RWMutex
	index    Index
	embedder Embedder
	cfg      Config
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded-backend warnings.
func WithLogger(l *telemetry.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records embedding latency into m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wires an index and an embedder into a Store.
func NewStore(index Index, embedder Embedder, cfg Config, opts ...Option) *Store {
	s := &Store{
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the store's thresholds.
func (s *Store) Config() Config {
	return s.cfg
}

// Insert saves text as a new fact and returns its id. It returns ErrDuplicate
// when the nearest existing fact is closer than the duplicate threshold.
func (s *Store) Insert(ctx context.Context, text string, source Source, category string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vec, err := s.embed(ctx, text)
	if err != nil {
		return "", err
	}

	nearest, err := s.index.Nearest(ctx, vec, 1)
	if err != nil {
		return "", aiyoErrors.Wrap(aiyoErrors.CodeStoreUnavailable, "duplicate check failed", err)
	}
	if len(nearest) > 0 && nearest[0].Distance < s.cfg.DuplicateThreshold {
		s.debug("Duplicate rejected", "text", text, "existing", nearest[0].Fact.ID, "distance", nearest[0].Distance)
		return "", ErrDuplicate
	}

	fact := Fact{
		ID:        s.newID(),
		Text:      text,
		Source:    source,
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.index.Add(ctx, fact, vec); err != nil {
		return "", aiyoErrors.Wrap(aiyoErrors.CodeStoreUnavailable, "failed to persist fact", err)
	}
	return fact.ID, nil
}

// Search returns up to limit nearest facts in ascending distance. It applies
// no relevance cut-off and returns nil on an empty store or backend failure.
func (s *Store) Search(ctx context.Context, query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vec, err := s.embed(ctx, query)
	if err != nil {
		s.warn("Search skipped", "error", err)
		return nil
	}
	matches, err := s.index.Nearest(ctx, vec, limit)
	if err != nil {
		s.warn("Search failed", "error", err)
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Delete removes the fact with id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.index.Delete(ctx, id)
	if err != nil {
		s.warn("Delete failed", "id", id, "error", err)
		return false
	}
	return ok
}

// Get looks up a fact by id. A missing fact or a backend failure both report false.
func (s *Store) Get(ctx context.Context, id string) (Fact, bool) {
	if strings.TrimSpace(id) == "" {
		return Fact{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fact, ok, err := s.index.Get(ctx, id)
	if err != nil {
		s.warn("Get failed", "id", id, "error", err)
		return Fact{}, false
	}
	return fact, ok
}

// List returns every fact, oldest first.
func (s *Store) List(ctx context.Context) ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts, err := s.index.List(ctx)
	if err != nil {
		return nil, aiyoErrors.Wrap(aiyoErrors.CodeStoreUnavailable, "failed to list facts", err)
	}
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].CreatedAt.Before(facts[j].CreatedAt)
	})
	return facts, nil
}

// Wipe deletes every fact and returns how many were removed.
func (s *Store) Wipe(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts, err := s.index.List(ctx)
	if err != nil {
		return 0, aiyoErrors.Wrap(aiyoErrors.CodeStoreUnavailable, "failed to list facts", err)
	}

	removed := 0
	for _, f := range facts {
		ok, err := s.index.Delete(ctx, f.ID)
		if err != nil {
			return removed, aiyoErrors.Wrap(aiyoErrors.CodeStoreUnavailable,
				fmt.Sprintf("wipe stopped after %d of %d facts", removed, len(facts)), err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of live facts, or 0 if the backend fails.
func (s *Store) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.index.Count(ctx)
	if err != nil {
		s.warn("Count failed", "error", err)
		return 0
	}
	return n
}

// Close releases the index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := s.embedder.Embed(ctx, text)
	if s.metrics != nil {
		s.metrics.RecordEmbedLatency(time.Since(start))
	}
	if err != nil {
		return nil, aiyoErrors.Wrap(aiyoErrors.CodeEmbedderError, "embedding failed", err)
	}
	if len(vec) == 0 {
		return nil, aiyoErrors.New(aiyoErrors.CodeEmbedderError, "embedder returned an empty vector")
	}
	return vec, nil
}

func (s *Store) warn(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keyvals...)
	}
}

func (s *Store) debug(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keyvals...)
	}
}
