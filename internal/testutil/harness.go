package testutil

import (
	"testing"

	"github.com/aiyo-oss/aiyo/internal/config"
	"github.com/aiyo-oss/aiyo/internal/event"
	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/memory/index/sqlite"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// TestHarness bundles an in-memory fact store, an event bus that records
// every event, a mock provider and fresh metrics.
type TestHarness struct {
	T        *testing.T
	Config   *config.Config
	Store    *memory.Store
	Embedder *ConceptEmbedder
	EventBus *event.Bus
	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
	Provider *MockProvider
	Events   []event.Event
}

// NewTestHarness creates a harness; the store is closed when the test ends.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	logger := TestLogger()
	bus := event.NewBus(logger)
	emb := &ConceptEmbedder{}

	h := &TestHarness{
		T:        t,
		Config:   TestConfig(),
		Store:    NewTestStore(t, emb),
		Embedder: emb,
		EventBus: bus,
		Logger:   logger,
		Metrics:  telemetry.NewMetrics(),
		Provider: &MockProvider{},
	}
	bus.Register(&eventCapture{harness: h})
	return h
}

// NewTestStore opens a store over an in-memory SQLite index.
func NewTestStore(t *testing.T, emb memory.Embedder) *memory.Store {
	t.Helper()

	idx, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewStore(idx, emb, memory.DefaultConfig(), memory.WithLogger(TestLogger()))
	t.Cleanup(func() { store.Close() })
	return store
}

// AssertEventEmitted checks that an event with the given type was emitted.
func (h *TestHarness) AssertEventEmitted(eventType event.EventType) {
	h.T.Helper()
	for _, e := range h.Events {
		if e.Type == eventType {
			return
		}
	}
	h.T.Errorf("expected event %q to be emitted", eventType)
}

// AssertNoEvent checks that an event type was NOT emitted.
func (h *TestHarness) AssertNoEvent(eventType event.EventType) {
	h.T.Helper()
	for _, e := range h.Events {
		if e.Type == eventType {
			h.T.Errorf("expected event %q NOT to be emitted, but it was", eventType)
			return
		}
	}
}

// EventCount returns the number of events with the given type.
func (h *TestHarness) EventCount(eventType event.EventType) int {
	count := 0
	for _, e := range h.Events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

type eventCapture struct {
	harness *TestHarness
}

func (c *eventCapture) Name() string                 { return "test-capture" }
func (c *eventCapture) Matches(event.EventType) bool { return true }
func (c *eventCapture) IsBlocking() bool             { return true }

func (c *eventCapture) Handle(ev event.Event) error {
	c.harness.Events = append(c.harness.Events, ev)
	return nil
}
