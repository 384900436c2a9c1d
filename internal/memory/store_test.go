package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/memory/index/sqlite"
	"github.com/aiyo-oss/aiyo/internal/testutil"
)

func TestStore_TeaScenario(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t, &testutil.ConceptEmbedder{})

	id, err := store.Insert(ctx, "User likes tea", memory.SourceAuto, "auto")
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected an id")
	}

	if _, err := store.Insert(ctx, "User likes tea", memory.SourceAuto, "auto"); !errors.Is(err, memory.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on second insert, got %v", err)
	}
	if n := store.Count(ctx); n != 1 {
		t.Fatalf("expected 1 fact after duplicate insert, got %d", n)
	}

	matches := store.Search(ctx, "tea preference", 3)
	if len(matches) == 0 {
		t.Fatal("expected a match for 'tea preference'")
	}
	if matches[0].Fact.ID != id {
		t.Errorf("expected %s ranked first, got %s", id, matches[0].Fact.ID)
	}
	if matches[0].Distance >= 0.25 {
		t.Errorf("expected distance < 0.25, got %g", matches[0].Distance)
	}

	if !store.Delete(ctx, id) {
		t.Fatal("expected first delete to succeed")
	}
	if store.Delete(ctx, id) {
		t.Fatal("expected second delete to report a miss")
	}

	for _, m := range store.Search(ctx, "tea preference", 3) {
		if m.Fact.ID == id {
			t.Errorf("deleted fact %s still returned by search", id)
		}
	}
}

func TestStore_InsertEmptyText(t *testing.T) {
	store := testutil.NewTestStore(t, &testutil.ConceptEmbedder{})

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := store.Insert(context.Background(), text, memory.SourceUser, "manual"); !errors.Is(err, memory.ErrEmptyText) {
			t.Errorf("Insert(%q): expected ErrEmptyText, got %v", text, err)
		}
	}
}

func TestStore_InsertTrimsAndKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idx, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewStore(idx, &testutil.ConceptEmbedder{}, memory.DefaultConfig(),
		memory.WithClock(func() time.Time { return fixed }))
	defer store.Close()

	id, err := store.Insert(ctx, "  User's name is Sam  ", memory.SourceUser, "profile")
	if err != nil {
		t.Fatal(err)
	}

	f, ok := store.Get(ctx, id)
	if !ok {
		t.Fatal("expected inserted fact to be visible")
	}
	if f.Text != "User's name is Sam" {
		t.Errorf("expected trimmed text, got %q", f.Text)
	}
	if f.Source != memory.SourceUser || f.Category != "profile" {
		t.Errorf("unexpected metadata %+v", f)
	}
	if !f.CreatedAt.Equal(fixed) {
		t.Errorf("expected created_at %v, got %v", fixed, f.CreatedAt)
	}
}

func TestStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t, &testutil.ConceptEmbedder{})

	for _, text := range []string{
		"User lives in Ankara",
		"User likes tea",
		"User has two cats",
		"User works as a nurse",
		"User likes coffee in the morning",
	} {
		if _, err := store.Insert(ctx, text, memory.SourceAuto, "auto"); err != nil {
			t.Fatalf("insert %q: %v", text, err)
		}
	}

	for _, query := range []string{"tea", "where does the user live", "pets cats", "job"} {
		matches := store.Search(ctx, query, 5)
		if len(matches) == 0 {
			t.Fatalf("query %q: expected matches", query)
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Distance < matches[i-1].Distance {
				t.Errorf("query %q: distances not ascending at %d: %g < %g",
					query, i, matches[i].Distance, matches[i-1].Distance)
			}
		}
	}

	if got := store.Search(ctx, "tea", 2); len(got) != 2 {
		t.Errorf("expected limit of 2 to be honoured, got %d", len(got))
	}
	if got := store.Search(ctx, "tea", 0); got != nil {
		t.Errorf("expected nil for zero limit, got %v", got)
	}
}

func TestStore_SearchEmptyStore(t *testing.T) {
	store := testutil.NewTestStore(t, &testutil.ConceptEmbedder{})
	if got := store.Search(context.Background(), "anything", 3); len(got) != 0 {
		t.Errorf("expected no results on empty store, got %d", len(got))
	}
}

func TestStore_DeleteOnlyTarget(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t, &testutil.ConceptEmbedder{})

	a, _ := store.Insert(ctx, "User likes tea", memory.SourceAuto, "auto")
	b, _ := store.Insert(ctx, "User lives in Ankara", memory.SourceAuto, "auto")

	if !store.Delete(ctx, a) {
		t.Fatal("expected delete to succeed")
	}
	if _, ok := store.Get(ctx, a); ok {
		t.Error("deleted fact still resolvable")
	}
	if _, ok := store.Get(ctx, b); !ok {
		t.Error("unrelated fact was removed")
	}
	if store.Delete(ctx, "no-such-id") {
		t.Error("delete of unknown id should report false")
	}
	if store.Count(ctx) != 1 {
		t.Errorf("expected 1 fact left, got %d", store.Count(ctx))
	}
}

func TestStore_ListAndWipe(t *testing.T) {
	ctx := context.Background()
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	idx, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewStore(idx, &testutil.ConceptEmbedder{}, memory.DefaultConfig(),
		memory.WithClock(func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		}))
	defer store.Close()

	texts := []string{"User likes tea", "User lives in Ankara", "User has a dog"}
	for _, text := range texts {
		if _, err := store.Insert(ctx, text, memory.SourceAuto, "auto"); err != nil {
			t.Fatal(err)
		}
	}

	facts, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 3 {
		t.Fatalf("expected 3 facts, got %d", len(facts))
	}
	for i, f := range facts {
		if f.Text != texts[i] {
			t.Errorf("expected oldest-first order, position %d is %q", i, f.Text)
		}
	}

	n, err := store.Wipe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}
	if store.Count(ctx) != 0 {
		t.Errorf("expected empty store after wipe, got %d", store.Count(ctx))
	}
}

func TestStore_EmbedderFailure(t *testing.T) {
	ctx := context.Background()
	emb := &testutil.ConceptEmbedder{}
	store := testutil.NewTestStore(t, emb)

	id, err := store.Insert(ctx, "User likes tea", memory.SourceAuto, "auto")
	if err != nil {
		t.Fatal(err)
	}

	emb.Fail = true

	_, err = store.Insert(ctx, "User lives in Ankara", memory.SourceAuto, "auto")
	if aiyoErrors.AsCode(err) != aiyoErrors.CodeEmbedderError {
		t.Errorf("expected embedder error code, got %v", err)
	}
	if got := store.Search(ctx, "tea", 3); got != nil {
		t.Errorf("expected nil search on embedder failure, got %v", got)
	}
	if store.Count(ctx) != 1 {
		t.Errorf("failed insert must not mutate the store")
	}
	// Lookups by id do not need the embedder.
	if _, ok := store.Get(ctx, id); !ok {
		t.Error("expected Get to work without the embedder")
	}
}

func TestStore_DuplicateThresholdConfigurable(t *testing.T) {
	ctx := context.Background()
	idx, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// Zero disables dedup: nothing is strictly closer than 0.
	store := memory.NewStore(idx, &testutil.ConceptEmbedder{}, memory.Config{DuplicateThreshold: 0})
	defer store.Close()

	if _, err := store.Insert(ctx, "User likes tea", memory.SourceAuto, "auto"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, "User likes tea", memory.SourceAuto, "auto"); err != nil {
		t.Fatalf("expected second insert to pass with threshold 0, got %v", err)
	}
	if store.Count(ctx) != 2 {
		t.Errorf("expected 2 facts, got %d", store.Count(ctx))
	}
}

func TestCosineDistance(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float32
	}{
		{[]float32{1, 0}, []float32{2, 0}, 0},
		{[]float32{1, 0}, []float32{0, 1}, 1},
		{[]float32{1, 0}, []float32{-1, 0}, 2},
		{[]float32{0, 0}, []float32{1, 0}, 2},
		{[]float32{1}, []float32{1, 0}, 2},
	}
	for _, c := range cases {
		got := memory.CosineDistance(c.a, c.b)
		if diff := got - c.want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("CosineDistance(%v, %v) = %g, want %g", c.a, c.b, got, c.want)
		}
	}
}
