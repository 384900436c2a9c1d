package chromem

import (
	"context"
	"testing"
	"time"

	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/testutil"
)

func TestIndex_RoundTrip(t *testing.T) {
	ctx := context.Background()
	emb := &testutil.ConceptEmbedder{}
	idx, err := Open(Config{Path: t.TempDir(), Collection: "test"}, emb)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	created := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	vec, _ := emb.Embed(ctx, "User likes tea")
	f := memory.Fact{ID: "f1", Text: "User likes tea", Source: memory.SourceAuto, Category: "auto", CreatedAt: created}
	if err := idx.Add(ctx, f, vec); err != nil {
		t.Fatal(err)
	}

	got, ok, err := idx.Get(ctx, "f1")
	if err != nil || !ok {
		t.Fatalf("expected fact, ok=%v err=%v", ok, err)
	}
	if got.Text != f.Text || got.Category != "auto" || !got.CreatedAt.Equal(created) {
		t.Errorf("unexpected fact %+v", got)
	}

	if _, ok, err := idx.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("expected clean miss, ok=%v err=%v", ok, err)
	}
}

func TestIndex_NearestClampsToCount(t *testing.T) {
	ctx := context.Background()
	emb := &testutil.ConceptEmbedder{}
	idx, err := Open(Config{}, emb)
	if err != nil {
		t.Fatal(err)
	}

	q, _ := emb.Embed(ctx, "tea preference")
	matches, err := idx.Nearest(ctx, q, 3)
	if err != nil {
		t.Fatalf("empty collection should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}

	for i, text := range []string{"User likes tea", "User lives in Ankara"} {
		vec, _ := emb.Embed(ctx, text)
		idx.Add(ctx, memory.Fact{ID: string(rune('a' + i)), Text: text, CreatedAt: time.Now()}, vec)
	}

	matches, err = idx.Nearest(ctx, q, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Fact.Text != "User likes tea" {
		t.Errorf("expected tea fact first, got %q", matches[0].Fact.Text)
	}
	if matches[0].Distance > 0.01 {
		t.Errorf("expected near-zero distance, got %g", matches[0].Distance)
	}
	if matches[1].Distance < matches[0].Distance {
		t.Error("matches not in ascending distance")
	}
}

func TestIndex_DeleteListCount(t *testing.T) {
	ctx := context.Background()
	emb := &testutil.ConceptEmbedder{}
	idx, err := Open(Config{Path: t.TempDir()}, emb)
	if err != nil {
		t.Fatal(err)
	}

	for i, text := range []string{"User likes tea", "User has a dog", "User works nights"} {
		vec, _ := emb.Embed(ctx, text)
		idx.Add(ctx, memory.Fact{ID: string(rune('a' + i)), Text: text, CreatedAt: time.Now()}, vec)
	}

	facts, err := idx.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 3 {
		t.Fatalf("expected 3 facts, got %d", len(facts))
	}

	ok, err := idx.Delete(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("expected delete to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = idx.Delete(ctx, "b")
	if err != nil || ok {
		t.Fatalf("expected second delete to miss, ok=%v err=%v", ok, err)
	}
	if n, _ := idx.Count(ctx); n != 2 {
		t.Errorf("expected 2 facts, got %d", n)
	}
}

func TestIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	emb := &testutil.ConceptEmbedder{}
	dir := t.TempDir()

	idx, err := Open(Config{Path: dir, Collection: "facts"}, emb)
	if err != nil {
		t.Fatal(err)
	}
	vec, _ := emb.Embed(ctx, "User lives in Ankara")
	if err := idx.Add(ctx, memory.Fact{ID: "x", Text: "User lives in Ankara", CreatedAt: time.Now()}, vec); err != nil {
		t.Fatal(err)
	}

	idx, err = Open(Config{Path: dir, Collection: "facts"}, emb)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := idx.Get(ctx, "x"); !ok {
		t.Error("expected fact to survive reopen")
	}
}

func TestIndex_ListAndWipeWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	emb := &testutil.ConceptEmbedder{}
	dir := t.TempDir()

	idx, err := Open(Config{Path: dir, Collection: "facts"}, emb)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range []string{"User likes tea", "User has a dog"} {
		vec, _ := emb.Embed(ctx, text)
		if err := idx.Add(ctx, memory.Fact{ID: string(rune('a' + i)), Text: text, CreatedAt: time.Now()}, vec); err != nil {
			t.Fatal(err)
		}
	}

	emb.Fail = true
	calls := emb.Calls()

	facts, err := idx.List(ctx)
	if err != nil {
		t.Fatalf("list should not need the embedder: %v", err)
	}
	if len(facts) != 2 {
		t.Errorf("expected 2 facts, got %d", len(facts))
	}
	if emb.Calls() != calls {
		t.Error("list must not call the embedder once the dimension is known")
	}

	// The dimension survives a reopen, so listing still works offline.
	idx, err = Open(Config{Path: dir, Collection: "facts"}, emb)
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewStore(idx, emb, memory.DefaultConfig())
	removed, err := store.Wipe(ctx)
	if err != nil {
		t.Fatalf("wipe should not need the embedder: %v", err)
	}
	if removed != 2 || store.Count(ctx) != 0 {
		t.Errorf("expected 2 removed and an empty store, got removed=%d count=%d", removed, store.Count(ctx))
	}
}
