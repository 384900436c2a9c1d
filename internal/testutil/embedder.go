package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// concepts maps surface words to a shared dimension so that paraphrases such
// as "User likes tea" and "tea preference" embed to the same direction.
var concepts = [][]string{
	{"like", "likes", "liked", "love", "loves", "enjoy", "enjoys", "prefer", "prefers", "preference", "favorite", "favourite"},
	{"live", "lives", "living", "reside", "resides", "home", "based"},
	{"name", "named", "called"},
	{"work", "works", "working", "job", "employed"},
	{"tea", "chai"},
	{"coffee", "espresso"},
	{"dog", "dogs", "puppy"},
	{"cat", "cats", "kitten"},
	{"weather", "rain", "sunny"},
}

var stopwords = map[string]bool{
	"user": true, "i": true, "im": true, "in": true, "the": true, "a": true, "an": true,
	"is": true, "am": true, "are": true, "my": true, "me": true, "do": true, "you": true,
	"to": true, "of": true, "and": true, "what": true, "where": true, "that": true,
	"it": true, "at": true, "for": true, "now": true, "their": true, "s": true, "m": true,
}

const hashedDims = 256

// ConceptEmbedder is a deterministic bag-of-concepts embedder for tests.
// Known synonyms share a dimension; other words hash into the rest.
type ConceptEmbedder struct {
	mu    sync.Mutex
	calls int
	// Fail makes every call return an error.
	Fail bool
}

func (e *ConceptEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.Fail
	e.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("embedder unavailable")
	}

	vec := make([]float32, 1+len(concepts)+hashedDims)
	empty := true
	for _, w := range words(text) {
		if stopwords[w] {
			continue
		}
		empty = false
		vec[dimension(w)]++
	}
	if empty {
		vec[0] = 1
	}
	return vec, nil
}

// Calls returns how many times Embed was invoked.
func (e *ConceptEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func dimension(word string) int {
	for i, group := range concepts {
		for _, w := range group {
			if w == word {
				return 1 + i
			}
		}
	}
	h := fnv.New32a()
	h.Write([]byte(word))
	return 1 + len(concepts) + int(h.Sum32()%hashedDims)
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
