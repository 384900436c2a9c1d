// Package aiyo provides a public API for embedding the aiyo assistant.
//
// Example usage:
//
//	import "github.com/aiyo-oss/aiyo/pkg/aiyo"
//
//	a, err := aiyo.Open(".") // reads ./aiyo.yaml, defaults when absent
//	if err != nil { ... }
//	defer a.Close()
//
//	reply, err := a.Chat(ctx, "I live in Ankara")
//	fmt.Println(reply.Text)     // "Noted, you live in Ankara."
//	fmt.Println(reply.SavedID)  // id of the fact the model saved, if any
package aiyo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aiyo-oss/aiyo/internal/agent"
	"github.com/aiyo-oss/aiyo/internal/app"
	"github.com/aiyo-oss/aiyo/internal/config"
	"github.com/aiyo-oss/aiyo/internal/memory"
)

// Fact is a saved statement about the user.
type Fact = memory.Fact

// Reply is the result of one chat turn.
type Reply struct {
	// Text is the model reply with every memory directive removed.
	Text string
	// Notes describes what happened to each directive, in order.
	Notes []string
	// SavedID is the id of the fact saved this turn, or "".
	SavedID string
	// Recalled lists the facts that were injected into the prompt.
	Recalled []Fact
}

// Assistant is a chat session bound to a persistent fact store.
type Assistant struct {
	stack   *app.Stack
	runtime *agent.Runtime
}

// Open loads aiyo.yaml from dir and opens the fact store it names.
func Open(dir string) (*Assistant, error) {
	return OpenFile(filepath.Join(dir, config.FileName))
}

// OpenFile is Open with an explicit config path.
func OpenFile(path string) (*Assistant, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	st, err := app.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open fact store: %w", err)
	}
	p, err := app.BuildProvider(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return &Assistant{stack: st, runtime: st.Runtime(p)}, nil
}

// Chat runs one conversational turn.
func (a *Assistant) Chat(ctx context.Context, input string) (*Reply, error) {
	res, err := a.runtime.Turn(ctx, input)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Text: res.Display, SavedID: res.SavedID}
	for _, e := range res.Activity {
		reply.Notes = append(reply.Notes, e.String())
	}
	for _, r := range res.Recalled {
		reply.Recalled = append(reply.Recalled, r.Fact)
	}
	return reply, nil
}

// Remember saves text directly, bypassing the model. It returns
// memory.ErrDuplicate when a near-identical fact already exists.
func (a *Assistant) Remember(ctx context.Context, text string) (string, error) {
	return a.stack.Store.Insert(ctx, text, memory.SourceUser, "manual")
}

// Forget deletes a fact by id and reports whether it existed.
func (a *Assistant) Forget(ctx context.Context, id string) bool {
	return a.runtime.Forget(ctx, id)
}

// Facts lists every saved fact, oldest first.
func (a *Assistant) Facts(ctx context.Context) ([]Fact, error) {
	return a.stack.Store.List(ctx)
}

// Reset clears the conversation. Saved facts are kept.
func (a *Assistant) Reset() {
	a.runtime.Reset()
}

// Close flushes metrics and closes the fact store.
func (a *Assistant) Close() {
	a.stack.Close()
}

// IsDuplicate reports whether err means the fact was already known.
func IsDuplicate(err error) bool {
	return errors.Is(err, memory.ErrDuplicate)
}
