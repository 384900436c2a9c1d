// Package protocol applies the memory directives found in a model reply and
// produces the text the user should see.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aiyo-oss/aiyo/internal/directive"
	"github.com/aiyo-oss/aiyo/internal/event"
	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// Category is attached to facts saved from model directives.
const Category = "auto"

// Store is the part of memory.Store the processor mutates.
type Store interface {
	Insert(ctx context.Context, text string, source memory.Source, category string) (string, error)
	Delete(ctx context.Context, id string) bool
}

// EntryKind classifies an activity log entry.
type EntryKind string

const (
	Pruned     EntryKind = "pruned"
	NotFound   EntryKind = "not_found"
	Saved      EntryKind = "saved"
	Duplicate  EntryKind = "duplicate"
	Blocked    EntryKind = "blocked"
	SaveFailed EntryKind = "save_failed"
	Skipped    EntryKind = "skipped"
)

// Entry records what happened to one directive.
type Entry struct {
	Kind EntryKind
	// Target is the fact id for forget entries and the fact text for save entries.
	Target string
	Err    error
}

func (e Entry) String() string {
	switch e.Kind {
	case Pruned:
		return "pruned: " + e.Target
	case NotFound:
		return "id not found: " + e.Target
	case Saved:
		return "saved: " + e.Target
	case Duplicate:
		return "already known: " + e.Target
	case Blocked:
		return "blocked: user asked a question"
	case SaveFailed:
		return fmt.Sprintf("save failed: %v", e.Err)
	case Skipped:
		return "skipped extra save: " + e.Target
	default:
		return string(e.Kind) + ": " + e.Target
	}
}

// Result is the outcome of processing one reply.
type Result struct {
	// Display is the reply with markup and every directive removed.
	Display string
	// Log lists one entry per acted-on directive, forgets before saves, in
	// text order.
	Log []Entry
	// SavedID is the id of the fact created this turn, or "".
	SavedID string
}

// Processor turns raw model output into store mutations.
type Processor struct {
	store    Store
	maxSaves int
	bus      *event.Bus
	metrics  *telemetry.Metrics
	logger   *telemetry.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithMaxSaves caps how many SAVE directives are applied per reply. Values
// below 1 are treated as 1.
func WithMaxSaves(n int) Option {
	return func(p *Processor) { p.maxSaves = n }
}

func WithEventBus(b *event.Bus) Option {
	return func(p *Processor) { p.bus = b }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithLogger(l *telemetry.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a Processor over store.
func NewProcessor(store Store, opts ...Option) *Processor {
	p := &Processor{store: store, maxSaves: 1}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxSaves < 1 {
		p.maxSaves = 1
	}
	return p
}

// Process strips markup, applies FORGET directives in order, then applies at
// most maxSaves SAVE directives. A save is blocked outright when userInput
// contains a question mark: the model is answering, not being told a fact.
//
// Removing a directive can leave an enclosing one well-formed, as in
// "[SAVE: a [FORGET: b]]", so the text is rescanned until none remain.
func (p *Processor) Process(ctx context.Context, userInput, raw string) Result {
	text := strings.TrimSpace(directive.StripMarkup(raw))
	asked := strings.Contains(userInput, "?")

	var res Result
	seen := 0
	for {
		actions := directive.Parse(text)
		if len(actions) == 0 {
			break
		}

		for _, a := range directive.Filter(actions, directive.Forget) {
			res.Log = append(res.Log, p.forget(ctx, a.Arg))
		}
		for _, a := range directive.Filter(actions, directive.Save) {
			seen++
			switch {
			case seen > p.maxSaves:
				res.Log = append(res.Log, Entry{Kind: Skipped, Target: a.Arg})
			case asked:
				p.inc((*telemetry.Metrics).IncSavesBlocked)
				p.emit(event.SaveBlocked, map[string]interface{}{"text": a.Arg, "input": userInput})
				res.Log = append(res.Log, Entry{Kind: Blocked, Target: a.Arg})
			default:
				entry, id := p.save(ctx, a.Arg)
				if id != "" {
					res.SavedID = id
				}
				res.Log = append(res.Log, entry)
			}
		}
		text = directive.Strip(text, actions)
	}
	res.Display = text
	return res
}

func (p *Processor) forget(ctx context.Context, id string) Entry {
	if p.store.Delete(ctx, id) {
		p.inc((*telemetry.Metrics).IncFactsPruned)
		p.emit(event.FactForgotten, map[string]interface{}{"id": id})
		return Entry{Kind: Pruned, Target: id}
	}
	p.inc((*telemetry.Metrics).IncForgetMisses)
	p.emit(event.ForgetMissed, map[string]interface{}{"id": id})
	return Entry{Kind: NotFound, Target: id}
}

func (p *Processor) save(ctx context.Context, text string) (Entry, string) {
	id, err := p.store.Insert(ctx, text, memory.SourceAuto, Category)
	switch {
	case err == nil:
		p.inc((*telemetry.Metrics).IncFactsSaved)
		p.emit(event.FactSaved, map[string]interface{}{"id": id, "text": text})
		return Entry{Kind: Saved, Target: text}, id
	case errors.Is(err, memory.ErrDuplicate):
		p.inc((*telemetry.Metrics).IncDuplicates)
		p.emit(event.FactDuplicate, map[string]interface{}{"text": text})
		return Entry{Kind: Duplicate, Target: text}, ""
	default:
		if p.logger != nil {
			p.logger.Warn("Save failed", "text", text, "error", err)
		}
		return Entry{Kind: SaveFailed, Target: text, Err: err}, ""
	}
}

func (p *Processor) inc(f func(*telemetry.Metrics)) {
	if p.metrics != nil {
		f(p.metrics)
	}
}

func (p *Processor) emit(t event.EventType, data map[string]interface{}) {
	if err := p.bus.Emit(event.NewEvent(t, data)); err != nil && p.logger != nil {
		p.logger.Warn("Event hook failed", "event", string(t), "error", err)
	}
}
