package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aiyo-oss/aiyo/internal/config"
	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
	"github.com/aiyo-oss/aiyo/internal/event"
	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/protocol"
	"github.com/aiyo-oss/aiyo/internal/provider"
	"github.com/aiyo-oss/aiyo/internal/recall"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// TurnResult is what one completed turn produced.
type TurnResult struct {
	Display   string
	SavedID   string
	Activity  []protocol.Entry
	Recalled  []recall.Entry
	Query     string
	Continued bool
	Elapsed   time.Duration
}

// Runtime runs chat turns against a provider and a fact store.
type Runtime struct {
	provider  provider.Provider
	store     *memory.Store
	session   *Session
	judge     *recall.Judge
	retriever *recall.Retriever
	processor *protocol.Processor
	bus       *event.Bus
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	trace     *telemetry.TraceContext

	model       string
	maxTokens   int
	temperature float64
	numCtx      int
}

// Option configures a Runtime.
type Option func(*Runtime)

func WithEventBus(b *event.Bus) Option {
	return func(r *Runtime) { r.bus = b }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithJudge replaces the continuity judge built from the config.
func WithJudge(j *recall.Judge) Option {
	return func(r *Runtime) { r.judge = j }
}

// NewRuntime wires a runtime from configuration. The provider is used for
// both generation and the continuity check.
func NewRuntime(cfg *config.Config, p provider.Provider, store *memory.Store, logger *telemetry.Logger, opts ...Option) *Runtime {
	r := &Runtime{
		provider:    p,
		store:       store,
		logger:      logger,
		model:       cfg.Provider.Model,
		maxTokens:   cfg.Provider.MaxTokens,
		temperature: cfg.Provider.Temperature,
		numCtx:      cfg.Provider.NumCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = telemetry.NewMetrics()
	}

	r.session = NewSession(cfg.Chat.SystemPrompt, cfg.Chat.MaxHistoryTokens)
	r.trace = telemetry.NewTraceContext(r.session.ID)

	if r.judge == nil {
		model := cfg.Judge.Model
		if model == "" {
			model = cfg.Provider.Model
		}
		r.judge = recall.NewJudge(p, model, cfg.Judge.MaxTokens, cfg.Judge.Enabled)
	}
	r.judge.SetObservers(r.metrics, logger)

	r.retriever = recall.NewRetriever(store, cfg.Memory.SearchLimit, cfg.Memory.RelevanceThreshold)
	r.retriever.SetMetrics(r.metrics)

	r.processor = protocol.NewProcessor(store,
		protocol.WithMaxSaves(cfg.Memory.MaxSaves),
		protocol.WithEventBus(r.bus),
		protocol.WithMetrics(r.metrics),
		protocol.WithLogger(logger),
	)
	return r
}

// Turn runs one user utterance through recall, generation and the directive
// protocol. On a generation failure the user message is rolled back so the
// history stays as it was before the turn.
func (r *Runtime) Turn(ctx context.Context, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, aiyoErrors.New(aiyoErrors.CodeInvalidInput, "empty input")
	}

	tc := r.trace.ForTurn(r.session.nextTurn())
	ctx = telemetry.ContextWithTrace(ctx, tc)
	log := r.logger.WithTrace(ctx)
	start := time.Now()

	query, continued := recall.BuildQuery(ctx, r.judge, r.session.LastTurnText(), input)

	lastSaved := r.session.LastSavedID()
	recalled, resolved := r.retriever.Retrieve(ctx, query, lastSaved)
	if lastSaved != "" && !resolved {
		log.Debug("Last saved fact no longer exists", "id", lastSaved)
		r.session.SetLastSavedID("")
	}
	log.Debug("Recall", "query", query, "continued", continued, "facts", len(recalled))

	r.session.History.Add(provider.RoleUser, input)
	req := r.buildRequest(recall.Augment(recall.Format(recalled), input))

	genStart := time.Now()
	resp, err := r.provider.Complete(ctx, req)
	r.metrics.RecordGenerationLatency(time.Since(genStart))
	if err != nil {
		r.session.History.RemoveLast(provider.RoleUser)
		r.metrics.IncTurnsFailed()
		r.emit(log, event.TurnFailed, map[string]interface{}{"input": input, "error": err.Error()})
		log.Warn("Generation failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, aiyoErrors.Wrap(aiyoErrors.CodeTimeout, "generation timed out", err).
				WithSuggestion("Raise chat.turn_timeout or use a smaller model")
		}
		return nil, aiyoErrors.Wrap(aiyoErrors.CodeProviderError, "generation failed", err).
			WithSuggestion(failureHint(err, req.Model))
	}
	log.Debug("Provider response",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	res := r.processor.Process(ctx, input, resp.Content)
	if res.SavedID != "" {
		r.session.SetLastSavedID(res.SavedID)
	}

	r.session.History.Add(provider.RoleAssistant, res.Display)
	if n := r.session.History.Trim(); n > 0 {
		log.Debug("History trimmed", "dropped", n)
	}
	r.session.setLastTurnText(input)
	r.metrics.IncTurns()

	result := &TurnResult{
		Display:   res.Display,
		SavedID:   res.SavedID,
		Activity:  res.Log,
		Recalled:  recalled,
		Query:     query,
		Continued: continued,
		Elapsed:   time.Since(start),
	}
	r.emit(log, event.TurnCompleted, map[string]interface{}{
		"input":    input,
		"recalled": len(recalled),
		"actions":  len(res.Log),
		"elapsed":  result.Elapsed.String(),
	})
	return result, nil
}

// buildRequest sends the history with the newest user message replaced by
// its augmented copy. The stored history keeps the raw text.
func (r *Runtime) buildRequest(augmented string) *provider.CompletionRequest {
	history := r.session.History.Messages()
	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history[1:] {
		msgs = append(msgs, provider.Message{Role: m.Role, Content: m.Content})
	}
	if n := len(msgs); n > 0 {
		msgs[n-1].Content = augmented
	}
	return &provider.CompletionRequest{
		Model:       r.model,
		System:      history[0].Content,
		Messages:    msgs,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		NumCtx:      r.numCtx,
	}
}

// Forget deletes a fact by id on the user's direct request.
func (r *Runtime) Forget(ctx context.Context, id string) bool {
	if !r.store.Delete(ctx, id) {
		r.metrics.IncForgetMisses()
		r.emit(r.logger, event.ForgetMissed, map[string]interface{}{"id": id, "manual": true})
		return false
	}
	r.metrics.IncFactsPruned()
	r.emit(r.logger, event.FactForgotten, map[string]interface{}{"id": id, "manual": true})
	return true
}

// Reset starts a new topic: history and the previous utterance are cleared.
func (r *Runtime) Reset() {
	r.session.Reset()
	r.emit(r.logger, event.SessionReset, map[string]interface{}{"session": r.session.ID})
}

// Session returns the runtime's session.
func (r *Runtime) Session() *Session {
	return r.session
}

// GetMetrics returns the runtime metrics
func (r *Runtime) GetMetrics() *telemetry.Metrics {
	return r.metrics
}

func (r *Runtime) emit(log *telemetry.Logger, t event.EventType, data map[string]interface{}) {
	if err := r.bus.Emit(event.NewEvent(t, data)); err != nil {
		log.Warn("Event hook failed", "event", string(t), "error", err)
	}
}

func failureHint(err error, model string) string {
	if hint := aiyoErrors.Suggestion(err); hint != "" {
		return hint
	}
	switch status := provider.StatusOf(err); {
	case status == 404:
		return "Model " + model + " is not available; pull it with 'ollama pull " + model + "'"
	case status == 401 || status == 403:
		return "The provider rejected the credentials; check the API key"
	case status == 429:
		return "Rate limited; wait a moment and try again"
	}
	return "Check that the model server is running and the model is pulled"
}
