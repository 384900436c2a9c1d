// Package recall decides what to search the fact store for on each turn and
// renders the recalled facts into the outgoing prompt.
package recall

import (
	"context"
	"strings"

	"github.com/aiyo-oss/aiyo/internal/provider"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

const judgeSystem = "You decide whether two chat messages are about the same topic. Answer with YES or NO only."

// Judge asks a model whether the current utterance continues the previous one.
type Judge struct {
	provider  provider.Provider
	model     string
	maxTokens int
	enabled   bool
	metrics   *telemetry.Metrics
	logger    *telemetry.Logger
}

// NewJudge creates a Judge. A nil provider disables it.
func NewJudge(p provider.Provider, model string, maxTokens int, enabled bool) *Judge {
	if maxTokens <= 0 {
		maxTokens = 3
	}
	return &Judge{
		provider:  p,
		model:     model,
		maxTokens: maxTokens,
		enabled:   enabled && p != nil,
	}
}

// SetObservers attaches metrics and a logger. Either may be nil.
func (j *Judge) SetObservers(m *telemetry.Metrics, l *telemetry.Logger) {
	j.metrics = m
	j.logger = l
}

// Enabled reports whether Continues will call the model.
func (j *Judge) Enabled() bool {
	return j != nil && j.enabled
}

// Continues reports whether current is a follow-up of previous. Any failure,
// including an unexpected answer, counts as a topic change.
func (j *Judge) Continues(ctx context.Context, previous, current string) bool {
	if !j.Enabled() || strings.TrimSpace(previous) == "" || strings.TrimSpace(current) == "" {
		return false
	}
	if j.metrics != nil {
		j.metrics.IncJudgeCalls()
	}

	resp, err := j.provider.Complete(ctx, &provider.CompletionRequest{
		Model:  j.model,
		System: judgeSystem,
		Messages: []provider.Message{{
			Role:    provider.RoleUser,
			Content: judgePrompt(previous, current),
		}},
		MaxTokens:   j.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		if j.logger != nil {
			j.logger.Debug("Continuity check failed", "error", err)
		}
		return false
	}
	return isYes(resp.Content)
}

func judgePrompt(previous, current string) string {
	var b strings.Builder
	b.WriteString("Previous message: ")
	b.WriteString(previous)
	b.WriteString("\nCurrent message: ")
	b.WriteString(current)
	b.WriteString("\nIs the current message a follow-up on the same topic as the previous one? Answer YES or NO.")
	return b.String()
}

func isYes(answer string) bool {
	a := strings.ToUpper(strings.TrimSpace(answer))
	a = strings.TrimLeft(a, "\"'*` ")
	return strings.HasPrefix(a, "YES")
}

// BuildQuery returns the search query for this turn and whether the previous
// utterance was folded into it.
func BuildQuery(ctx context.Context, j *Judge, previous, current string) (string, bool) {
	if j.Continues(ctx, previous, current) {
		return previous + " " + current, true
	}
	return current, false
}
