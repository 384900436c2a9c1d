package telemetry

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type traceKey struct{}

// TraceContext correlates the log lines of one chat session and its turns.
type TraceContext struct {
	SessionID string `json:"session_id"`
	TraceID   string `json:"trace_id"`
	SpanID    string `json:"span_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Turn      int    `json:"turn,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

// NewTraceContext creates a root trace for a session.
func NewTraceContext(sessionID string) *TraceContext {
	return &TraceContext{
		SessionID: sessionID,
		TraceID:   shortID(),
		SpanID:    shortID(),
	}
}

// ChildSpan creates a child span inheriting the session and trace ids.
func (tc *TraceContext) ChildSpan() *TraceContext {
	return &TraceContext{
		SessionID: tc.SessionID,
		TraceID:   tc.TraceID,
		SpanID:    shortID(),
		ParentID:  tc.SpanID,
		Turn:      tc.Turn,
	}
}

// ForTurn returns a child span tagged with the turn number.
func (tc *TraceContext) ForTurn(n int) *TraceContext {
	child := tc.ChildSpan()
	child.Turn = n
	return child
}

// WithStage returns a copy tagged with a pipeline stage (recall, generate, act).
func (tc *TraceContext) WithStage(stage string) *TraceContext {
	child := *tc
	child.Stage = stage
	return &child
}

// Fields returns key-value pairs suitable for structured logging.
func (tc *TraceContext) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"session":  tc.SessionID,
		"trace_id": tc.TraceID,
		"span_id":  tc.SpanID,
	}
	if tc.ParentID != "" {
		fields["parent_id"] = tc.ParentID
	}
	if tc.Turn > 0 {
		fields["turn"] = tc.Turn
	}
	if tc.Stage != "" {
		fields["stage"] = tc.Stage
	}
	return fields
}

// ContextWithTrace stores a TraceContext in the context.
func ContextWithTrace(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, tc)
}

// TraceFromContext extracts a TraceContext from the context, or nil.
func TraceFromContext(ctx context.Context) *TraceContext {
	tc, _ := ctx.Value(traceKey{}).(*TraceContext)
	return tc
}

// WithTrace returns a logger enriched with trace fields from the context.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	tc := TraceFromContext(ctx)
	if tc == nil {
		return l
	}
	return l.WithFields(tc.Fields())
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
