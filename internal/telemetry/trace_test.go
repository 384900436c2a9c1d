package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTraceContext_NewAndChild(t *testing.T) {
	root := NewTraceContext("sess-1")

	if root.SessionID != "sess-1" {
		t.Errorf("expected SessionID 'sess-1', got %q", root.SessionID)
	}
	if len(root.TraceID) != 16 || len(root.SpanID) != 16 {
		t.Errorf("expected 16-char ids, got %q / %q", root.TraceID, root.SpanID)
	}
	if root.ParentID != "" {
		t.Error("expected empty ParentID for root")
	}

	turn := root.ForTurn(3)
	if turn.TraceID != root.TraceID {
		t.Error("turn span should inherit TraceID")
	}
	if turn.ParentID != root.SpanID {
		t.Error("turn ParentID should be the root SpanID")
	}
	if turn.Turn != 3 {
		t.Errorf("expected turn 3, got %d", turn.Turn)
	}
	if turn.SpanID == root.SpanID {
		t.Error("turn should get a fresh SpanID")
	}
}

func TestTraceContext_Fields(t *testing.T) {
	tc := NewTraceContext("s").ForTurn(2).WithStage("recall")
	fields := tc.Fields()

	if fields["session"] != "s" {
		t.Errorf("expected session field, got %v", fields["session"])
	}
	if fields["turn"] != 2 {
		t.Errorf("expected turn field 2, got %v", fields["turn"])
	}
	if fields["stage"] != "recall" {
		t.Errorf("expected stage field, got %v", fields["stage"])
	}
	if _, ok := fields["parent_id"]; !ok {
		t.Error("expected parent_id for child span")
	}

	root := NewTraceContext("s").Fields()
	if _, ok := root["turn"]; ok {
		t.Error("root span should not carry a turn")
	}
}

func TestTraceContext_RoundTripContext(t *testing.T) {
	if TraceFromContext(context.Background()) != nil {
		t.Error("expected nil trace on empty context")
	}

	tc := NewTraceContext("s")
	ctx := ContextWithTrace(context.Background(), tc)
	if TraceFromContext(ctx) != tc {
		t.Error("expected stored trace to come back")
	}
}

func TestLogger_WithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelDebug)

	ctx := ContextWithTrace(context.Background(), NewTraceContext("sess-xyz"))
	logger.WithTrace(ctx).Info("recalled", "count", 2)

	out := buf.String()
	if !strings.Contains(out, "session=sess-xyz") {
		t.Errorf("expected session field in output, got %q", out)
	}
	if !strings.Contains(out, "count=2") {
		t.Errorf("expected count field in output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelWarn,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn should be emitted")
	}
}
