package event

import (
	"errors"
	"sync"
	"testing"
)

// testLogger records warn messages.
type testLogger struct {
	mu       sync.Mutex
	warnings []string
	infos    []string
}

func (l *testLogger) Warn(msg string, keyvals ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *testLogger) Info(msg string, keyvals ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Debug(msg string, keyvals ...interface{}) {}

// collectHook records handled events.
type collectHook struct {
	filter
	handled  []Event
	handleFn func(Event) error
}

func newCollectHook(name string, events []EventType, blocking bool) *collectHook {
	return &collectHook{
		filter: newFilter(name, events, blocking),
	}
}

func (h *collectHook) Handle(ev Event) error {
	h.handled = append(h.handled, ev)
	if h.handleFn != nil {
		return h.handleFn(ev)
	}
	return nil
}

func TestBus_Emit_MatchingHook(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("saves", []EventType{FactSaved}, true)
	bus.Register(hook)

	if err := bus.Emit(NewEvent(FactSaved, map[string]interface{}{"id": "abc"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Emit(NewEvent(FactForgotten, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hook.handled) != 1 {
		t.Fatalf("expected 1 handled event, got %d", len(hook.handled))
	}
	if hook.handled[0].Data["id"] != "abc" {
		t.Errorf("expected id abc, got %v", hook.handled[0].Data["id"])
	}
}

func TestBus_Emit_DispatchesInOrderBeforeReturning(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		h := newCollectHook(name, nil, false)
		n := name
		h.handleFn = func(Event) error {
			order = append(order, n)
			return nil
		}
		bus.Register(h)
	}

	if err := bus.Emit(NewEvent(TurnCompleted, nil)); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != "first" || order[2] != "third" {
		t.Errorf("expected hooks in registration order, got %v", order)
	}
}

func TestBus_Emit_BlockingFailureStops(t *testing.T) {
	bus := NewBus(nil)
	failing := newCollectHook("gate", nil, true)
	failing.handleFn = func(Event) error { return errors.New("denied") }
	after := newCollectHook("after", nil, false)
	bus.Register(failing)
	bus.Register(after)

	err := bus.Emit(NewEvent(FactSaved, nil))
	if err == nil {
		t.Fatal("expected error from blocking hook")
	}
	if len(after.handled) != 0 {
		t.Errorf("hooks after a failed blocking hook should not run, got %d", len(after.handled))
	}
}

func TestBus_Emit_NonBlockingFailureLogged(t *testing.T) {
	logger := &testLogger{}
	bus := NewBus(logger)
	failing := newCollectHook("flaky", nil, false)
	failing.handleFn = func(Event) error { return errors.New("boom") }
	after := newCollectHook("after", nil, false)
	bus.Register(failing)
	bus.Register(after)

	if err := bus.Emit(NewEvent(TurnFailed, nil)); err != nil {
		t.Fatalf("non-blocking failure should not surface, got %v", err)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(logger.warnings))
	}
	if len(after.handled) != 1 {
		t.Error("dispatch should continue after a non-blocking failure")
	}
}

func TestBus_Emit_PanicRecovered(t *testing.T) {
	logger := &testLogger{}
	bus := NewBus(logger)
	h := newCollectHook("panicky", nil, false)
	h.handleFn = func(Event) error { panic("oops") }
	bus.Register(h)

	if err := bus.Emit(NewEvent(SessionReset, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("expected panic to be logged, got %d warnings", len(logger.warnings))
	}
}

func TestBus_Disabled(t *testing.T) {
	bus := NewBus(nil)
	hook := newCollectHook("x", nil, true)
	bus.Register(hook)
	bus.SetEnabled(false)

	if err := bus.Emit(NewEvent(MemoryWiped, nil)); err != nil {
		t.Fatal(err)
	}
	if len(hook.handled) != 0 {
		t.Error("disabled bus should not dispatch")
	}
}

func TestBus_Nil(t *testing.T) {
	var bus *Bus
	bus.Register(newCollectHook("x", nil, false))
	bus.SetEnabled(true)
	if err := bus.Emit(NewEvent(FactSaved, nil)); err != nil {
		t.Fatal(err)
	}
	if bus.Len() != 0 {
		t.Error("nil bus should report zero hooks")
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown("fact.saved") {
		t.Error("fact.saved should be known")
	}
	if IsKnown("task.started") {
		t.Error("task.started should not be known")
	}
}
