package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/aiyo-oss/aiyo/internal/config"
)

// Hook reacts to memory and conversation events.
type Hook interface {
	Name() string
	Matches(t EventType) bool
	// IsBlocking hooks run inline and their errors reach the emitter.
	IsBlocking() bool
	Handle(ev Event) error
}

// filter is the name and subscription shared by every hook kind.
type filter struct {
	name     string
	only     map[EventType]bool // nil subscribes to everything
	blocking bool
}

func newFilter(name string, events []EventType, blocking bool) filter {
	f := filter{name: name, blocking: blocking}
	if len(events) > 0 {
		f.only = make(map[EventType]bool, len(events))
		for _, t := range events {
			f.only[t] = true
		}
	}
	return f
}

func (f *filter) Name() string             { return f.name }
func (f *filter) IsBlocking() bool         { return f.blocking }
func (f *filter) Matches(t EventType) bool { return f.only == nil || f.only[t] }

// factEnv exposes the fact fields of an event to shell hooks.
func factEnv(ev Event) []string {
	var env []string
	if id, ok := ev.Data["id"].(string); ok {
		env = append(env, "AIYO_FACT_ID="+id)
	}
	if text, ok := ev.Data["text"].(string); ok {
		env = append(env, "AIYO_FACT_TEXT="+text)
	}
	return env
}

// ShellHook runs a command through sh. The event is available as
// AIYO_EVENT_TYPE and AIYO_EVENT_JSON; fact events also set AIYO_FACT_ID
// and AIYO_FACT_TEXT.
type ShellHook struct {
	filter
	Command string
	Stdout  io.Writer
	Stderr  io.Writer
}

func NewShellHook(name, command string, events []EventType, blocking bool) *ShellHook {
	return &ShellHook{
		filter:  newFilter(name, events, blocking),
		Command: command,
		Stdout:  os.Stderr,
		Stderr:  os.Stderr,
	}
}

func (h *ShellHook) Handle(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	cmd := exec.Command("sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), "AIYO_EVENT_TYPE="+string(ev.Type), "AIYO_EVENT_JSON="+string(payload))
	cmd.Env = append(cmd.Env, factEnv(ev)...)
	cmd.Stdout, cmd.Stderr = h.Stdout, h.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shell hook %s: %w", h.name, err)
	}
	return nil
}

// WebhookHook POSTs the event as JSON. The event type is repeated in the
// X-Aiyo-Event header so receivers can route without decoding the body.
type WebhookHook struct {
	filter
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func NewWebhookHook(name, url string, events []EventType, blocking bool) *WebhookHook {
	return &WebhookHook{
		filter:  newFilter(name, events, blocking),
		URL:     url,
		Timeout: 5 * time.Second,
		Client:  http.DefaultClient,
	}
}

func (h *WebhookHook) Handle(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Aiyo-Event", string(ev.Type))

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s: status %d", h.name, resp.StatusCode)
	}
	return nil
}

// FullLogger is the logger surface LogHook writes through.
type FullLogger interface {
	Logger
	Info(msg string, keyvals ...interface{})
	Debug(msg string, keyvals ...interface{})
}

// LogHook records events in the application log. It never blocks.
type LogHook struct {
	filter
	logger Logger
	level  string
}

func NewLogHook(name string, events []EventType, logger Logger, level string) *LogHook {
	return &LogHook{filter: newFilter(name, events, false), logger: logger, level: level}
}

func (h *LogHook) Handle(ev Event) error {
	keyvals := []interface{}{"event_type", string(ev.Type)}
	for k, v := range ev.Data {
		keyvals = append(keyvals, k, v)
	}
	msg := "[event] " + string(ev.Type)

	fl, ok := h.logger.(FullLogger)
	switch {
	case !ok || h.level == "warn":
		h.logger.Warn(msg, keyvals...)
	case h.level == "debug":
		fl.Debug(msg, keyvals...)
	default:
		fl.Info(msg, keyvals...)
	}
	return nil
}

// BuildBus returns a bus carrying the hooks declared in cfg. Disabled hooks
// yield an empty bus.
func BuildBus(cfg config.HooksConfig, logger FullLogger) (*Bus, error) {
	bus := NewBus(logger)
	if !cfg.Enabled {
		return bus, nil
	}
	for _, hc := range cfg.Hooks {
		events := make([]EventType, len(hc.Events))
		for i, e := range hc.Events {
			events[i] = EventType(e)
		}

		var h Hook
		switch hc.Type {
		case "shell":
			h = NewShellHook(hc.Name, hc.Command, events, hc.Blocking)
		case "webhook":
			h = NewWebhookHook(hc.Name, hc.URL, events, hc.Blocking)
		case "log":
			h = NewLogHook(hc.Name, events, logger, hc.Level)
		default:
			return nil, fmt.Errorf("hook %s: unknown type %q", hc.Name, hc.Type)
		}
		bus.Register(h)
	}
	return bus, nil
}
