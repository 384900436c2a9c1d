// Package app assembles the runtime pieces named in a Config: logger,
// metrics, hooks, embedder, fact store and provider.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aiyo-oss/aiyo/internal/agent"
	"github.com/aiyo-oss/aiyo/internal/config"
	"github.com/aiyo-oss/aiyo/internal/event"
	"github.com/aiyo-oss/aiyo/internal/memory"
	"github.com/aiyo-oss/aiyo/internal/memory/embedder"
	"github.com/aiyo-oss/aiyo/internal/memory/index/chromem"
	"github.com/aiyo-oss/aiyo/internal/memory/index/sqlite"
	"github.com/aiyo-oss/aiyo/internal/provider"
	"github.com/aiyo-oss/aiyo/internal/provider/anthropic"
	"github.com/aiyo-oss/aiyo/internal/provider/ollama"
	"github.com/aiyo-oss/aiyo/internal/telemetry"
)

// BuildLogger creates the process logger from the logging section.
func BuildLogger(cfg *config.Config) (*telemetry.Logger, error) {
	logger := telemetry.NewLoggerWithLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	}
	return logger, nil
}

// BuildMetrics creates metrics. When telemetry.metrics_file is set, the
// returned flush appends a session report to it.
func BuildMetrics(cfg *config.Config, logger *telemetry.Logger) (*telemetry.Metrics, func()) {
	m := telemetry.NewMetrics()
	if cfg.Telemetry.MetricsFile == "" {
		return m, func() {}
	}
	exp := telemetry.NewJSONLExporter(cfg.Telemetry.MetricsFile)
	m.SetExporter(exp)
	return m, func() {
		labels := map[string]string{"provider": cfg.Provider.Name, "model": cfg.Provider.Model}
		if err := m.Flush("session.end", labels); err != nil {
			logger.Warn("metrics export failed", "path", exp.Path(), "error", err)
		}
		exp.Close()
	}
}

// BuildProvider creates the generation client named in the config, wrapped
// with retries.
func BuildProvider(cfg *config.Config) (provider.Provider, error) {
	timeout, err := config.ParseDuration(cfg.Provider.Timeout)
	if err != nil {
		return nil, err
	}

	var p provider.Provider
	switch cfg.Provider.Name {
	case "anthropic":
		p = anthropic.NewClient(cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.BaseURL, timeout)
	case "ollama":
		p, err = ollama.NewClient(cfg.Provider.Model, cfg.Provider.BaseURL, cfg.Provider.NumCtx, timeout)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider.Name)
	}

	retry := provider.DefaultRetryConfig()
	retry.MaxRetries = cfg.Provider.MaxRetries
	return provider.NewRetryProvider(p, retry), nil
}

// BuildEmbedder creates the embedding client, cached unless cache_size is 0.
func BuildEmbedder(cfg *config.Config) (memory.Embedder, func(), error) {
	timeout, err := config.ParseDuration(cfg.Provider.Timeout)
	if err != nil {
		return nil, nil, err
	}
	base, err := embedder.NewOllama(cfg.Memory.EmbedModel, cfg.Memory.EmbedBaseURL, timeout)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Memory.CacheSize == 0 {
		return base, func() {}, nil
	}
	cached, err := embedder.NewCached(base, int64(cfg.Memory.CacheSize))
	if err != nil {
		return nil, nil, err
	}
	return cached, cached.Close, nil
}

// OpenIndex opens the configured vector index backend.
func OpenIndex(cfg *config.Config, emb memory.Embedder) (memory.Index, error) {
	switch cfg.Memory.Backend {
	case "sqlite":
		if cfg.Memory.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Memory.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		return sqlite.Open(cfg.Memory.Path)
	case "chromem":
		return chromem.Open(chromem.Config{
			Path:       cfg.Memory.Path,
			Collection: cfg.Memory.Collection,
			Compress:   true,
		}, emb)
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Memory.Backend)
	}
}

// Stack is everything a command needs to talk to the fact store.
type Stack struct {
	Config  *config.Config
	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Bus     *event.Bus
	Store   *memory.Store
	closers []func()
}

// Open builds the logger, metrics, hooks, embedder and store for cfg.
func Open(cfg *config.Config) (*Stack, error) {
	s := &Stack{Config: cfg}

	logger, err := BuildLogger(cfg)
	if err != nil {
		return nil, err
	}
	s.Logger = logger
	s.closers = append(s.closers, func() { logger.Close() })

	metrics, flush := BuildMetrics(cfg, logger)
	s.Metrics = metrics
	s.closers = append(s.closers, flush)

	bus, err := event.BuildBus(cfg.Hooks, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Bus = bus

	emb, closeEmb, err := BuildEmbedder(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closeEmb)

	idx, err := OpenIndex(cfg, emb)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Store = memory.NewStore(idx, emb,
		memory.Config{DuplicateThreshold: float32(cfg.Memory.DuplicateThreshold)},
		memory.WithLogger(logger),
		memory.WithMetrics(metrics),
	)
	s.closers = append(s.closers, func() { s.Store.Close() })
	return s, nil
}

// Runtime creates a chat runtime over the stack's store, generating with p.
func (s *Stack) Runtime(p provider.Provider) *agent.Runtime {
	return agent.NewRuntime(s.Config, p, s.Store, s.Logger,
		agent.WithEventBus(s.Bus),
		agent.WithMetrics(s.Metrics),
	)
}

// Close releases resources in reverse order of acquisition.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
