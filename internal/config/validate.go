package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	aiyoErrors "github.com/aiyo-oss/aiyo/internal/errors"
)

// Validate checks a loaded configuration for values the runtime cannot use.
func Validate(cfg *Config) error {
	var errors []string

	validProviders := map[string]bool{
		"ollama":    true,
		"anthropic": true,
	}
	if !validProviders[cfg.Provider.Name] {
		errors = append(errors, fmt.Sprintf("invalid provider: %s", cfg.Provider.Name))
	}
	if cfg.Provider.Name == "ollama" {
		if _, err := url.Parse(cfg.Provider.BaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid provider.base_url: %v", err))
		}
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("provider.temperature must be in [0, 2], got %g", cfg.Provider.Temperature))
	}
	if cfg.Provider.MaxRetries < 0 {
		errors = append(errors, "provider.max_retries must not be negative")
	}

	validBackends := map[string]bool{
		"chromem": true,
		"sqlite":  true,
	}
	if !validBackends[cfg.Memory.Backend] {
		errors = append(errors, fmt.Sprintf("invalid memory backend: %s", cfg.Memory.Backend))
	}
	if cfg.Memory.Embedder != "ollama" {
		errors = append(errors, fmt.Sprintf("invalid memory embedder: %s", cfg.Memory.Embedder))
	}
	if cfg.Memory.DuplicateThreshold <= 0 || cfg.Memory.DuplicateThreshold > 2 {
		errors = append(errors, fmt.Sprintf("memory.duplicate_threshold must be in (0, 2], got %g", cfg.Memory.DuplicateThreshold))
	}
	if cfg.Memory.RelevanceThreshold > 2 {
		errors = append(errors, fmt.Sprintf("memory.relevance_threshold must be at most 2, got %g", cfg.Memory.RelevanceThreshold))
	}
	if cfg.Memory.SearchLimit < 1 {
		errors = append(errors, "memory.search_limit must be at least 1")
	}
	if cfg.Memory.CacheSize < 0 {
		errors = append(errors, "memory.cache_size must not be negative")
	}

	for key, value := range map[string]string{
		"provider.timeout":  cfg.Provider.Timeout,
		"chat.typing_delay": cfg.Chat.TypingDelay,
		"chat.turn_timeout": cfg.Chat.TurnTimeout,
	} {
		if _, err := ParseDuration(value); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s: %s", key, value))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errors = append(errors, fmt.Sprintf("invalid logging level: %s", cfg.Logging.Level))
	}

	if cfg.Hooks.Enabled {
		errors = append(errors, validateHooks(cfg.Hooks.Hooks)...)
	}

	if len(errors) > 0 {
		return aiyoErrors.New(aiyoErrors.CodeConfigInvalid, "config validation failed: "+strings.Join(errors, "; ")).
			WithSuggestion("Fix the listed keys in aiyo.yaml and run 'aiyo config validate'")
	}
	return nil
}

func validateHooks(hooks []HookConfig) []string {
	var errors []string
	for i, h := range hooks {
		if h.Name == "" {
			errors = append(errors, fmt.Sprintf("hooks[%d]: name is required", i))
		}
		switch h.Type {
		case "shell":
			if h.Command == "" {
				errors = append(errors, fmt.Sprintf("hook %s: command is required for shell hooks", h.Name))
			}
		case "webhook":
			if h.URL == "" {
				errors = append(errors, fmt.Sprintf("hook %s: url is required for webhook hooks", h.Name))
			}
		case "log":
		default:
			errors = append(errors, fmt.Sprintf("hook %s: invalid type %q", h.Name, h.Type))
		}
	}
	return errors
}

// ParseDuration parses a duration string, treating "" and "0" as zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
