package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "aiyo.yaml"

// Load loads the configuration from aiyo.yaml in dir
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile loads the configuration from an explicit path.
// A missing file yields the default configuration.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content = []byte(interpolateEnv(string(content)))

	// Judge is on unless the file says otherwise.
	cfg := Config{Judge: JudgeConfig{Enabled: true}}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	return &cfg, nil
}

// interpolateEnv replaces ${env.VAR} and ${VAR} with environment values
func interpolateEnv(content string) string {
	envPattern := regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	varPattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(varName, "env.") {
			return match
		}
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

// Default returns the configuration used when no aiyo.yaml exists.
func Default() *Config {
	cfg := &Config{Judge: JudgeConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "aiyo"
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "ollama"
	}
	if cfg.Provider.Model == "" {
		switch cfg.Provider.Name {
		case "anthropic":
			cfg.Provider.Model = "claude-sonnet-4-20250514"
		default:
			cfg.Provider.Model = "gemma2:9b"
		}
	}
	if cfg.Provider.Name == "ollama" && cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "http://localhost:11434"
	}
	if cfg.Provider.NumCtx == 0 {
		cfg.Provider.NumCtx = 4096
	}
	if cfg.Provider.Temperature == 0 {
		cfg.Provider.Temperature = 0.7
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 1024
	}
	if cfg.Provider.Timeout == "" {
		cfg.Provider.Timeout = "2m"
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 2
	}

	if cfg.Judge.MaxTokens == 0 {
		cfg.Judge.MaxTokens = 3
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "chromem"
	}
	if cfg.Memory.Path == "" {
		switch cfg.Memory.Backend {
		case "sqlite":
			cfg.Memory.Path = "storage/facts.db"
		default:
			cfg.Memory.Path = "storage/chroma_db"
		}
	}
	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "aiyo_knowledge"
	}
	if cfg.Memory.Embedder == "" {
		cfg.Memory.Embedder = "ollama"
	}
	if cfg.Memory.EmbedModel == "" {
		cfg.Memory.EmbedModel = "all-minilm"
	}
	if cfg.Memory.EmbedBaseURL == "" {
		cfg.Memory.EmbedBaseURL = cfg.Provider.BaseURL
	}
	if cfg.Memory.EmbedBaseURL == "" {
		cfg.Memory.EmbedBaseURL = "http://localhost:11434"
	}
	if cfg.Memory.DuplicateThreshold == 0 {
		cfg.Memory.DuplicateThreshold = 0.25
	}
	if cfg.Memory.RelevanceThreshold == 0 {
		cfg.Memory.RelevanceThreshold = 1.5
	}
	if cfg.Memory.SearchLimit == 0 {
		cfg.Memory.SearchLimit = 3
	}
	if cfg.Memory.MaxSaves == 0 {
		cfg.Memory.MaxSaves = 1
	}

	if cfg.Chat.MaxHistoryTokens == 0 {
		cfg.Chat.MaxHistoryTokens = 6000
	}
	if cfg.Chat.TypingDelay == "" {
		cfg.Chat.TypingDelay = "5ms"
	}
	if cfg.Chat.TurnTimeout == "" {
		cfg.Chat.TurnTimeout = "5m"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}

	// Load API key from environment if not set
	if cfg.Provider.Name == "anthropic" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}
