package config

// Config represents the main configuration (aiyo.yaml)
type Config struct {
	Name      string          `yaml:"name" json:"name"`
	Provider  ProviderConfig  `yaml:"provider" json:"provider"`
	Judge     JudgeConfig     `yaml:"judge" json:"judge"`
	Memory    MemoryConfig    `yaml:"memory" json:"memory"`
	Chat      ChatConfig      `yaml:"chat" json:"chat"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Hooks     HooksConfig     `yaml:"hooks" json:"hooks"`
}

// ProviderConfig configures the generation backend
type ProviderConfig struct {
	Name        string  `yaml:"name" json:"name"`                             // ollama, anthropic
	Model       string  `yaml:"model" json:"model"`                           // gemma2:9b, claude-sonnet-4-20250514, etc.
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"` // ollama server address
	APIKey      string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`   // anthropic only
	NumCtx      int     `yaml:"num_ctx" json:"num_ctx"`                       // context window
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Timeout     string  `yaml:"timeout" json:"timeout"` // per request, e.g. "2m"
	MaxRetries  int     `yaml:"max_retries" json:"max_retries"`
}

// JudgeConfig configures the topic continuity check.
type JudgeConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Model     string `yaml:"model,omitempty" json:"model,omitempty"` // empty = provider model
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// MemoryConfig configures the fact store
type MemoryConfig struct {
	Backend    string `yaml:"backend" json:"backend"`       // chromem, sqlite
	Path       string `yaml:"path" json:"path"`             // directory (chromem) or file (sqlite)
	Collection string `yaml:"collection" json:"collection"` // collection / table namespace

	Embedder     string `yaml:"embedder" json:"embedder"` // ollama
	EmbedModel   string `yaml:"embed_model" json:"embed_model"`
	EmbedBaseURL string `yaml:"embed_base_url,omitempty" json:"embed_base_url,omitempty"`
	CacheSize    int    `yaml:"cache_size" json:"cache_size"` // cached embeddings, 0 disables

	DuplicateThreshold float64 `yaml:"duplicate_threshold" json:"duplicate_threshold"`
	RelevanceThreshold float64 `yaml:"relevance_threshold" json:"relevance_threshold"` // negative disables filtering
	SearchLimit        int     `yaml:"search_limit" json:"search_limit"`
	MaxSaves           int     `yaml:"max_saves" json:"max_saves"` // SAVE directives honoured per response
}

// ChatConfig configures the interactive session
type ChatConfig struct {
	SystemPrompt     string `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"` // empty = built-in prompt
	MaxHistoryTokens int    `yaml:"max_history_tokens" json:"max_history_tokens"`
	TypingDelay      string `yaml:"typing_delay" json:"typing_delay"` // e.g. "5ms", "0" disables
	TurnTimeout      string `yaml:"turn_timeout" json:"turn_timeout"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"` // debug, info, warn, error
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// TelemetryConfig configures metrics export.
type TelemetryConfig struct {
	MetricsFile string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"` // JSONL, written on exit
}

// HooksConfig configures memory lifecycle hooks.
type HooksConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Hooks   []HookConfig `yaml:"hooks" json:"hooks"`
}

// HookConfig defines a single hook.
type HookConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`     // shell, webhook, log
	Events   []string `yaml:"events" json:"events"` // event types to match
	Blocking bool     `yaml:"blocking" json:"blocking"`
	Command  string   `yaml:"command,omitempty" json:"command,omitempty"` // for shell hooks
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`         // for webhook hooks
	Level    string   `yaml:"level,omitempty" json:"level,omitempty"`     // for log hooks (debug, info, warn)
}
