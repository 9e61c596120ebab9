// Package config manages the global heartline configuration
// (~/.config/heartline/config.toml) and the data directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// GlobalConfig holds user-wide settings.
type GlobalConfig struct {
	Provider   string           `toml:"provider" env:"HEARTLINE_PROVIDER"`
	Embedder   string           `toml:"embedder" env:"HEARTLINE_EMBEDDER"`
	Model      string           `toml:"model" env:"HEARTLINE_MODEL"`
	DataDir    string           `toml:"data_dir" env:"HEARTLINE_DATA_DIR"`
	Keys       KeysConfig       `toml:"keys"`
	Ollama     OllamaConfig     `toml:"ollama"`
	OpenRouter OpenRouterConfig `toml:"openrouter"`
	Reply      ReplyConfig      `toml:"reply"`
	Prompt     PromptConfig     `toml:"prompt"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Log        LogConfig        `toml:"log"`
}

type KeysConfig struct {
	Anthropic  string `toml:"anthropic" env:"ANTHROPIC_API_KEY"`
	OpenAI     string `toml:"openai" env:"OPENAI_API_KEY"`
	OpenRouter string `toml:"openrouter" env:"OPENROUTER_API_KEY"`
	Gemini     string `toml:"gemini" env:"GEMINI_API_KEY"`
}

type OllamaConfig struct {
	Host            string `toml:"host" env:"OLLAMA_HOST"`
	EmbedModel      string `toml:"embed_model"`
	CompletionModel string `toml:"completion_model"`
}

// OpenRouterConfig points the OpenAI-compatible client at OpenRouter.
type OpenRouterConfig struct {
	BaseURL string `toml:"base_url"`
	Referer string `toml:"referer"`
	Title   string `toml:"title"`
}

// ReplyConfig controls the reply pipeline tiers, cache and rolling window.
type ReplyConfig struct {
	// GenerativeEnabled turns the primary (model-backed) tier on.
	GenerativeEnabled bool    `toml:"generative_enabled" env:"HEARTLINE_GENERATIVE"`
	TimeoutMS         int     `toml:"timeout_ms" env:"HEARTLINE_TIMEOUT_MS"`
	MinLength         int     `toml:"min_length"`
	MaxLength         int     `toml:"max_length"`
	MaxTokens         int     `toml:"max_tokens"`
	Temperature       float64 `toml:"temperature"`
	RatePerMinute     int     `toml:"rate_per_minute"`
	CacheSize         int     `toml:"cache_size"`
	CacheEvictBatch   int     `toml:"cache_evict_batch"`
	WindowSize        int     `toml:"window_size"`
	TopKMemories      int     `toml:"top_k_memories"`
	MinRelevance      float64 `toml:"min_relevance"`
	Seed              int64   `toml:"seed"`
}

// Timeout returns the primary-tier timeout as a duration.
func (r ReplyConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

type PromptConfig struct {
	MaxTokens      int `toml:"max_tokens"`
	HistoryTurns   int `toml:"history_turns"`
	SemanticRecall int `toml:"semantic_recall"`
}

// TelemetryConfig selects where reply events go: "none", "log" or "jsonl".
type TelemetryConfig struct {
	Sink string `toml:"sink" env:"HEARTLINE_TELEMETRY"`
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"HEARTLINE_LOG_LEVEL"`
	Format string `toml:"format"`
}

// DefaultGlobal returns sensible defaults.
func DefaultGlobal() GlobalConfig {
	return GlobalConfig{
		Provider: "claude",
		Embedder: "ollama",
		Ollama: OllamaConfig{
			Host:            "http://localhost:11434",
			EmbedModel:      "nomic-embed-text",
			CompletionModel: "llama3.2",
		},
		OpenRouter: OpenRouterConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Title:   "heartline",
		},
		Reply: ReplyConfig{
			GenerativeEnabled: false,
			TimeoutMS:         8000,
			MinLength:         10,
			MaxLength:         500,
			MaxTokens:         250,
			Temperature:       0.8,
			RatePerMinute:     30,
			CacheSize:         1000,
			CacheEvictBatch:   100,
			WindowSize:        10,
			TopKMemories:      2,
			MinRelevance:      0.1,
		},
		Prompt: PromptConfig{
			MaxTokens:      1500,
			HistoryTurns:   4,
			SemanticRecall: 3,
		},
		Telemetry: TelemetryConfig{
			Sink: "log",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Home returns the heartline config directory. HEARTLINE_HOME overrides it.
func Home() (string, error) {
	if h := os.Getenv("HEARTLINE_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "heartline"), nil
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.toml"), nil
}

// LoadGlobal loads the global config, applying defaults for any missing values
// and environment overrides last.
func LoadGlobal() (GlobalConfig, error) {
	cfg := DefaultGlobal()

	path, err := GlobalConfigPath()
	if err != nil {
		return cfg, nil // Return defaults if we can't determine home dir.
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config: load global: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: env overrides: %w", err)
	}
	return cfg, nil
}

// SaveGlobal writes the global config to disk.
func SaveGlobal(cfg GlobalConfig) error {
	path, err := GlobalConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create global config: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// DataDirPath returns the directory holding the database and telemetry files.
func DataDirPath(cfg GlobalConfig) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "data"), nil
}

// DBPath returns the path to the SQLite database.
func DBPath(cfg GlobalConfig) (string, error) {
	dir, err := DataDirPath(cfg)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "heartline.db"), nil
}

// TelemetryPath returns the JSONL events file, defaulting into the data dir.
func TelemetryPath(cfg GlobalConfig) (string, error) {
	if cfg.Telemetry.Path != "" {
		return cfg.Telemetry.Path, nil
	}
	dir, err := DataDirPath(cfg)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.jsonl"), nil
}

// APIKey returns the configured key for the given provider name.
func (c GlobalConfig) APIKey(provider string) string {
	switch provider {
	case "claude":
		return c.Keys.Anthropic
	case "openai":
		return c.Keys.OpenAI
	case "openrouter":
		return c.Keys.OpenRouter
	case "gemini":
		return c.Keys.Gemini
	default:
		return ""
	}
}
