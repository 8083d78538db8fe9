// Package config loads driftbot configuration from ~/.driftbot/config.json
// with environment overrides for secrets.
package config

import "time"

// LLMConfig selects the AI provider and model parameters.
type LLMConfig struct {
	Provider    string  `json:"provider"`    // "openai" | "anthropic"
	APIKey      string  `json:"apiKey"`      // overridden by OPENAI_API_KEY / ANTHROPIC_API_KEY
	APIBase     string  `json:"apiBase"`     // empty = provider default
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float32 `json:"temperature"`
}

// HistoryConfig selects the storage backend and trim window.
type HistoryConfig struct {
	Backend     string `json:"backend"` // "memory" | "file" | "sqlite"
	Dir         string `json:"dir"`     // file backend
	Path        string `json:"path"`    // sqlite backend
	MaxMessages int    `json:"maxMessages"`
}

// ToolsConfig tunes the orchestration loop.
type ToolsConfig struct {
	MaxRounds int  `json:"maxRounds"`
	EnableWeb bool `json:"enableWeb"` // register the fetch_url tool
}

// TelegramConfig configures the reference bot.
type TelegramConfig struct {
	Token     string   `json:"token"` // overridden by TELEGRAM_BOT_TOKEN
	AllowFrom []string `json:"allowFrom"`
}

// RetentionConfig schedules pruning of idle conversations.
type RetentionConfig struct {
	// MaxAge is a Go duration string; empty or "0" disables pruning.
	MaxAge string `json:"maxAge"`
	// Schedule is a cron expression; default "@hourly".
	Schedule string `json:"schedule"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel     string          `json:"logLevel"` // overridden by DRIFTBOT_LOG_LEVEL
	SystemPrompt string          `json:"systemPrompt"`
	LLM          LLMConfig       `json:"llm"`
	History      HistoryConfig   `json:"history"`
	Tools        ToolsConfig     `json:"tools"`
	Telegram     TelegramConfig  `json:"telegram"`
	Retention    RetentionConfig `json:"retention"`
}

const defaultSystemPrompt = "You are an AI assistant that helps users manage projects. " +
	"Your task is to understand the user's intent and call the appropriate " +
	"function to handle their request."

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		SystemPrompt: defaultSystemPrompt,
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		History: HistoryConfig{
			Backend:     "memory",
			MaxMessages: 50,
		},
		Tools: ToolsConfig{
			MaxRounds: 5,
			EnableWeb: false,
		},
		Retention: RetentionConfig{
			Schedule: "@hourly",
		},
	}
}

// RetentionMaxAge parses Retention.MaxAge; zero disables pruning.
func (c *Config) RetentionMaxAge() time.Duration {
	if c.Retention.MaxAge == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Retention.MaxAge)
	if err != nil {
		return 0
	}
	return d
}
