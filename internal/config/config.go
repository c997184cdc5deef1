package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log     LogConfig     `mapstructure:"log" validate:"required"`
	LLM     LLMConfig     `mapstructure:"llm" validate:"required"`
	Gate    GateConfig    `mapstructure:"gate" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// GeminiAPIKey is optional at load time. A missing key is reported as
	// generation.ErrNotConfigured when the backend is constructed.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	TextModel   string  `mapstructure:"text_model" validate:"required"`
	ImageModel  string  `mapstructure:"image_model" validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`

	// PromptDir optionally overrides the built-in prompt templates.
	PromptDir string `mapstructure:"prompt_dir"`

	// RequestTimeout bounds a single backend call. Zero disables it.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

// GateConfig holds the request gate cooldowns.
type GateConfig struct {
	GeneralCooldown time.Duration `mapstructure:"general_cooldown" validate:"gt=0"`
	ImageCooldown   time.Duration `mapstructure:"image_cooldown" validate:"gt=0"`
}

// StorageConfig selects and configures the response cache store.
type StorageConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,oneof=memory sqlite redis"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	RedisURL   string `mapstructure:"redis_url" validate:"required_if=Driver redis"`

	// MaxBytes caps the memory store. Zero means unlimited.
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gte=0"`

	// TTL expires entries in stores that support it. Zero means entries
	// live until the session ends.
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}
