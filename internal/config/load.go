package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default values applied before the config file and environment are read.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultTextModel       = "gemini-2.0-flash"
	DefaultImageModel      = "imagen-3.0-generate-002"
	DefaultTemperature     = 0.7
	DefaultGeneralCooldown = 2 * time.Second
	DefaultImageCooldown   = 15 * time.Second
	DefaultStorageDriver   = "memory"
	DefaultMaxBytes        = 5 << 20
	DefaultEnvFile         = ".env"
)

// ErrInvalidConfig wraps every load or validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads configuration with the following precedence, highest first:
// environment variables (SCRY_ prefix, "." replaced by "_"), the YAML file
// at path when non-empty, then defaults. A .env file is loaded into the
// process environment first; existing variables are never overwritten. When
// envFiles is empty DefaultEnvFile is tried. Missing env files are ignored.
//
// The Gemini key is additionally read from GEMINI_API_KEY and API_KEY.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file %s: %v", ErrInvalidConfig, path, err)
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("llm.gemini_api_key", "SCRY_LLM_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("%w: bind gemini key: %v", ErrInvalidConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalidConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.text_model", DefaultTextModel)
	v.SetDefault("llm.image_model", DefaultImageModel)
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("llm.prompt_dir", "")
	v.SetDefault("llm.request_timeout", 0)

	v.SetDefault("gate.general_cooldown", DefaultGeneralCooldown)
	v.SetDefault("gate.image_cooldown", DefaultImageCooldown)

	v.SetDefault("storage.driver", DefaultStorageDriver)
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.max_bytes", DefaultMaxBytes)
	v.SetDefault("storage.ttl", 0)
}

func loadEnvFiles(files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%w: load env file %s: %v", ErrInvalidConfig, f, err)
		}
	}
	return nil
}
