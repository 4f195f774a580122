package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads configuration from environment variables and an optional
// config file. Environment variables (INKFORGE_ prefix, underscores for
// nesting) take precedence over file values. Returns a populated Config
// or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INKFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("generation.image_model", "gemini-3-pro-image-preview")
	v.SetDefault("generation.embedding_model", "text-embedding-004")
	v.SetDefault("generation.request_timeout", 5*time.Minute)
	v.SetDefault("generation.status_timeout", 30*time.Second)
	v.SetDefault("generation.result_timeout", 10*time.Minute)

	v.SetDefault("queue.concurrency", 3)

	v.SetDefault("batch.chunk_size", 10)
	v.SetDefault("batch.poll_interval", 5*time.Minute)

	v.SetDefault("vectorizer.base_url", "http://localhost:8000")
	v.SetDefault("vectorizer.poll_interval", 5*time.Second)

	v.SetDefault("dedupe.similarity_threshold", 0.82)

	v.SetDefault("storage.assets_dir", "assets")
}
