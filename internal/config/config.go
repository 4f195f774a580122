package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Queue      QueueConfig      `mapstructure:"queue"      validate:"required"`
	Batch      BatchConfig      `mapstructure:"batch"      validate:"required"`
	Vectorizer VectorizerConfig `mapstructure:"vectorizer" validate:"required"`
	Dedupe     DedupeConfig     `mapstructure:"dedupe"     validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"    validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database related settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// GenerationConfig contains settings for the external generation service.
type GenerationConfig struct {
	APIKey         string        `mapstructure:"api_key"         validate:"required"`
	ImageModel     string        `mapstructure:"image_model"     validate:"required"`
	EmbeddingModel string        `mapstructure:"embedding_model" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`
	// StatusTimeout bounds batch status polls, which read only a small
	// response prefix and should fail fast.
	StatusTimeout time.Duration `mapstructure:"status_timeout" validate:"required"`
	// ResultTimeout bounds batch result downloads, which can run to
	// hundreds of megabytes.
	ResultTimeout time.Duration `mapstructure:"result_timeout" validate:"required"`
}

// QueueConfig contains scheduler settings for the live generation path.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"required,min=1,max=10"`
}

// BatchConfig contains settings for the asynchronous bulk generation path.
type BatchConfig struct {
	ChunkSize    int           `mapstructure:"chunk_size"    validate:"required,min=1"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`
}

// VectorizerConfig contains settings for the external vector tracing service.
type VectorizerConfig struct {
	BaseURL      string        `mapstructure:"base_url"      validate:"required,url"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`
}

// DedupeConfig contains settings for the near-duplicate detection engine.
type DedupeConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"required,gt=0,lt=1"`
}

// StorageConfig contains settings for generated artifact storage.
type StorageConfig struct {
	AssetsDir string `mapstructure:"assets_dir" validate:"required"`
}
