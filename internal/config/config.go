// Package config provides unified configuration loading for the coding engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the coding engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Cache         CacheConfig         `yaml:"cache"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Vector        VectorConfig        `yaml:"vector"`
	AI            AIConfig            `yaml:"ai"`
	Suggest       SuggestConfig       `yaml:"suggest"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// CatalogConfig holds fee-catalog source settings.
type CatalogConfig struct {
	// Sources are tried in order; the first readable one wins.
	Sources []string `yaml:"sources"`
	// TimeVariants optionally overrides the built-in assessment-level to
	// time-slot code table. Keyed by assessment level, then slot name.
	TimeVariants map[string]map[string]string `yaml:"time_variants"`
}

// CacheConfig holds query-cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Dimension     int           `yaml:"dimension"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheSize     int           `yaml:"cache_size"`
	CachePrefixLen int          `yaml:"cache_prefix_len"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AIConfig holds settings for the LLM collaborators (context extraction
// and explanation generation).
type AIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SuggestConfig holds orchestrator settings.
type SuggestConfig struct {
	RetrievalTopK   int           `yaml:"retrieval_top_k"`
	MaxSuggestions  int           `yaml:"max_suggestions"`
	ConfidenceFloor float64       `yaml:"confidence_floor"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			Sources: []string{
				"data/fee_catalog.csv",
				"/etc/coding-engine/fee_catalog.csv",
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "qwen/qwen3-embedding-8b",
			Dimension:      768,
			Timeout:        15 * time.Second,
			CacheSize:      2000,
			CachePrefixLen: 256,
		},
		Vector: VectorConfig{
			Enabled: true,
		},
		AI: AIConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "anthropic/claude-3.5-haiku",
			Timeout: 20 * time.Second,
		},
		Suggest: SuggestConfig{
			RetrievalTopK:   20,
			MaxSuggestions:  10,
			ConfidenceFloor: 0.3,
			CacheTTL:        5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Catalog.Sources) == 0 {
		return fmt.Errorf("at least one catalog source is required")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Suggest.RetrievalTopK < 1 {
		return fmt.Errorf("retrieval_top_k must be positive")
	}

	if c.Suggest.MaxSuggestions < 1 || c.Suggest.MaxSuggestions > 20 {
		return fmt.Errorf("max_suggestions must be between 1 and 20")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Catalog.Sources = append([]string{v}, cfg.Catalog.Sources...)
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}

	if v := os.Getenv("VECTOR_ENABLED"); v != "" {
		cfg.Vector.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
