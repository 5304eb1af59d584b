// Package config loads process configuration: defaults, then an optional
// YAML file, then environment variables, strongest last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all process configuration.
type Config struct {
	// Server
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Data locations
	DataDir       string `yaml:"data_dir"`
	WorkspacePath string `yaml:"workspace_path"`

	// Document cache
	CacheMaxItems  int           `yaml:"cache_max_items"`
	CacheMaxWeight int           `yaml:"cache_max_weight"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	EnableCORS    bool `yaml:"enable_cors"`
	WatchStores   bool `yaml:"watch_stores"`

	// Tracing
	OTLPEndpoint      string  `yaml:"otlp_endpoint"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`
}

// LoadConfig builds the configuration: defaults, then the YAML file named
// by PIMBLE_CONFIG (if any), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("PIMBLE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".pimble")
	return &Config{
		ServerAddress:  ":8090",
		Environment:    "development",
		DataDir:        dataDir,
		WorkspacePath:  filepath.Join(dataDir, "workspace.json"),
		CacheMaxItems:  1024,
		CacheMaxWeight: 1 << 20,
		CacheTTL:       10 * time.Minute,
		LogLevel:       "info",
		EnableMetrics:  true,
		EnableTracing:  false,
		EnableCORS:     true,
		WatchStores:    true,
		OTLPEndpoint:   "localhost:4317",
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.ServerAddress = getEnv("PIMBLE_SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("PIMBLE_ENVIRONMENT", c.Environment)
	c.DataDir = getEnv("PIMBLE_DATA_DIR", c.DataDir)
	c.WorkspacePath = getEnv("PIMBLE_WORKSPACE_PATH", c.WorkspacePath)
	c.CacheMaxItems = getEnvInt("PIMBLE_CACHE_MAX_ITEMS", c.CacheMaxItems)
	c.CacheMaxWeight = getEnvInt("PIMBLE_CACHE_MAX_WEIGHT", c.CacheMaxWeight)
	c.CacheTTL = getEnvDuration("PIMBLE_CACHE_TTL", c.CacheTTL)
	c.LogLevel = getEnv("PIMBLE_LOG_LEVEL", c.LogLevel)
	c.EnableMetrics = getEnvBool("PIMBLE_ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("PIMBLE_ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("PIMBLE_ENABLE_CORS", c.EnableCORS)
	c.WatchStores = getEnvBool("PIMBLE_WATCH_STORES", c.WatchStores)
	c.OTLPEndpoint = getEnv("PIMBLE_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.TracingSampleRate = getEnvFloat("PIMBLE_TRACING_SAMPLE_RATE", c.TracingSampleRate)
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.WorkspacePath == "" {
		return fmt.Errorf("workspace path cannot be empty")
	}
	if c.CacheMaxItems < 0 || c.CacheMaxWeight < 0 {
		return fmt.Errorf("cache bounds cannot be negative")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be within [0, 1]")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
