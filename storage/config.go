package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
)

// Config holds storage engine configuration
type Config struct {
	// Buffer Pool Configuration
	BufferPoolSize uint32 `json:"buffer_pool_size" toml:"buffer_pool_size"` // Number of frames in the pool
	ReplacerPolicy string `json:"replacer_policy" toml:"replacer_policy"`   // Replacement policy (lruk, lru)
	ReplacerK      uint32 `json:"replacer_k" toml:"replacer_k"`             // History depth for LRU-K

	// Disk Configuration
	DataDirectory   string `json:"data_directory" toml:"data_directory"`     // Directory for data files
	PageCompression string `json:"page_compression" toml:"page_compression"` // Compression algorithm (none, lz4, snappy)
	UseMmap         bool   `json:"use_mmap" toml:"use_mmap"`                 // Memory-mapped disk manager

	// Performance Configuration
	EnableMetrics bool   `json:"enable_metrics" toml:"enable_metrics"` // Whether Engine.Close logs the metrics; they are collected either way
	LogLevel      string `json:"log_level" toml:"log_level"`           // Log level (debug, info, warn, error)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BufferPoolSize:  100,
		ReplacerPolicy:  "lruk",
		ReplacerK:       DefaultReplacerK,
		DataDirectory:   "./data",
		PageCompression: "none",
		UseMmap:         false,
		EnableMetrics:   true,
		LogLevel:        "info",
	}
}

// LoadConfigFromFile loads configuration from a JSON or TOML file, chosen by
// the file extension
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if strings.HasSuffix(path, ".toml") {
		err = toml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Falls back to default values if environment variables are not set.
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	// Buffer Pool
	if val := os.Getenv("FORGE_BUFFER_POOL_SIZE"); val != "" {
		if size, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.BufferPoolSize = uint32(size)
		}
	}

	if val := os.Getenv("FORGE_REPLACER_POLICY"); val != "" {
		config.ReplacerPolicy = val
	}

	if val := os.Getenv("FORGE_REPLACER_K"); val != "" {
		if k, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.ReplacerK = uint32(k)
		}
	}

	// Disk
	if val := os.Getenv("FORGE_DATA_DIRECTORY"); val != "" {
		config.DataDirectory = val
	}

	if val := os.Getenv("FORGE_PAGE_COMPRESSION"); val != "" {
		config.PageCompression = val
	}

	if val := os.Getenv("FORGE_USE_MMAP"); val != "" {
		config.UseMmap = val == "true" || val == "1"
	}

	// Performance
	if val := os.Getenv("FORGE_ENABLE_METRICS"); val != "" {
		config.EnableMetrics = val == "true" || val == "1"
	}

	if val := os.Getenv("FORGE_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	return config
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BufferPoolSize == 0 {
		return fmt.Errorf("buffer pool size must be greater than 0")
	}

	switch c.ReplacerPolicy {
	case "lruk", "lru":
	default:
		return fmt.Errorf("unknown replacer policy: %s (must be lruk or lru)", c.ReplacerPolicy)
	}

	if c.ReplacerPolicy == "lruk" && c.ReplacerK == 0 {
		return fmt.Errorf("replacer k must be at least 1")
	}

	if c.DataDirectory == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if _, err := ParseCompressionType(c.PageCompression); err != nil {
		return err
	}

	if c.UseMmap && c.PageCompression != "none" {
		return fmt.Errorf("page compression is not supported with the mmap disk manager")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
