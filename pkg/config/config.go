// Package config handles NornicGraph configuration via YAML files and environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--data-dir, --log-level, etc.)
//  2. Environment variables (NORNICGRAPH_*)
//  3. Config file (config.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	config.ApplyEnvVars(cfg)
//
//	fmt.Printf("Data dir: %s\n", cfg.Storage.DataDir)
//
// Environment Variables (all use NORNICGRAPH_ prefix):
//
// Storage:
//   - NORNICGRAPH_DATA_DIR="./data"
//   - NORNICGRAPH_IN_MEMORY=true
//   - NORNICGRAPH_SYNC_WRITES=true
//   - NORNICGRAPH_LOW_MEMORY=true
//
// Query:
//   - NORNICGRAPH_PATTERN_CACHE_SIZE=256
//   - NORNICGRAPH_MAX_WALK_DEPTH=16
//
// Logging:
//   - NORNICGRAPH_LOG_LEVEL="info"
//   - NORNICGRAPH_LOG_FORMAT="json"
//   - NORNICGRAPH_LOG_OUTPUT="stderr"
//
// Metrics:
//   - NORNICGRAPH_METRICS_ENABLED=true
//   - NORNICGRAPH_METRICS_ADDRESS=":9464"
//
// Runtime:
//   - NORNICGRAPH_MEMORY_LIMIT="2GB"
//   - NORNICGRAPH_GC_PERCENT=100
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all NornicGraph configuration.
//
// Configuration is organized into logical sections:
//   - Storage: BadgerDB engine settings
//   - Query: predicate evaluation and walk limits
//   - Logging: logrus level, format and destination
//   - Metrics: Prometheus collectors and the /metrics listener
//   - Memory: Go runtime memory tuning
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
type Config struct {
	Storage StorageConfig
	Query   QueryConfig
	Logging LoggingConfig
	Metrics MetricsConfig
	Memory  MemoryConfig
}

// StorageConfig holds storage engine settings.
type StorageConfig struct {
	// DataDir is the directory for BadgerDB files.
	// Env: NORNICGRAPH_DATA_DIR
	DataDir string

	// InMemory runs the engine without persistence.
	// Env: NORNICGRAPH_IN_MEMORY
	InMemory bool

	// SyncWrites fsyncs after each write. 2-5x slower writes.
	// Env: NORNICGRAPH_SYNC_WRITES
	SyncWrites bool

	// LowMemory shrinks BadgerDB memtables and caches.
	// Env: NORNICGRAPH_LOW_MEMORY
	LowMemory bool
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	// PatternCacheSize bounds the compiled LIKE/REGEX pattern cache.
	// Env: NORNICGRAPH_PATTERN_CACHE_SIZE
	PatternCacheSize int

	// MaxWalkDepth is the default depth limit of multi-hop walks.
	// Env: NORNICGRAPH_MAX_WALK_DEPTH
	MaxWalkDepth uint32
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (trace, debug, info, warn, error)
	Level string
	// Format (json, text)
	Format string
	// Output path (stdout, stderr, or file path)
	Output string
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the query collectors.
	Enabled bool
	// Address is the listen address of the /metrics endpoint served by
	// "nornicgraph serve".
	Address string
}

// MemoryConfig holds Go runtime memory settings.
type MemoryConfig struct {
	// RuntimeLimit is the soft memory limit in bytes (0 = unlimited).
	// Env: NORNICGRAPH_MEMORY_LIMIT ("2GB", "512MB", ...)
	RuntimeLimit int64
	// GCPercent is the GOGC value (100 = Go default).
	// Env: NORNICGRAPH_GC_PERCENT
	GCPercent int
}

// LoadDefaults returns the built-in configuration.
func LoadDefaults() *Config {
	config := &Config{}

	config.Storage.DataDir = "./data"
	config.Storage.InMemory = false
	config.Storage.SyncWrites = false
	config.Storage.LowMemory = false

	config.Query.PatternCacheSize = 256
	config.Query.MaxWalkDepth = 16

	config.Logging.Level = "info"
	config.Logging.Format = "text"
	config.Logging.Output = "stderr"

	config.Metrics.Enabled = true
	config.Metrics.Address = ":9464"

	config.Memory.RuntimeLimit = 0
	config.Memory.GCPercent = 100

	return config
}

// LoadFromEnv returns the defaults overridden by NORNICGRAPH_* environment
// variables.
func LoadFromEnv() *Config {
	config := LoadDefaults()
	applyEnvVars(config)
	return config
}

// ApplyEnvVars overrides config with any NORNICGRAPH_* environment
// variables that are set. Call it after LoadFromFile so the environment
// wins over the file.
func ApplyEnvVars(config *Config) {
	applyEnvVars(config)
}

func applyEnvVars(config *Config) {
	// Storage
	config.Storage.DataDir = getEnv("NORNICGRAPH_DATA_DIR", config.Storage.DataDir)
	config.Storage.InMemory = getEnvBool("NORNICGRAPH_IN_MEMORY", config.Storage.InMemory)
	config.Storage.SyncWrites = getEnvBool("NORNICGRAPH_SYNC_WRITES", config.Storage.SyncWrites)
	config.Storage.LowMemory = getEnvBool("NORNICGRAPH_LOW_MEMORY", config.Storage.LowMemory)

	// Query
	if v := getEnvInt("NORNICGRAPH_PATTERN_CACHE_SIZE", 0); v > 0 {
		config.Query.PatternCacheSize = v
	}
	if v := getEnvInt("NORNICGRAPH_MAX_WALK_DEPTH", 0); v > 0 {
		config.Query.MaxWalkDepth = uint32(v)
	}

	// Logging
	config.Logging.Level = getEnv("NORNICGRAPH_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("NORNICGRAPH_LOG_FORMAT", config.Logging.Format)
	config.Logging.Output = getEnv("NORNICGRAPH_LOG_OUTPUT", config.Logging.Output)

	// Metrics
	config.Metrics.Enabled = getEnvBool("NORNICGRAPH_METRICS_ENABLED", config.Metrics.Enabled)
	config.Metrics.Address = getEnv("NORNICGRAPH_METRICS_ADDRESS", config.Metrics.Address)

	// Runtime
	if v := getEnv("NORNICGRAPH_MEMORY_LIMIT", ""); v != "" {
		config.Memory.RuntimeLimit = parseMemorySize(v)
	}
	config.Memory.GCPercent = getEnvInt("NORNICGRAPH_GC_PERCENT", config.Memory.GCPercent)
}

// Validate checks the configuration for values the engine cannot run with.
//
// Example:
//
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Configuration error: %v", err)
//	}
func (c *Config) Validate() error {
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("data dir is required unless in-memory mode is enabled")
	}
	if c.Query.PatternCacheSize <= 0 {
		return fmt.Errorf("invalid pattern cache size: %d", c.Query.PatternCacheSize)
	}
	if c.Query.MaxWalkDepth == 0 {
		return fmt.Errorf("max walk depth must be at least 1")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if c.Memory.GCPercent < -1 {
		return fmt.Errorf("invalid gc percent: %d", c.Memory.GCPercent)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	dataDir := c.Storage.DataDir
	if c.Storage.InMemory {
		dataDir = "(in-memory)"
	}
	return fmt.Sprintf(
		"Config{DataDir: %s, SyncWrites: %v, PatternCache: %d, Log: %s/%s, Metrics: %v}",
		dataDir, c.Storage.SyncWrites, c.Query.PatternCacheSize,
		c.Logging.Level, c.Logging.Format, c.Metrics.Enabled,
	)
}

// YAMLConfig represents the YAML configuration file structure.
type YAMLConfig struct {
	Storage struct {
		DataDir    string `yaml:"data_dir"`
		Path       string `yaml:"path"` // Alias for data_dir
		InMemory   bool   `yaml:"in_memory"`
		SyncWrites bool   `yaml:"sync_writes"`
		LowMemory  bool   `yaml:"low_memory"`
	} `yaml:"storage"`

	Query struct {
		PatternCacheSize int    `yaml:"pattern_cache_size"`
		MaxWalkDepth     uint32 `yaml:"max_walk_depth"`
	} `yaml:"query"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"metrics"`

	Memory struct {
		RuntimeLimit string `yaml:"runtime_limit"`
		GCPercent    int    `yaml:"gc_percent"`
	} `yaml:"memory"`
}

// LoadFromFile loads the defaults and overlays the YAML file at configPath.
// A missing file is not an error. Environment variables are not applied.
func LoadFromFile(configPath string) (*Config, error) {
	// Step 1: Start with built-in defaults
	config := LoadDefaults()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// === Storage Settings ===
	if yamlCfg.Storage.Path != "" {
		config.Storage.DataDir = yamlCfg.Storage.Path
	}
	if yamlCfg.Storage.DataDir != "" {
		config.Storage.DataDir = yamlCfg.Storage.DataDir
	}
	if yamlCfg.Storage.InMemory {
		config.Storage.InMemory = true
	}
	if yamlCfg.Storage.SyncWrites {
		config.Storage.SyncWrites = true
	}
	if yamlCfg.Storage.LowMemory {
		config.Storage.LowMemory = true
	}

	// === Query Settings ===
	if yamlCfg.Query.PatternCacheSize > 0 {
		config.Query.PatternCacheSize = yamlCfg.Query.PatternCacheSize
	}
	if yamlCfg.Query.MaxWalkDepth > 0 {
		config.Query.MaxWalkDepth = yamlCfg.Query.MaxWalkDepth
	}

	// === Logging Settings ===
	if yamlCfg.Logging.Level != "" {
		config.Logging.Level = yamlCfg.Logging.Level
	}
	if yamlCfg.Logging.Format != "" {
		config.Logging.Format = yamlCfg.Logging.Format
	}
	if yamlCfg.Logging.Output != "" {
		config.Logging.Output = yamlCfg.Logging.Output
	}

	// === Metrics Settings ===
	if yamlCfg.Metrics.Enabled != nil {
		config.Metrics.Enabled = *yamlCfg.Metrics.Enabled
	}
	if yamlCfg.Metrics.Address != "" {
		config.Metrics.Address = yamlCfg.Metrics.Address
	}

	// === Runtime Settings ===
	if yamlCfg.Memory.RuntimeLimit != "" {
		config.Memory.RuntimeLimit = parseMemorySize(yamlCfg.Memory.RuntimeLimit)
	}
	if yamlCfg.Memory.GCPercent != 0 {
		config.Memory.GCPercent = yamlCfg.Memory.GCPercent
	}

	return config, nil
}

// FindConfigFile searches for config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. ~/.nornicgraph/config.yaml
//  2. Same directory as the binary (config.yaml, nornicgraph.yaml)
//  3. Current working directory (config.yaml, nornicgraph.yaml)
//  4. ~/.config/nornicgraph/config.yaml (XDG)
func FindConfigFile() string {
	var candidates []string

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		candidates = append(candidates, filepath.Join(home, ".nornicgraph", "config.yaml"))
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(exeDir, "config.yaml"),
			filepath.Join(exeDir, "nornicgraph.yaml"),
		)
	}

	candidates = append(candidates,
		"config.yaml",
		"nornicgraph.yaml",
	)

	if homeErr == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "nornicgraph", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

// parseMemorySize parses a human-readable memory size string.
// Supports: "1024", "1KB", "1MB", "1GB", "1TB", "0", "unlimited"
func parseMemorySize(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" || s == "UNLIMITED" {
		return 0
	}

	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "T")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}

// FormatMemorySize formats bytes as human-readable string.
func FormatMemorySize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(TB))
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// ApplyRuntimeMemory applies the runtime memory settings to the Go runtime.
// Should be called early in main() before heavy allocations.
func (c *MemoryConfig) ApplyRuntimeMemory() {
	if c.RuntimeLimit > 0 {
		debug.SetMemoryLimit(c.RuntimeLimit)
	}
	if c.GCPercent != 100 {
		debug.SetGCPercent(c.GCPercent)
	}
}
