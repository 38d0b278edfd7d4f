package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all diskwise configuration.
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	LLM      LLMConfig      `yaml:"llm"`
	Safety   SafetyConfig   `yaml:"safety"`
	Audit    AuditConfig    `yaml:"audit"`
	Scan     ScanConfig     `yaml:"scan"`
}

// CacheConfig controls the analysis result cache.
type CacheConfig struct {
	Directory       string        `yaml:"directory"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	MaxSizeBytes    int64         `yaml:"max_size_bytes"`
	MaxEntries      int           `yaml:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Compression     bool          `yaml:"compression"`
}

// LLMConfig defines the OpenAI-compatible analysis endpoint.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	BatchSize   int           `yaml:"batch_size"`
}

// SafetyConfig controls the protection rules applied to recommendations.
type SafetyConfig struct {
	ProtectedPaths []string      `yaml:"protected_paths"`
	RecentAge      time.Duration `yaml:"recent_age"`
	LargeFileBytes int64         `yaml:"large_file_bytes"`
	MinConfidence  float64       `yaml:"min_confidence"`
}

// AuditConfig controls the audit trail database.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ScanConfig controls the directory scanner.
type ScanConfig struct {
	MaxFiles      int  `yaml:"max_files"`
	IncludeHidden bool `yaml:"include_hidden"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Cache: CacheConfig{
			Directory:       filepath.Join(home, ".diskwise", "cache"),
			DefaultTTL:      24 * time.Hour,
			MaxSizeBytes:    100 * 1024 * 1024,
			MaxEntries:      10000,
			CleanupInterval: 6 * time.Hour,
			Compression:     true,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   4000,
			Timeout:     60 * time.Second,
			BatchSize:   50,
		},
		Safety: SafetyConfig{
			RecentAge:      30 * 24 * time.Hour,
			LargeFileBytes: 1 << 30,
			MinConfidence:  0.8,
		},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        filepath.Join(home, ".diskwise", "audit.db"),
			RetentionDays: 90,
		},
		Scan: ScanConfig{
			MaxFiles: 5000,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns defaults when path
// is empty or the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
