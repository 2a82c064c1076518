package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for the sync engine knobs
const (
	DefaultBatchSize  = 10
	DefaultAPIBaseURL = "http://localhost:3000/api"
	DefaultMaxRetries = 3
)

// Config holds user preferences and sync engine settings
type Config struct {
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"` // Base URL for the sync server
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`     // Max items per outbound batch
	MaxRetries int    `yaml:"max_retries" json:"max_retries"`   // Attempts before dead-lettering

	ConfirmDelete bool `yaml:"confirm_delete" json:"confirm_delete"` // Require confirmation for delete

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// DefaultConfig returns default settings. Environment variables
// SYNC_BATCH_SIZE, API_BASE_URL and MAX_RETRIES override the sync knobs.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".ferrytask", "logs", "ferrytask.log")
	}

	return &Config{
		APIBaseURL:    getEnv("API_BASE_URL", DefaultAPIBaseURL),
		BatchSize:     getEnvInt("SYNC_BATCH_SIZE", DefaultBatchSize),
		MaxRetries:    getEnvInt("MAX_RETRIES", DefaultMaxRetries),
		ConfirmDelete: true,
		LogLevel:      getEnv("FERRYTASK_LOG_LEVEL", "INFO"),
		LogFile:       getEnv("FERRYTASK_LOG_FILE", logPath),
		LogConsole:    getEnv("FERRYTASK_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// Load loads config from ~/.ferrytask/config.yaml
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(home, ".ferrytask", "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Return defaults if no config
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return cfg, nil
}

// Save saves config to ~/.ferrytask/config.yaml
func (c *Config) Save() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".ferrytask")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
