package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL          string        `yaml:"base_url"`           // Backend base URL (default: http://localhost:8080)
	DatabaseFile     string        `yaml:"database_file"`      // SQLite file holding the session (default: ./mindtree.db)
	MasterKey        string        `yaml:"-"`                  // Optional: seals stored values; env only, never read from the file
	MasterKeyPath    string        `yaml:"master_key_path"`    // Optional: file with the sealing key material
	Env              string        `yaml:"env"`                // Environment (dev, staging, prod) (default: dev)
	LogLevel         string        `yaml:"log_level"`          // Log level (debug, info, warn, error) (default: info)
	LogFormat        string        `yaml:"log_format"`         // Log format (json, text) (default: text)
	RefreshPath      string        `yaml:"refresh_path"`       // Renewal endpoint (default: /auth/refresh)
	RequestTimeout   time.Duration `yaml:"request_timeout"`    // Per-call timeout (default: 5s)
	RenewTimeout     time.Duration `yaml:"renew_timeout"`      // Renewal exchange timeout (default: 5s)
	RenewBefore      time.Duration `yaml:"renew_before"`       // Proactive renewal window, negative disables (default: 30s)
	PushBackoffFloor time.Duration `yaml:"push_backoff_floor"` // (default: 1s)
	PushBackoffCap   time.Duration `yaml:"push_backoff_cap"`   // (default: 30s)
	RateLimit        float64       `yaml:"rate_limit"`         // Requests per second, 0 = unlimited
	MockAddr         string        `yaml:"mock_addr"`          // Listen address of `mindtree mock` (default: 127.0.0.1:8080)
}

func defaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:8080",
		DatabaseFile:     "mindtree.db",
		Env:              "dev",
		LogLevel:         "info",
		LogFormat:        "text",
		RefreshPath:      mindtree.DefaultRefreshPath,
		RequestTimeout:   mindtree.DefaultRequestTimeout,
		RenewTimeout:     mindtree.DefaultRenewTimeout,
		RenewBefore:      mindtree.DefaultRenewBefore,
		PushBackoffFloor: mindtree.DefaultBackoffFloor,
		PushBackoffCap:   mindtree.DefaultBackoffCap,
		MockAddr:         "127.0.0.1:8080",
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by MINDTREE_CONFIG (if any), then environment variables.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("MINDTREE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.BaseURL = getEnvOrDefault("MINDTREE_BASE_URL", cfg.BaseURL)
	cfg.DatabaseFile = getEnvOrDefault("MINDTREE_DB_FILE", cfg.DatabaseFile)
	cfg.MasterKey = os.Getenv("MINDTREE_MASTER_KEY")
	cfg.MasterKeyPath = getEnvOrDefault("MINDTREE_MASTER_KEY_PATH", cfg.MasterKeyPath)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.RefreshPath = getEnvOrDefault("MINDTREE_REFRESH_PATH", cfg.RefreshPath)
	cfg.RequestTimeout = getEnvDurationOrDefault("MINDTREE_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RenewTimeout = getEnvDurationOrDefault("MINDTREE_RENEW_TIMEOUT", cfg.RenewTimeout)
	cfg.RenewBefore = getEnvDurationOrDefault("MINDTREE_RENEW_BEFORE", cfg.RenewBefore)
	cfg.PushBackoffFloor = getEnvDurationOrDefault("MINDTREE_PUSH_BACKOFF_FLOOR", cfg.PushBackoffFloor)
	cfg.PushBackoffCap = getEnvDurationOrDefault("MINDTREE_PUSH_BACKOFF_CAP", cfg.PushBackoffCap)
	cfg.RateLimit = getEnvFloatOrDefault("MINDTREE_RATE_LIMIT", cfg.RateLimit)
	cfg.MockAddr = getEnvOrDefault("MINDTREE_MOCK_ADDR", cfg.MockAddr)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "5s", "500ms")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
