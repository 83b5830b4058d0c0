// Package config provides configuration management for the JRVI memory core.
// It loads settings from environment variables with the JRVI_ prefix and
// provides sensible defaults for all configuration options. An optional YAML
// file can overlay the environment (file values win).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the JRVI application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Memory   MemoryConfig   `yaml:"memory"`
	Kernel   KernelConfig   `yaml:"kernel"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7171)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string `yaml:"security_mode"` // development or production (default: development)
	APIToken     string `yaml:"api_token"`     // API authentication token
}

// MemoryConfig tunes the record store, scoring and decay engine.
type MemoryConfig struct {
	BaseDecayRate      float64       `yaml:"base_decay_rate"`     // Decay added per hour of idleness (default: 0.01)
	WisdomProtection   float64       `yaml:"wisdom_protection"`   // How strongly wisdom slows decay (default: 0.5)
	AccessBonus        float64       `yaml:"access_bonus"`        // Decay reduction per access (default: 0.1)
	MaxDecay           float64       `yaml:"max_decay"`           // Decay ceiling (default: 0.95)
	DecayInterval      time.Duration `yaml:"decay_interval"`      // Background sweep interval (default: 24h)
	STMCapacity        int           `yaml:"stm_capacity"`        // Short-term pool capacity (default: 50)
	LTMCapacity        int           `yaml:"ltm_capacity"`        // Long-term pool capacity (default: 500)
	PromotionThreshold float64       `yaml:"promotion_threshold"` // Score at which a record is LTM (default: 0.7)
	MaxResults         int           `yaml:"max_results"`         // Query result cap (default: 100)
}

// KernelConfig tunes the policy kernel.
type KernelConfig struct {
	ApprovalTimeout      time.Duration `yaml:"approval_timeout"`       // Pending approval expiry (default: 10m)
	DefaultBrandAffinity []string      `yaml:"default_brand_affinity"` // Applied when a request carries none (default: ["JRVI"])
	FreezeMode           bool          `yaml:"freeze_mode"`            // Reject all routing when true (default: false)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the JRVI_ prefix.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("JRVI_PORT", 7171),
			Host: getEnv("JRVI_HOST", "127.0.0.1"),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("JRVI_SECURITY_MODE", "development"),
			APIToken:     getEnv("JRVI_API_TOKEN", ""),
		},
		Memory: MemoryConfig{
			BaseDecayRate:      getEnvFloat("JRVI_BASE_DECAY_RATE", 0.01),
			WisdomProtection:   getEnvFloat("JRVI_WISDOM_PROTECTION", 0.5),
			AccessBonus:        getEnvFloat("JRVI_ACCESS_BONUS", 0.1),
			MaxDecay:           getEnvFloat("JRVI_MAX_DECAY", 0.95),
			DecayInterval:      getEnvDuration("JRVI_DECAY_INTERVAL", 24*time.Hour),
			STMCapacity:        getEnvInt("JRVI_STM_CAPACITY", 50),
			LTMCapacity:        getEnvInt("JRVI_LTM_CAPACITY", 500),
			PromotionThreshold: getEnvFloat("JRVI_PROMOTION_THRESHOLD", 0.7),
			MaxResults:         getEnvInt("JRVI_MAX_RESULTS", 100),
		},
		Kernel: KernelConfig{
			ApprovalTimeout:      getEnvDuration("JRVI_APPROVAL_TIMEOUT", 10*time.Minute),
			DefaultBrandAffinity: []string{getEnv("JRVI_DEFAULT_BRAND", "JRVI")},
			FreezeMode:           getEnvBool("JRVI_FREEZE_MODE", false),
		},
	}
}

// LoadConfigFile loads configuration from the environment, then overlays
// values from the YAML file at path. The file must exist and parse.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that numeric settings are inside their working ranges.
func (c *Config) Validate() error {
	if c.Memory.MaxDecay <= 0 || c.Memory.MaxDecay > 1 {
		return fmt.Errorf("config: max_decay must be in (0, 1], got %v", c.Memory.MaxDecay)
	}
	if c.Memory.BaseDecayRate < 0 {
		return fmt.Errorf("config: base_decay_rate must be >= 0, got %v", c.Memory.BaseDecayRate)
	}
	if c.Memory.STMCapacity < 1 {
		return fmt.Errorf("config: stm_capacity must be >= 1, got %d", c.Memory.STMCapacity)
	}
	if c.Memory.LTMCapacity < 1 {
		return fmt.Errorf("config: ltm_capacity must be >= 1, got %d", c.Memory.LTMCapacity)
	}
	if c.Memory.PromotionThreshold < 0 || c.Memory.PromotionThreshold > 1 {
		return fmt.Errorf("config: promotion_threshold must be in [0, 1], got %v", c.Memory.PromotionThreshold)
	}
	if c.Kernel.ApprovalTimeout <= 0 {
		return fmt.Errorf("config: approval_timeout must be > 0, got %v", c.Kernel.ApprovalTimeout)
	}
	if len(c.Kernel.DefaultBrandAffinity) == 0 {
		return fmt.Errorf("config: default_brand_affinity must not be empty")
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "24h") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
