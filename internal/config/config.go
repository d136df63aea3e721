// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Fulltext   FulltextConfig   `mapstructure:"fulltext"`
	Divination DivinationConfig `mapstructure:"divination"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// FulltextConfig governs the full-text fetch orchestrator.
type FulltextConfig struct {
	CacheDir       string   `mapstructure:"cache_dir"`
	MinDelayMs     int      `mapstructure:"min_delay_ms"`
	MaxDelayMs     int      `mapstructure:"max_delay_ms"`
	MaxRetries     int      `mapstructure:"max_retries"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	UserAgents     []string `mapstructure:"user_agents"`
	// Sources is an allow-list of source keys; empty activates all.
	Sources []string `mapstructure:"sources"`
}

// DivinationConfig selects the casting behavior.
type DivinationConfig struct {
	Method string `mapstructure:"method"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GUA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("fulltext.cache_dir", ".cache/fulltext")
	v.SetDefault("fulltext.min_delay_ms", 800)
	v.SetDefault("fulltext.max_delay_ms", 1600)
	v.SetDefault("fulltext.max_retries", 4)
	v.SetDefault("fulltext.timeout_seconds", 15)
	v.SetDefault("divination.method", "N")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fulltext.MaxRetries <= 0 {
		return fmt.Errorf("fulltext.max_retries must be > 0")
	}
	if c.Fulltext.TimeoutSeconds <= 0 {
		return fmt.Errorf("fulltext.timeout_seconds must be > 0")
	}
	if c.Fulltext.MinDelayMs < 0 || c.Fulltext.MaxDelayMs < c.Fulltext.MinDelayMs {
		return fmt.Errorf("fulltext delay bounds must satisfy 0 <= min <= max")
	}
	return nil
}

// MinDelay returns the politeness delay lower bound.
func (c FulltextConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMs) * time.Millisecond
}

// MaxDelay returns the politeness delay upper bound.
func (c FulltextConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c FulltextConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
