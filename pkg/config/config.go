package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int      `yaml:"port"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	MarketData struct {
		Hosts       []string `yaml:"hosts"`
		UserAgent   string   `yaml:"user_agent"`
		Timeout     Duration `yaml:"timeout"`
		MaxAttempts int      `yaml:"max_attempts"`
		BackoffMin  Duration `yaml:"backoff_min"`
		BackoffMax  Duration `yaml:"backoff_max"`
		MaxRPS      float64  `yaml:"max_rps"`
	} `yaml:"marketdata"`
	Cache struct {
		TTL       Duration `yaml:"ttl"`
		MemoryMax int      `yaml:"memory_max"`
		Redis     struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Analysis struct {
		FXSymbol      string    `yaml:"fx_symbol"`
		Assets        []string  `yaml:"assets"`
		DefaultWindow int       `yaml:"default_window"`
		DefaultMethod string    `yaml:"default_method"`
		DefaultMoves  []float64 `yaml:"default_moves"`
		Lookback      Duration  `yaml:"lookback"`
		Timeout       Duration  `yaml:"timeout"`
	} `yaml:"analysis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("ASSETS"); v != "" {
		c.Analysis.Assets = strings.Split(v, ",")
	}
	if v := os.Getenv("FX_SYMBOL"); v != "" {
		c.Analysis.FXSymbol = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Analysis.FXSymbol == "" {
		return fmt.Errorf("analysis.fx_symbol is required")
	}
	if len(c.Analysis.Assets) == 0 {
		return fmt.Errorf("analysis.assets cannot be empty")
	}
	if c.Analysis.DefaultWindow < 2 {
		return fmt.Errorf("analysis.default_window must be at least 2, got %d", c.Analysis.DefaultWindow)
	}
	if m := c.Analysis.DefaultMethod; m != "log" && m != "simple" {
		return fmt.Errorf("analysis.default_method must be 'log' or 'simple', got '%s'", m)
	}
	if len(c.MarketData.Hosts) == 0 {
		return fmt.Errorf("marketdata.hosts cannot be empty")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	return nil
}
