// Package config loads runtime configuration from defaults, an optional yaml
// file, and VIBE_* environment variables, in that precedence order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the worker's runtime configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheSize   int           `mapstructure:"cache_size"`
}

type SandboxConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Image   string        `mapstructure:"image"`
	Timeout time.Duration `mapstructure:"timeout"`
	AppPort int           `mapstructure:"app_port"`
}

type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	ContextLimit  int `mapstructure:"context_limit"`
}

type WorkerConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queue_size"`
}

// Load reads configuration. Path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4.1")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("llm.cache_size", 256)
	v.SetDefault("sandbox.base_url", "http://localhost:49982")
	v.SetDefault("sandbox.image", "vibe-nextjs")
	v.SetDefault("sandbox.timeout", 30*time.Minute)
	v.SetDefault("sandbox.app_port", 3000)
	v.SetDefault("agent.max_iterations", 15)
	v.SetDefault("agent.context_limit", 5)
	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.queue_size", 64)

	v.SetEnvPrefix("VIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Agent.MaxIterations <= 0 {
		return errors.New("agent.max_iterations must be positive")
	}
	if c.Agent.ContextLimit <= 0 {
		return errors.New("agent.context_limit must be positive")
	}
	if c.Worker.Count <= 0 {
		return errors.New("worker.count must be positive")
	}
	if c.Sandbox.AppPort <= 0 {
		return errors.New("sandbox.app_port must be positive")
	}
	return nil
}
