package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// EngineConfig holds the execution engine configuration
type EngineConfig struct {
	Profile              string   `mapstructure:"profile"`
	TimeoutSec           int      `mapstructure:"timeout_sec"`
	MaxMemoryMB          int      `mapstructure:"max_memory_mb"`
	EnableStaticAnalysis bool     `mapstructure:"enable_static_analysis"`
	EnforcePolicy        bool     `mapstructure:"enforce_policy"`
	EnableTextRepair     bool     `mapstructure:"enable_text_repair"`
	AllowedModules       []string `mapstructure:"allowed_modules"`
	AllowedCallables     []string `mapstructure:"allowed_callables"`
	DeniedModules        []string `mapstructure:"denied_modules"`
	DeniedCalls          []string `mapstructure:"denied_calls"`
	DeniedAttributes     []string `mapstructure:"denied_attributes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)

	// Engine defaults mirror the permissive operating profile: generous
	// ceilings, static analysis off, text repair on.
	viper.SetDefault("engine.profile", "permissive")
	viper.SetDefault("engine.timeout_sec", 120)
	viper.SetDefault("engine.max_memory_mb", 2048)
	viper.SetDefault("engine.enable_static_analysis", false)
	viper.SetDefault("engine.enforce_policy", false)
	viper.SetDefault("engine.enable_text_repair", true)
	viper.SetDefault("engine.allowed_modules", []string{"math", "time", "json"})
	viper.SetDefault("engine.allowed_callables", []string{"struct"})
	viper.SetDefault("engine.denied_modules", []string{})
	viper.SetDefault("engine.denied_calls", []string{})
	viper.SetDefault("engine.denied_attributes", []string{})

	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Engine.Profile != "permissive" && c.Engine.Profile != "hardened" {
		return fmt.Errorf("invalid engine.profile: %s, must be 'permissive' or 'hardened'", c.Engine.Profile)
	}

	if c.Engine.TimeoutSec <= 0 {
		return fmt.Errorf("engine.timeout_sec must be positive, got: %d", c.Engine.TimeoutSec)
	}

	if c.Engine.MaxMemoryMB <= 0 {
		return fmt.Errorf("engine.max_memory_mb must be positive, got: %d", c.Engine.MaxMemoryMB)
	}

	if c.Engine.EnforcePolicy && !c.Engine.EnableStaticAnalysis {
		return fmt.Errorf("engine.enforce_policy requires engine.enable_static_analysis")
	}

	return nil
}

// GetTimeout returns the execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSec) * time.Second
}
