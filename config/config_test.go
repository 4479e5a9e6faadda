package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "stdio",
			HTTPPort:  8080,
		},
		Engine: EngineConfig{
			Profile:          "permissive",
			TimeoutSec:       120,
			MaxMemoryMB:      2048,
			EnableTextRepair: true,
			AllowedModules:   []string{"math", "time", "json"},
			AllowedCallables: []string{"struct"},
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.validate())
	})

	t.Run("InvalidServerTransport", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Transport = "invalid"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.transport")
	})

	t.Run("InvalidProfile", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.Profile = "wide-open"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.profile")
	})

	t.Run("NonPositiveTimeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.TimeoutSec = 0
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout_sec")
	})

	t.Run("NonPositiveMemory", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.MaxMemoryMB = -1
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_memory_mb")
	})

	t.Run("EnforcementRequiresAnalysis", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.EnforcePolicy = true
		cfg.Engine.EnableStaticAnalysis = false
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enforce_policy")
	})

	t.Run("HardenedProfileIsValid", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.Profile = "hardened"
		cfg.Engine.EnableStaticAnalysis = true
		cfg.Engine.EnforcePolicy = true
		require.NoError(t, cfg.validate())
	})
}

func TestGetTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.TimeoutSec = 30
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
}
