package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                   "8080",
		Env:                    "development",
		JWTSecret:              "secure-secret-at-least-32-chars-long",
		DBDriver:               "memory",
		ClassifyWorkers:        4,
		ActionWebhookTimeoutMS: 1000,
		AnalyticsCacheTTLSecs:  30,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.DBDriver = "sqlite" }, true},
		{"zero workers", func(c *Config) { c.ClassifyWorkers = 0 }, true},
		{"webhook without timeout", func(c *Config) { c.ActionWebhookURL = "http://x"; c.ActionWebhookTimeoutMS = 0 }, true},
		{"bad exporter", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "zipkin" }, true},
		{"bad ratio", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "otlp"; c.TracingSampleRatio = 2 }, true},
		{"production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"production postgres without ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "strong-password"
			c.DBSSLMode = "disable"
		}, true},
		{"production postgres with ssl", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = "postgres"
			c.DBPassword = "strong-password"
			c.DBSSLMode = "require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_DRIVER")
	defer os.Unsetenv("CLASSIFY_WORKERS")

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_DRIVER", "  SQLite ")
	os.Setenv("CLASSIFY_WORKERS", "3")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 3, c.ClassifyWorkers)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 5*time.Second, c.WebhookTimeout())
	assert.Equal(t, time.Minute, c.AnalyticsCacheTTL())
}
