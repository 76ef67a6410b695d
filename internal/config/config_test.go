package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:       "postgresql:///warbler_test",
		SecretKey:         "secure-secret-at-least-32-chars-long",
		Port:              "5000",
		Env:               "development",
		BcryptCost:        10,
		SessionTTLMinutes: 60,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development", func(_ *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing database URL", func(c *Config) { c.DatabaseURL = "" }, true},
		{"Missing secret", func(c *Config) { c.SecretKey = "" }, true},
		{"Bcrypt cost too low", func(c *Config) { c.BcryptCost = 3 }, true},
		{"Bcrypt cost too high", func(c *Config) { c.BcryptCost = 32 }, true},
		{"Zero session TTL", func(c *Config) { c.SessionTTLMinutes = 0 }, true},
		{"Production default secret", func(c *Config) {
			c.Env = "production"
			c.SecretKey = defaultSecretKey
		}, true},
		{"Production short secret", func(c *Config) {
			c.Env = "prod"
			c.SecretKey = "short"
		}, true},
		{"Production cheap bcrypt", func(c *Config) {
			c.Env = "production"
			c.BcryptCost = 4
		}, true},
		{"Production valid", func(c *Config) { c.Env = "production" }, false},
		{"Test short secret only warns", func(c *Config) {
			c.Env = "test"
			c.SecretKey = "short"
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

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "  sqlite://warbler_test.db  ")
	t.Setenv("PORT", "9090")
	t.Setenv("BCRYPT_COST", "4")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", c.Env)
	assert.Equal(t, "sqlite://warbler_test.db", c.DatabaseURL)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 4, c.BcryptCost)
	assert.Equal(t, 24*60, c.SessionTTLMinutes)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_ProductionRejectsDefaultSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SECRET_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}
