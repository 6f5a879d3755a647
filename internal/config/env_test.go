package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLANNER_CONFIG", "")
	t.Setenv("PLANNER_TIMEZONE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLMModel)
	assert.InDelta(t, 0.1, cfg.LLMTemperature, 1e-9)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 6000
timezone: Europe/London
llm_timeout: 15s
calendar_id: work
`), 0o600))

	t.Setenv("PLANNER_CONFIG", path)
	t.Setenv("PORT", "7000")
	t.Setenv("PLANNER_TIMEZONE", "")
	t.Setenv("PLANNER_CALENDAR_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, "work", cfg.CalendarID)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.HTTPPort = 0 }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "palm" }, wantErr: true},
		{name: "anthropic", mutate: func(c *Config) { c.LLMProvider = "anthropic" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_ZeroTemperature(t *testing.T) {
	t.Setenv("PLANNER_CONFIG", "")
	t.Setenv("PLANNER_TIMEZONE", "")
	t.Setenv("PORT", "")
	t.Setenv("PLANNER_LLM_TEMPERATURE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.LLMTemperature)
}

func TestTokenKey(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		devMode     bool
		fallback    string
		wantKey     string
		wantDerived bool
		wantErr     error
	}{
		{name: "explicit key", key: "secret", wantKey: "secret"},
		{name: "explicit key wins in dev mode", key: "secret", devMode: true, fallback: "client", wantKey: "secret"},
		{name: "missing key in production", fallback: "client", wantErr: ErrNoEncryptionKey},
		{name: "dev mode without fallback", devMode: true, wantErr: ErrNoEncryptionKey},
		{name: "dev mode derives", devMode: true, fallback: "client", wantDerived: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.EncryptionKey = tt.key
			cfg.DevMode = tt.devMode

			key, derived, err := cfg.TokenKey(tt.fallback)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDerived, derived)
			if tt.wantKey != "" {
				assert.Equal(t, tt.wantKey, key)
			} else {
				assert.Len(t, key, 64)
			}
		})
	}
}

func TestTokenKey_DerivedIsStable(t *testing.T) {
	cfg := Default()
	cfg.DevMode = true

	first, _, err := cfg.TokenKey("client")
	require.NoError(t, err)
	second, _, err := cfg.TokenKey("client")
	require.NoError(t, err)
	other, _, err := cfg.TokenKey("other")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}
