package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CALCOM_API_KEY", "cal_test")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "gpt-4.1-mini", cfg.ModelName)
	assert.Equal(t, "America/Los_Angeles", cfg.Timezone)
	assert.Equal(t, 3, cfg.MaxToolTurns)
	assert.Equal(t, "https://api.cal.com/v2", cfg.CalcomBaseURL)
	assert.False(t, cfg.NATSEnabled)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_MODEL_NAME", "gpt-4.1")
	t.Setenv("OPENAI_TEMPERATURE", "0.4")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Berlin")
	t.Setenv("MAX_TOOL_TURNS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEBUG_MODE", "true")

	cfg := Load()

	assert.Equal(t, "gpt-4.1", cfg.ModelName)
	assert.InDelta(t, 0.4, cfg.Temperature, 1e-9)
	assert.Equal(t, 5, cfg.MaxToolTurns)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)

	chat := cfg.ChatConfig()
	assert.Equal(t, "Europe/Berlin", chat.Timezone)
	assert.Equal(t, "Europe/Berlin", cfg.CalendarConfig().Timezone)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CALCOM_API_KEY", "")
	t.Setenv("OPENAI_MODEL_NAME", "gpt-2")
	t.Setenv("DEFAULT_TIMEZONE", "Not/AZone")

	err := Load().Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "OPENAI_API_KEY is required")
	assert.ErrorContains(t, err, "CALCOM_API_KEY is required")
	assert.ErrorContains(t, err, `OPENAI_MODEL_NAME "gpt-2" is not supported`)
	assert.ErrorContains(t, err, "DEFAULT_TIMEZONE")
}
