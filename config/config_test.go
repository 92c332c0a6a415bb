package config_test

import (
	"testing"

	"github.com/effective-security/toolagent/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("WEATHER_API_KEY", "wk")
	t.Setenv("PORT", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "public", cfg.Server.PublicDir)
	assert.Equal(t, "weather", cfg.Agent.Name)
	assert.Equal(t, "wk", cfg.Weather.APIKey)

	p, err := cfg.Provider()
	require.NoError(t, err)
	assert.Equal(t, "OPENAI", p.Name)
	assert.Equal(t, "sk-openai", p.Token)
	assert.Equal(t, "gpt-4o-mini", p.DefaultModel)

	t.Setenv("PORT", "8081")
	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)

	t.Setenv("PORT", "http")
	_, err = config.Load("")
	assert.EqualError(t, err, `invalid PORT: "http"`)
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("TOOLAGENT_TEST_OPENAI_KEY", "sk-yaml")
	t.Setenv("TOOLAGENT_TEST_WEATHER_KEY", "wk-yaml")
	t.Setenv("PORT", "9999")

	cfg, err := config.Load("testdata/app.yaml")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	require.Len(t, cfg.LLM.Providers, 2)
	assert.Equal(t, "sk-yaml", cfg.LLM.Providers[0].Token)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	require.NotNil(t, cfg.Agent.Temperature)
	assert.Equal(t, float64(0), *cfg.Agent.Temperature)
	assert.True(t, cfg.Agent.IncludeSchema)
	assert.Equal(t, "wk-yaml", cfg.Weather.APIKey)
	assert.Equal(t, "imperial", cfg.Weather.Units)
	// the file takes precedence over PORT
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())

	p, err := cfg.Provider()
	require.NoError(t, err)
	assert.Equal(t, "ANTHROPIC", p.Name)

	cfg.Agent.Provider = "openai"
	p, err = cfg.Provider()
	require.NoError(t, err)
	assert.Equal(t, "OPENAI", p.Name)

	cfg.Agent.Provider = "BEDROCK"
	_, err = cfg.Provider()
	assert.EqualError(t, err, "provider not configured: BEDROCK")
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("TOOLAGENT_TEST_GOOGLE_KEY", "gk")
	t.Setenv("WEATHER_API_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := config.Load("testdata/app.toml")
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.LogLevel)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "gk", cfg.LLM.Providers[0].Token)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, "prompt.j2", cfg.Agent.SystemPrompt)
	assert.Equal(t, "http://localhost:9999", cfg.Weather.BaseURL)
	assert.Empty(t, cfg.Weather.APIKey)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load("testdata/missing.yaml")
	assert.Error(t, err)
	_, err = config.Load("testdata/missing.toml")
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	t.Setenv("TOOLAGENT_TEST_OPENAI_KEY", "sk-yaml")
	t.Setenv("TOOLAGENT_TEST_WEATHER_KEY", "wk-yaml")

	cfg, err := config.Load("testdata/app.yaml")
	require.NoError(t, err)

	y, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, y, "sk-yaml")
	assert.NotContains(t, y, "wk-yaml")
	assert.NotContains(t, y, "sk-ant-test")
	assert.Contains(t, y, "token: '***'")
	assert.Contains(t, y, "max_iterations: 5")

	// the original is not modified
	assert.Equal(t, "sk-yaml", cfg.LLM.Providers[0].Token)
	assert.Equal(t, "wk-yaml", cfg.Weather.APIKey)
}
