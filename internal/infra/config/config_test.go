package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	require.InDelta(t, 0.5, float64(cfg.LLM.Temperature), 1e-6)
	require.Equal(t, "http://localhost:5001/chat", cfg.Dashboard.ChatURL)
	require.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
http:
  address: ":9000"
prediction:
  model: latest
  cacheTtl: 5m
dashboard:
  predictBaseUrl: http://predictor:9000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTP.Address)
	require.Equal(t, "latest", cfg.Prediction.Model)
	require.Equal(t, 5*time.Minute, cfg.Prediction.CacheTTL)
	require.Equal(t, "http://predictor:9000", cfg.Dashboard.PredictBaseURL)
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, 14, cfg.Prediction.LutealDays)
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CYCLEGPT_TEST_A=from-file\nCYCLEGPT_TEST_B=from-file\n"), 0o600))
	t.Setenv("CYCLEGPT_TEST_A", "from-env")
	t.Setenv("CYCLEGPT_TEST_B", "")
	_ = os.Unsetenv("CYCLEGPT_TEST_B")

	require.NoError(t, loadDotEnv(path))
	require.Equal(t, "from-env", os.Getenv("CYCLEGPT_TEST_A"))
	require.Equal(t, "from-file", os.Getenv("CYCLEGPT_TEST_B"))

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown model":       func(c *Config) { c.Prediction.Model = "forest" },
		"negative luteal":     func(c *Config) { c.Prediction.LutealDays = 0 },
		"redis without addr":  func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" },
		"bucket without key":  func(c *Config) { c.Dataset.Bucket = "cycles" },
		"no dataset":          func(c *Config) { c.Dataset.Path = "" },
		"short secret":        func(c *Config) { c.Dashboard.SessionSecret = "abc" },
		"empty chat url":      func(c *Config) { c.Dashboard.ChatURL = "" },
		"temperature too big": func(c *Config) { c.LLM.Temperature = 3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
