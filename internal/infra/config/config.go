package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	LLM        LLMConfig        `yaml:"llm"`
	Chat       ChatConfig       `yaml:"chat"`
	Prediction PredictionConfig `yaml:"prediction"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures retries of POST routes that failed with a 5xx.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Paths       []string      `yaml:"paths"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChatConfig controls the CycleGPT chatbot.
type ChatConfig struct {
	Prompt   string        `yaml:"prompt"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// PredictionConfig controls the cycle predictor.
type PredictionConfig struct {
	Model       string        `yaml:"model"`
	CacheTTL    time.Duration `yaml:"cacheTtl"`
	LutealDays  int           `yaml:"lutealDays"`
	FertileDays int           `yaml:"fertileDays"`
}

// DatasetConfig locates the cycle CSV. When Bucket is set the object is read
// from S3 compatible storage, otherwise Path is read from disk.
type DatasetConfig struct {
	Path      string `yaml:"path"`
	ObjectKey string `yaml:"objectKey"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// DashboardConfig controls the server rendered dashboard.
type DashboardConfig struct {
	PredictBaseURL string        `yaml:"predictBaseUrl"`
	ChatURL        string        `yaml:"chatUrl"`
	SessionSecret  string        `yaml:"sessionSecret"`
	SessionTTL     time.Duration `yaml:"sessionTtl"`
	ChartWidth     int           `yaml:"chartWidth"`
	ChartHeight    int           `yaml:"chartHeight"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv populates unset variables from path; a missing file is ignored.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")

	// LLM_API_KEY takes precedence over OPENAI_API_KEY.
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	setString(&cfg.Chat.Prompt, "CHAT_PROMPT")
	setDuration(&cfg.Chat.CacheTTL, "CHAT_CACHE_TTL")

	setString(&cfg.Prediction.Model, "PREDICTION_MODEL")
	setDuration(&cfg.Prediction.CacheTTL, "PREDICTION_CACHE_TTL")
	setInt(&cfg.Prediction.LutealDays, "PREDICTION_LUTEAL_DAYS")
	setInt(&cfg.Prediction.FertileDays, "PREDICTION_FERTILE_DAYS")

	setString(&cfg.Dataset.Path, "DATASET_PATH")
	setString(&cfg.Dataset.ObjectKey, "DATASET_OBJECT_KEY")
	setString(&cfg.Dataset.Bucket, "DATASET_BUCKET")
	setString(&cfg.Dataset.Endpoint, "DATASET_ENDPOINT")
	setString(&cfg.Dataset.Region, "DATASET_REGION")
	setString(&cfg.Dataset.AccessKey, "DATASET_ACCESS_KEY")
	setString(&cfg.Dataset.SecretKey, "DATASET_SECRET_KEY")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}

	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Prefix, "REDIS_PREFIX")

	setString(&cfg.Dashboard.PredictBaseURL, "DASHBOARD_PREDICT_BASE_URL")
	setString(&cfg.Dashboard.ChatURL, "DASHBOARD_CHAT_URL")
	setString(&cfg.Dashboard.SessionSecret, "DASHBOARD_SESSION_SECRET")
	setDuration(&cfg.Dashboard.SessionTTL, "DASHBOARD_SESSION_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":5001",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			CORSOrigins:  []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 250 * time.Millisecond,
				Paths:       []string{"/chat"},
			},
		},
		LLM: LLMConfig{
			Model:       "gpt-3.5-turbo",
			Temperature: 0.5,
			Timeout:     60 * time.Second,
		},
		Chat: ChatConfig{
			Prompt:   "You are CycleGPT, a compassionate and science-based assistant for menstrual health. Answer clearly and kindly, and suggest seeing a clinician when symptoms sound concerning.",
			CacheTTL: 6 * time.Hour,
		},
		Prediction: PredictionConfig{
			Model:       "regression",
			CacheTTL:    time.Hour,
			LutealDays:  14,
			FertileDays: 4,
		},
		Dataset: DatasetConfig{
			Path: "data/menstrual_cycle_dataset.csv",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Redis: RedisConfig{
			Prefix: "cyclegpt",
		},
		Dashboard: DashboardConfig{
			PredictBaseURL: "http://localhost:5001",
			ChatURL:        "http://localhost:5001/chat",
			SessionTTL:     12 * time.Hour,
			ChartWidth:     900,
			ChartHeight:    420,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff < 0 {
			return errors.New("http.retry.baseBackoff cannot be negative")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if strings.TrimSpace(c.Chat.Prompt) == "" {
		return errors.New("chat.prompt cannot be empty")
	}
	if c.Chat.CacheTTL < 0 {
		return errors.New("chat.cacheTtl cannot be negative")
	}
	switch c.Prediction.Model {
	case "regression", "latest":
	default:
		return fmt.Errorf("prediction.model %q is not supported", c.Prediction.Model)
	}
	if c.Prediction.CacheTTL < 0 {
		return errors.New("prediction.cacheTtl cannot be negative")
	}
	if c.Prediction.LutealDays <= 0 {
		return errors.New("prediction.lutealDays must be positive")
	}
	if c.Prediction.FertileDays <= 0 {
		return errors.New("prediction.fertileDays must be positive")
	}
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Dataset.Bucket == "" && strings.TrimSpace(c.Dataset.Path) == "" {
			return errors.New("dataset.path cannot be empty without postgres or a bucket")
		}
	}
	if c.Dataset.Bucket != "" && strings.TrimSpace(c.Dataset.ObjectKey) == "" {
		return errors.New("dataset.objectKey cannot be empty when dataset.bucket is set")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr cannot be empty when redis cache is enabled")
	}
	if strings.TrimSpace(c.Dashboard.PredictBaseURL) == "" {
		return errors.New("dashboard.predictBaseUrl cannot be empty")
	}
	if strings.TrimSpace(c.Dashboard.ChatURL) == "" {
		return errors.New("dashboard.chatUrl cannot be empty")
	}
	if c.Dashboard.SessionSecret != "" && len(c.Dashboard.SessionSecret) < 16 {
		return errors.New("dashboard.sessionSecret must be at least 16 bytes")
	}
	if c.Dashboard.ChartWidth < 0 || c.Dashboard.ChartHeight < 0 {
		return errors.New("dashboard chart size cannot be negative")
	}
	return nil
}
