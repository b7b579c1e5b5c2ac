package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/cyclegpt/internal/domain/chat"
	"github.com/yanqian/cyclegpt/internal/domain/cycle"
	"github.com/yanqian/cyclegpt/internal/domain/dashboard"
	"github.com/yanqian/cyclegpt/internal/infra/backend"
	"github.com/yanqian/cyclegpt/internal/infra/chart"
	"github.com/yanqian/cyclegpt/internal/infra/config"
	"github.com/yanqian/cyclegpt/internal/infra/cyclerepo"
	"github.com/yanqian/cyclegpt/internal/infra/cyclestore"
	"github.com/yanqian/cyclegpt/internal/infra/dataset"
	"github.com/yanqian/cyclegpt/internal/infra/llm/chatgpt"
	"github.com/yanqian/cyclegpt/internal/infra/llm/tokens"
)

// cacheStore is satisfied by both the memory and the valkey store.
type cacheStore interface {
	cycle.PredictionCache
	chat.AnswerCache
}

func provideCycleConfig(cfg *config.Config) cycle.Config {
	return cycle.Config{
		Model:       cfg.Prediction.Model,
		CacheTTL:    cfg.Prediction.CacheTTL,
		LutealDays:  cfg.Prediction.LutealDays,
		FertileDays: cfg.Prediction.FertileDays,
	}
}

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Prompt:      cfg.Chat.Prompt,
		CacheTTL:    cfg.Chat.CacheTTL,
	}
}

func provideDatasetSource(cfg *config.Config) (dataset.Source, error) {
	if strings.TrimSpace(cfg.Dataset.Bucket) != "" {
		return dataset.NewObjectSource(dataset.ObjectConfig{
			Endpoint:  cfg.Dataset.Endpoint,
			AccessKey: cfg.Dataset.AccessKey,
			SecretKey: cfg.Dataset.SecretKey,
			Bucket:    cfg.Dataset.Bucket,
			Region:    cfg.Dataset.Region,
			Key:       cfg.Dataset.ObjectKey,
		})
	}
	return dataset.NewFileSource(cfg.Dataset.Path), nil
}

func provideRecordRepository(cfg *config.Config, src dataset.Source, logger *slog.Logger) (cycle.RecordRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if dsn := strings.TrimSpace(cfg.Postgres.DSN); dsn != "" {
		repo, err := openPostgresRepository(ctx, cfg.Postgres, src, logger)
		if err == nil {
			logger.Info("cycle postgres repository enabled")
			return repo, nil
		}
		logger.Error("postgres repository unavailable, using memory repository", "error", err)
	}

	records, err := cyclerepo.LoadRecords(ctx, src)
	if err != nil {
		return nil, err
	}
	logger.Info("cycle dataset loaded", "source", src.String(), "records", len(records))
	return cyclerepo.NewMemoryRepository(records), nil
}

// openPostgresRepository connects, creates the schema and seeds an empty
// table from the dataset source.
func openPostgresRepository(ctx context.Context, cfg config.PostgresConfig, src dataset.Source, logger *slog.Logger) (*cyclerepo.PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := cyclerepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	count, err := repo.Count(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if count > 0 {
		return repo, nil
	}

	records, err := cyclerepo.LoadRecords(ctx, src)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed cycle records: %w", err)
	}
	imported, err := repo.ImportRecords(ctx, records)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("cycle records imported", "source", src.String(), "rows", imported)
	return repo, nil
}

func provideCacheStore(cfg *config.Config, logger *slog.Logger) cacheStore {
	if cfg.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg.Redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return cyclestore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return cyclestore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("valkey cache enabled", "addr", cfg.Redis.Addr)
			return cyclestore.NewValkeyStore(client, cfg.Redis.Prefix)
		}
	}
	return cyclestore.NewMemoryStore()
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func providePredictionCache(store cacheStore) cycle.PredictionCache {
	return store
}

func provideAnswerCache(store cacheStore) chat.AnswerCache {
	return store
}

func provideCycleService(cfg cycle.Config, repo cycle.RecordRepository, cache cycle.PredictionCache, logger *slog.Logger) (cycle.Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return cycle.NewService(ctx, cfg, repo, cache, logger)
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) *tokens.Counter {
	return tokens.NewCounter(cfg.LLM.Model, logger)
}

func provideBackendClient(cfg *config.Config) (*backend.Client, error) {
	return backend.NewClient(cfg.Dashboard.PredictBaseURL, cfg.Dashboard.ChatURL, nil)
}

func provideSessionStore(cfg *config.Config) *dashboard.SessionStore {
	return dashboard.NewSessionStore(cfg.Dashboard.SessionTTL)
}

func provideTokenSigner(cfg *config.Config, logger *slog.Logger) (*dashboard.TokenSigner, error) {
	secret := cfg.Dashboard.SessionSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logger.Info("dashboard session secret not set, generated one for this process")
	}
	return dashboard.NewTokenSigner(secret, cfg.Dashboard.SessionTTL)
}

func provideChartRenderer(cfg *config.Config) *chart.Renderer {
	return chart.NewRenderer(cfg.Dashboard.ChartWidth, cfg.Dashboard.ChartHeight)
}
