//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/cyclegpt/internal/bootstrap"
	"github.com/yanqian/cyclegpt/internal/domain/chat"
	"github.com/yanqian/cyclegpt/internal/domain/dashboard"
	"github.com/yanqian/cyclegpt/internal/infra/backend"
	"github.com/yanqian/cyclegpt/internal/infra/chart"
	"github.com/yanqian/cyclegpt/internal/infra/config"
	"github.com/yanqian/cyclegpt/internal/infra/llm/chatgpt"
	"github.com/yanqian/cyclegpt/internal/infra/llm/tokens"
	httpiface "github.com/yanqian/cyclegpt/internal/interface/http"
	"github.com/yanqian/cyclegpt/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideCycleConfig,
		provideChatConfig,
		provideDatasetSource,
		provideRecordRepository,
		provideCacheStore,
		providePredictionCache,
		provideAnswerCache,
		provideCycleService,
		provideChatGPTClient,
		provideTokenCounter,
		provideBackendClient,
		provideSessionStore,
		provideTokenSigner,
		provideChartRenderer,
		chat.NewService,
		dashboard.NewService,
		wire.Bind(new(chat.ChatClient), new(*chatgpt.Client)),
		wire.Bind(new(chat.TokenCounter), new(*tokens.Counter)),
		wire.Bind(new(dashboard.PredictionFetcher), new(*backend.Client)),
		wire.Bind(new(dashboard.ChatAsker), new(*backend.Client)),
		wire.Bind(new(httpiface.ChartRenderer), new(*chart.Renderer)),
		httpiface.NewHandler,
		httpiface.NewDashboardHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
