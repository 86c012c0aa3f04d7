package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"llmcouncil/internal/ai"
	"llmcouncil/internal/cache"
	"llmcouncil/internal/config"
	rabbitmqClient "llmcouncil/internal/platform/rabbitmq"
	redisClient "llmcouncil/internal/platform/redis"
	"llmcouncil/internal/roster"
	"llmcouncil/internal/search"
	"llmcouncil/internal/worker"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Roster    *roster.Roster
	Gateway   *ai.Gateway
	Trending  *cache.TrendingCache
	Publisher *rabbitmqClient.CompletionPublisher

	trendingWorker *worker.TrendingWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	r, err := roster.Load(cfg.Roster.Path)
	if err != nil {
		return nil, fmt.Errorf("load roster failed: %w", err)
	}

	trending := cache.NewTrendingCache(redisCli)
	if err := trending.Seed(ctx, cfg.Topics); err != nil {
		return nil, fmt.Errorf("seed trending topics failed: %w", err)
	}

	searcher := search.NewClient(cfg.Search.BaseURL, cfg.Search.APIKey, cfg.Search.MaxResults)
	gateway := ai.NewGateway(cfg.LLM, searcher)

	publisher := rabbitmqClient.NewCompletionPublisher(mqConn, cfg.RabbitMQ.DebateCompletedQueue)
	trendingWorker := worker.NewTrendingWorker(mqConn, trending, cfg.RabbitMQ.DebateCompletedQueue, logger)
	if err := trendingWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start trending worker failed: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		Redis:          redisCli,
		MQConn:         mqConn,
		Roster:         r,
		Gateway:        gateway,
		Trending:       trending,
		Publisher:      publisher,
		trendingWorker: trendingWorker,
		StartedAt:      time.Now(),
	}, nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func (a *App) Close() error {
	var closeErr error
	if a.trendingWorker != nil {
		a.trendingWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
