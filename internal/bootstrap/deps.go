// Package bootstrap wires configuration, backends, and services into a
// running application.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mailtriage/adapter/out/persistence"
	"mailtriage/config"
	"mailtriage/core/agent/llm"
	"mailtriage/core/agent/rag"
	"mailtriage/core/service/classify"
	"mailtriage/core/service/pipeline"
	"mailtriage/core/service/respond"
	"mailtriage/core/service/textsignal"
	"mailtriage/infra/database"
	"mailtriage/pkg/cache"
	"mailtriage/pkg/logger"
)

type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *pgxpool.Pool
	SQLDB *sqlx.DB
	Redis *redis.Client
	Cache *cache.RedisCache

	ResultRepo *persistence.ResultAdapter

	LLMClient *llm.Client
	Gateway   *llm.Gateway
	Analyzer  *textsignal.Analyzer
	Engine    *classify.Engine
	Generator *respond.Generator

	Embedder    *rag.Embedder
	VectorStore *rag.PGVectorStore
	Index       *rag.Index

	Processor *pipeline.Processor
	Batch     *pipeline.BatchProcessor
}

// NewDependencies builds the full dependency graph. The returned cleanup
// closes every connection it opened; it is safe to call after a partial
// failure because NewDependencies closes what it opened before returning
// an error.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Service: "mailtriage",
		Console: cfg.IsDevelopment(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps := &Dependencies{Config: cfg, Log: log}
	cleanup := func() {
		if deps.SQLDB != nil {
			deps.SQLDB.Close()
		}
		if deps.Redis != nil {
			deps.Redis.Close()
		}
		if deps.DB != nil {
			deps.DB.Close()
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		deps.DB = db

		sqlDB, err := sqlx.ConnectContext(ctx, "pgx", cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect sqlx: %w", err)
		}
		deps.SQLDB = sqlDB
		deps.ResultRepo = persistence.NewResultAdapter(sqlDB)
	}

	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		deps.Redis = redisClient
		deps.Cache = cache.NewRedisCache(redisClient)
	}

	deps.LLMClient = llm.NewClient(llm.ClientConfig{
		APIKey:         cfg.OpenAIAPIKey,
		Model:          cfg.LLMModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	deps.Gateway = llm.NewGateway(deps.LLMClient, llm.GatewayConfig{
		MaxRetries: cfg.LLMMaxRetries,
		RetryDelay: cfg.LLMRetryDelay,
	}, log)

	deps.Analyzer = textsignal.NewAnalyzer()
	deps.Engine = classify.NewEngine(deps.Gateway, deps.Analyzer, classify.EngineConfig{
		Temperature: cfg.LLMTemperature,
	}, log)
	deps.Generator = respond.NewGenerator(deps.Gateway, respond.GeneratorConfig{
		MaxTokens:        cfg.LLMMaxTokens,
		MaxContentLength: cfg.MaxResponseLength,
		Temperature:      cfg.LLMTemperature,
	}, log)

	deps.Embedder = rag.NewEmbedder(deps.LLMClient, rag.NewEmbeddingCache(rag.DefaultEmbeddingCacheConfig()))
	if deps.DB != nil {
		deps.VectorStore = rag.NewPGVectorStore(deps.DB)
		deps.Index = rag.NewIndex(deps.Embedder, deps.VectorStore, log)
	}

	var idx pipeline.Indexer
	if deps.Index != nil {
		idx = deps.Index
	}
	var classificationCache pipeline.ClassificationCache
	if deps.Cache != nil {
		classificationCache = deps.Cache
	}

	deps.Processor = pipeline.NewProcessor(deps.Engine, deps.Generator, idx, classificationCache,
		pipeline.ProcessorConfig{CacheTTL: cfg.CacheClassifyTTL}, log)
	if deps.ResultRepo != nil {
		deps.Processor.WithResultStore(deps.ResultRepo)
	}
	deps.Batch = pipeline.NewBatchProcessor(deps.Processor, cfg.WorkerCount, log)

	return deps, cleanup, nil
}
