package app

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/course-advisor/internal/advisor/biz"
	"github.com/kart-io/course-advisor/internal/advisor/handler"
	"github.com/kart-io/course-advisor/internal/advisor/store"
	"github.com/kart-io/course-advisor/pkg/app"
	"github.com/kart-io/course-advisor/pkg/component/milvus"
	"github.com/kart-io/course-advisor/pkg/llm"

	// Register LLM providers.
	_ "github.com/kart-io/course-advisor/pkg/llm/deepseek"
	_ "github.com/kart-io/course-advisor/pkg/llm/ollama"
	_ "github.com/kart-io/course-advisor/pkg/llm/openai"
)

const (
	appName        = "course-advisor"
	appDescription = `Course Advisor Service

A conversational consultant over an IT course catalog.

This server provides:
  - Catalog indexing with vector embeddings
  - Semantic course retrieval with grounded answers
  - Per-session conversations over WebSocket and REST`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the course advisor with the given options.
func Run(opts *Options) error {
	fmt.Printf("Starting %s...\n", appName)

	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting course advisor...")

	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to initialize milvus: %w", err)
	}
	defer milvusClient.Close(context.Background())
	logger.Info("Milvus client initialized")

	vectorStore := store.NewMilvusStore(milvusClient)

	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	chatProvider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("LLM providers initialized",
		"embedding", embedProvider.Name(), "chat", chatProvider.Name())

	var redisClient *goredis.Client
	if opts.Cache.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         opts.Cache.Redis.Addr(),
			Password:     opts.Cache.Redis.Password,
			DB:           opts.Cache.Redis.Database,
			MaxRetries:   opts.Cache.Redis.MaxRetries,
			PoolSize:     opts.Cache.Redis.PoolSize,
			DialTimeout:  opts.Cache.Redis.DialTimeout,
			ReadTimeout:  opts.Cache.Redis.ReadTimeout,
			WriteTimeout: opts.Cache.Redis.WriteTimeout,
		})
		defer redisClient.Close()
	}
	answerCache := biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
		Enabled:   opts.Cache.Enabled,
		TTL:       opts.Cache.TTL,
		KeyPrefix: opts.Cache.KeyPrefix,
	})

	service := biz.NewAdvisorService(vectorStore, embedProvider, chatProvider, answerCache, &biz.ServiceConfig{
		RetrieverConfig: &biz.RetrieverConfig{
			Collection: opts.Advisor.Collection,
		},
		IndexerConfig: &biz.IndexerConfig{
			Collection: opts.Advisor.Collection,
			Dimension:  opts.Advisor.EmbeddingDim,
			BatchSize:  opts.Advisor.IngestBatchSize,
		},
		PipelineConfig: &biz.PipelineConfig{
			FreshTopK:     opts.Advisor.FreshTopK,
			FollowUpTopK:  opts.Advisor.FollowUpTopK,
			HistoryWindow: opts.Advisor.HistoryWindow,
		},
		CacheConfig: &biz.AnswerCacheConfig{
			Enabled:   opts.Cache.Enabled,
			TTL:       opts.Cache.TTL,
			KeyPrefix: opts.Cache.KeyPrefix,
		},
	})
	logger.Info("Advisor service initialized")

	advisorHandler := handler.NewAdvisorHandler(service, milvusClient, opts.Advisor.Collection)
	logger.Info("Handler layer initialized")

	logger.Info("Course advisor is ready")
	return runServer(opts, service, advisorHandler)
}
