package biz

import (
	"context"

	"github.com/kart-io/course-advisor/internal/advisor/metrics"
	"github.com/kart-io/course-advisor/internal/advisor/store"
	"github.com/kart-io/course-advisor/pkg/llm"
)

// Service is the consultation service consumed by the transport layer.
type Service interface {
	// HandleQuery resolves one query on the given conversation and always
	// returns a user-facing string.
	HandleQuery(ctx context.Context, conv *Conversation, query string) string
	// Sessions exposes conversation lifecycle management to the transport.
	Sessions() *Manager
	// IndexCatalog ingests catalog records into the vector index.
	IndexCatalog(ctx context.Context, records []CatalogRecord) (int, error)
	// ReindexCatalog rebuilds the index from scratch and clears the
	// answer cache.
	ReindexCatalog(ctx context.Context, records []CatalogRecord) (int, error)
	// GetStats reports catalog and pipeline statistics.
	GetStats(ctx context.Context) (map[string]any, error)
}

// AdvisorService composes the pipeline, indexer and session manager.
type AdvisorService struct {
	pipeline      *Pipeline
	indexer       *Indexer
	sessions      *Manager
	cache         *AnswerCache
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider
	collection    string
	metrics       *metrics.AdvisorMetrics
}

// ServiceConfig bundles the component configurations.
type ServiceConfig struct {
	RetrieverConfig *RetrieverConfig
	IndexerConfig   *IndexerConfig
	PipelineConfig  *PipelineConfig
	CacheConfig     *AnswerCacheConfig
	// Triggers overrides the follow-up trigger phrases. Empty keeps the
	// defaults.
	Triggers []string
}

// NewAdvisorService creates the consultation service.
func NewAdvisorService(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	cache *AnswerCache,
	config *ServiceConfig,
) *AdvisorService {
	classifier := NewTriggerClassifier(config.Triggers)
	retriever := NewRetriever(vectorStore, embedProvider, config.RetrieverConfig)
	pipeline := NewPipeline(classifier, retriever, chatProvider, cache, config.PipelineConfig)
	indexer := NewIndexer(vectorStore, embedProvider, config.IndexerConfig)

	return &AdvisorService{
		pipeline:      pipeline,
		indexer:       indexer,
		sessions:      NewManager(),
		cache:         cache,
		store:         vectorStore,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
		collection:    config.IndexerConfig.Collection,
		metrics:       metrics.GetAdvisorMetrics(),
	}
}

var _ Service = (*AdvisorService)(nil)

// HandleQuery resolves one query on the conversation.
func (s *AdvisorService) HandleQuery(ctx context.Context, conv *Conversation, query string) string {
	return s.pipeline.HandleQuery(ctx, conv, query)
}

// Sessions returns the session manager.
func (s *AdvisorService) Sessions() *Manager {
	return s.sessions
}

// IndexCatalog ingests catalog records.
func (s *AdvisorService) IndexCatalog(ctx context.Context, records []CatalogRecord) (int, error) {
	return s.indexer.IndexCatalog(ctx, records)
}

// ReindexCatalog rebuilds the index and drops cached answers grounded on
// the old catalog.
func (s *AdvisorService) ReindexCatalog(ctx context.Context, records []CatalogRecord) (int, error) {
	indexed, err := s.indexer.ReindexCatalog(ctx, records)
	if err != nil {
		return indexed, err
	}
	if s.cache != nil {
		_ = s.cache.Clear(ctx)
	}
	return indexed, nil
}

// GetStats reports catalog, cache and pipeline statistics.
func (s *AdvisorService) GetStats(ctx context.Context) (map[string]any, error) {
	count, err := s.store.GetStats(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"collection":     s.collection,
		"course_count":   count,
		"sessions":       s.sessions.Count(),
		"embed_provider": s.embedProvider.Name(),
		"chat_provider":  s.chatProvider.Name(),
	}

	if s.cache != nil {
		cacheStats, err := s.cache.GetStats(ctx)
		if err == nil {
			stats["cache"] = cacheStats
		}
	}

	stats["metrics"] = s.metrics.Stats()

	return stats, nil
}
