package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/course-advisor/internal/advisor/metrics"
	"github.com/kart-io/course-advisor/internal/advisor/store"
	"github.com/kart-io/course-advisor/pkg/llm"
)

// CatalogRecord is one course in the ingestion payload.
type CatalogRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

// IndexerConfig configures catalog ingestion.
type IndexerConfig struct {
	// Collection is the catalog collection name.
	Collection string
	// Dimension is the embedding dimension the collection is created with.
	Dimension int
	// BatchSize is the number of records embedded and inserted per batch.
	BatchSize int
}

// Indexer loads catalog records into the vector store.
type Indexer struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	config   *IndexerConfig
	metrics  *metrics.AdvisorMetrics
}

// NewIndexer creates a catalog indexer.
func NewIndexer(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:    vectorStore,
		embedder: embedder,
		config:   config,
		metrics:  metrics.GetAdvisorMetrics(),
	}
}

// courseID derives a stable identifier from the course title.
func courseID(title string) string {
	hash := sha256.Sum256([]byte(title))
	return hex.EncodeToString(hash[:8])
}

// searchableText is the text embedded for similarity search: title plus
// description, matching what user queries are compared against.
func searchableText(record *CatalogRecord) string {
	return record.Title + "\n" + record.Description
}

// IndexCatalog embeds and inserts catalog records in batches. Records with
// an empty title or description are skipped, they could never pass
// retrieval validation.
func (ix *Indexer) IndexCatalog(ctx context.Context, records []CatalogRecord) (int, error) {
	usable := make([]CatalogRecord, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.Title) == "" || strings.TrimSpace(record.Description) == "" {
			logger.Warnw("skipping catalog record with missing fields", "title", record.Title)
			continue
		}
		usable = append(usable, record)
	}

	if len(usable) == 0 {
		return 0, fmt.Errorf("no usable catalog records")
	}

	if err := ix.store.CreateCollection(ctx, &store.CollectionConfig{
		Name:        ix.config.Collection,
		Description: "Course catalog for consultation",
		Dimension:   ix.config.Dimension,
	}); err != nil {
		ix.metrics.RecordIndexing(0, err)
		return 0, fmt.Errorf("failed to ensure collection: %w", err)
	}

	indexed := 0
	for start := 0; start < len(usable); start += ix.config.BatchSize {
		end := start + ix.config.BatchSize
		if end > len(usable) {
			end = len(usable)
		}
		batch := usable[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = searchableText(&batch[i])
		}

		embeddings, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			ix.metrics.RecordIndexing(0, err)
			return indexed, fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}
		if len(embeddings) != len(batch) {
			err := fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(batch))
			ix.metrics.RecordIndexing(0, err)
			return indexed, err
		}

		vectors := make([]*store.CourseVector, len(batch))
		for i, record := range batch {
			if len(embeddings[i]) != ix.config.Dimension {
				err := fmt.Errorf("embedding dimension %d does not match collection dimension %d", len(embeddings[i]), ix.config.Dimension)
				ix.metrics.RecordIndexing(0, err)
				return indexed, NewFailure(FailureConfiguration, err)
			}
			vectors[i] = &store.CourseVector{
				CourseID:    courseID(record.Title),
				Title:       record.Title,
				Description: record.Description,
				Details:     record.Details,
				Embedding:   embeddings[i],
			}
		}

		if _, err := ix.store.Insert(ctx, ix.config.Collection, vectors); err != nil {
			ix.metrics.RecordIndexing(0, err)
			return indexed, fmt.Errorf("failed to insert batch at offset %d: %w", start, err)
		}

		indexed += len(batch)
		logger.Infow("indexed catalog batch",
			"offset", start,
			"size", len(batch),
			"total_indexed", indexed,
		)
	}

	ix.metrics.RecordIndexing(indexed, nil)
	return indexed, nil
}

// ReindexCatalog drops the collection and indexes the records from scratch.
func (ix *Indexer) ReindexCatalog(ctx context.Context, records []CatalogRecord) (int, error) {
	if err := ix.store.DropCollection(ctx, ix.config.Collection); err != nil {
		logger.Warnw("failed to drop collection before reindex", "error", err.Error())
	}
	return ix.IndexCatalog(ctx, records)
}
