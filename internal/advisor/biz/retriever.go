package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/course-advisor/internal/advisor/store"
	"github.com/kart-io/course-advisor/pkg/llm"
)

// RetrieverConfig configures the retrieval engine.
type RetrieverConfig struct {
	// Collection is the catalog collection name.
	Collection string
}

// RetrievalResult carries the usable entries plus the raw match count so
// callers can observe how many matches were dropped during validation.
type RetrievalResult struct {
	Entries      []CatalogEntry
	TotalMatches int
}

// Retriever turns a query into a ranked list of usable catalog entries.
type Retriever struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	config   *RetrieverConfig
}

// NewRetriever creates a retrieval engine.
func NewRetriever(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:    vectorStore,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve embeds the query, searches the catalog and validates match
// metadata. Matches missing a title or description are dropped. Ordering is
// the similarity order returned by the index, never re-sorted.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (*RetrievalResult, error) {
	count, err := r.store.GetStats(ctx, r.config.Collection)
	if err != nil {
		return nil, NewFailure(FailureIndex, fmt.Errorf("failed to read index stats: %w", err))
	}
	if count == 0 {
		return nil, NewFailure(FailureEmptyIndex, nil)
	}

	embedding, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, NewFailure(FailureEmbedding, err)
	}
	if len(embedding) == 0 {
		return nil, NewFailure(FailureEmbedding, fmt.Errorf("embedder returned no vector"))
	}

	matches, err := r.store.Search(ctx, r.config.Collection, embedding, topK)
	if err != nil {
		return nil, NewFailure(FailureIndex, err)
	}

	entries := make([]CatalogEntry, 0, len(matches))
	for _, match := range matches {
		if match.Title == "" || match.Description == "" {
			logger.Warnw("dropping match with incomplete metadata",
				"course_id", match.CourseID,
				"score", match.Score,
			)
			continue
		}
		entries = append(entries, CatalogEntry{
			ID:          match.CourseID,
			Title:       match.Title,
			Description: match.Description,
			Details:     match.Details,
			Score:       match.Score,
		})
	}

	if len(entries) == 0 {
		return nil, NewFailure(FailureNoUsableMatches, fmt.Errorf("%d raw matches, none usable", len(matches)))
	}

	return &RetrievalResult{
		Entries:      entries,
		TotalMatches: len(matches),
	}, nil
}
