package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/course-advisor/internal/advisor/store"
)

func newTestRetriever(st *fakeStore, emb *fakeEmbedder) *Retriever {
	return NewRetriever(st, emb, &RetrieverConfig{Collection: "courses_test"})
}

func TestRetrieve_DropsMalformedMatches(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return []*store.SearchResult{
				{CourseID: "a", Title: "Курс A", Description: "Описание A", Score: 0.9},
				{CourseID: "b", Title: "", Description: "Описание B", Score: 0.8},
				{CourseID: "c", Title: "Курс C", Description: "Описание C", Score: 0.7},
			}, nil
		},
	}

	result, err := newTestRetriever(st, &fakeEmbedder{}).Retrieve(context.Background(), "запрос", 3)

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalMatches)
	require.Len(t, result.Entries, 2)
	// Surviving entries keep similarity order.
	assert.Equal(t, "Курс A", result.Entries[0].Title)
	assert.Equal(t, "Курс C", result.Entries[1].Title)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	st := &fakeStore{statsCount: 0}
	emb := &fakeEmbedder{}

	_, err := newTestRetriever(st, emb).Retrieve(context.Background(), "запрос", 5)

	require.Error(t, err)
	assert.Equal(t, FailureEmptyIndex, AsFailure(err).Kind)
	// No embedding call when the index is known to be empty.
	assert.Zero(t, emb.calls)
	assert.Zero(t, st.searchCalls)
}

func TestRetrieve_StatsFailure(t *testing.T) {
	st := &fakeStore{statsErr: fmt.Errorf("unavailable")}

	_, err := newTestRetriever(st, &fakeEmbedder{}).Retrieve(context.Background(), "запрос", 5)

	require.Error(t, err)
	assert.Equal(t, FailureIndex, AsFailure(err).Kind)
}

func TestRetrieve_SearchFailure(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return nil, fmt.Errorf("segment not loaded")
		},
	}

	_, err := newTestRetriever(st, &fakeEmbedder{}).Retrieve(context.Background(), "запрос", 5)

	require.Error(t, err)
	assert.Equal(t, FailureIndex, AsFailure(err).Kind)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	st := &fakeStore{statsCount: 10}
	emb := &fakeEmbedder{embedErr: fmt.Errorf("quota exceeded")}

	_, err := newTestRetriever(st, emb).Retrieve(context.Background(), "запрос", 5)

	require.Error(t, err)
	assert.Equal(t, FailureEmbedding, AsFailure(err).Kind)
	assert.Zero(t, st.searchCalls)
}

func TestRetrieve_NoMatchesAtAll(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return nil, nil
		},
	}

	_, err := newTestRetriever(st, &fakeEmbedder{}).Retrieve(context.Background(), "запрос", 5)

	require.Error(t, err)
	assert.Equal(t, FailureNoUsableMatches, AsFailure(err).Kind)
}

func TestRetrieve_PassesTopK(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, topK int) ([]*store.SearchResult, error) {
			return courseMatches("Курс"), nil
		},
	}

	_, err := newTestRetriever(st, &fakeEmbedder{}).Retrieve(context.Background(), "запрос", 13)

	require.NoError(t, err)
	assert.Equal(t, 13, st.lastTopK)
}
