package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/course-advisor/pkg/component/milvus"
)

// MilvusStore implements VectorStore on top of Milvus.
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore creates a Milvus-backed store.
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

var _ VectorStore = (*MilvusStore)(nil)

// CreateCollection creates the catalog collection.
func (s *MilvusStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: "course_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "title", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "description", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "details", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// Insert bulk-inserts course vectors into Milvus.
func (s *MilvusStore) Insert(ctx context.Context, collection string, courses []*CourseVector) ([]string, error) {
	if len(courses) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(courses))
	metadata := map[string][]any{
		"course_id":   make([]any, len(courses)),
		"title":       make([]any, len(courses)),
		"description": make([]any, len(courses)),
		"details":     make([]any, len(courses)),
	}

	for i, course := range courses {
		embeddings[i] = course.Embedding
		metadata["course_id"][i] = course.CourseID
		metadata["title"][i] = course.Title
		metadata["description"][i] = course.Description
		metadata["details"][i] = course.Details
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	ids, err := s.client.Insert(ctx, collection, data)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into milvus: %w", err)
	}

	stringIDs := make([]string, len(ids))
	for i, id := range ids {
		stringIDs[i] = fmt.Sprintf("%d", id)
	}

	return stringIDs, nil
}

// Search runs a vector similarity search. Metadata fields are extracted
// defensively so a missing or non-string value surfaces as an empty string
// instead of a panic.
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	outputFields := []string{"course_id", "title", "description", "details"}
	results, err := s.client.Search(ctx, collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	searchResults := make([]*SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = &SearchResult{
			CourseID:    stringField(r.Metadata, "course_id"),
			Title:       stringField(r.Metadata, "title"),
			Description: stringField(r.Metadata, "description"),
			Details:     stringField(r.Metadata, "details"),
			Score:       r.Score,
		}
	}

	return searchResults, nil
}

// DropCollection removes the collection.
func (s *MilvusStore) DropCollection(ctx context.Context, collection string) error {
	return s.client.DropCollection(ctx, collection)
}

// GetStats returns the number of stored entries.
func (s *MilvusStore) GetStats(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// Close closes the underlying client.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func stringField(metadata map[string]any, name string) string {
	v, ok := metadata[name]
	if !ok {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		return ""
	}
	return str
}
