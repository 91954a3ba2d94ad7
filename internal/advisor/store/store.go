package store

import (
	"context"
)

// CourseVector is a catalog entry ready for insertion: its metadata plus
// the embedding of its searchable text.
type CourseVector struct {
	// CourseID is a stable identifier derived from the catalog.
	CourseID string
	// Title is the course title.
	Title string
	// Description is the short catalog description.
	Description string
	// Details is the extended description shown on follow-up, may be empty.
	Details string
	// Embedding is the vector of the searchable text.
	Embedding []float32
}

// SearchResult is a single similarity match. Fields absent or malformed in
// the stored metadata come back as empty strings and are filtered by the
// caller, never trusted.
type SearchResult struct {
	CourseID    string
	Title       string
	Description string
	Details     string
	Score       float32
}

// CollectionConfig describes the catalog collection.
type CollectionConfig struct {
	Name        string
	Description string
	Dimension   int
}

// VectorStore defines the vector storage interface for the course catalog.
type VectorStore interface {
	// CreateCollection creates the collection if it does not exist.
	CreateCollection(ctx context.Context, config *CollectionConfig) error

	// Insert bulk-inserts course vectors.
	Insert(ctx context.Context, collection string, courses []*CourseVector) ([]string, error)

	// Search runs a vector similarity search.
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error)

	// DropCollection removes the collection. Used for full reindexing.
	DropCollection(ctx context.Context, collection string) error

	// GetStats returns the number of stored entries.
	GetStats(ctx context.Context, collection string) (int64, error)

	// Close closes the connection.
	Close(ctx context.Context) error
}
