// Package advisor provides course consultation configuration options.
package advisor

import (
	"fmt"
	"time"

	"github.com/kart-io/course-advisor/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains consultation pipeline configuration.
type Options struct {
	// Collection is the name of the Milvus collection holding the catalog.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// FreshTopK is the number of candidates retrieved for a fresh query.
	FreshTopK int `json:"fresh-top-k" mapstructure:"fresh-top-k"`

	// FollowUpTopK is the number of candidates retrieved for a follow-up query.
	FollowUpTopK int `json:"follow-up-top-k" mapstructure:"follow-up-top-k"`

	// HistoryWindow is the number of most recent conversation messages
	// included in the generation prompt.
	HistoryWindow int `json:"history-window" mapstructure:"history-window"`

	// IngestBatchSize is the number of catalog entries embedded and
	// inserted per batch during indexing.
	IngestBatchSize int `json:"ingest-batch-size" mapstructure:"ingest-batch-size"`

	// SessionTTL is how long an idle conversation is kept before the
	// sweeper evicts it. Zero disables eviction.
	SessionTTL time.Duration `json:"session-ttl" mapstructure:"session-ttl"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:      "course_catalog",
		EmbeddingDim:    1536,
		FreshTopK:       13,
		FollowUpTopK:    1,
		HistoryWindow:   10,
		IngestBatchSize: 100,
		SessionTTL:      30 * time.Minute,
	}
}

// AddFlags adds flags for consultation options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"advisor.collection", o.Collection, "Milvus collection name for the course catalog.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"advisor.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.FreshTopK, options.Join(prefixes...)+"advisor.fresh-top-k", o.FreshTopK, "Number of candidates retrieved for fresh queries.")
	fs.IntVar(&o.FollowUpTopK, options.Join(prefixes...)+"advisor.follow-up-top-k", o.FollowUpTopK, "Number of candidates retrieved for follow-up queries.")
	fs.IntVar(&o.HistoryWindow, options.Join(prefixes...)+"advisor.history-window", o.HistoryWindow, "Number of recent messages included in the prompt.")
	fs.IntVar(&o.IngestBatchSize, options.Join(prefixes...)+"advisor.ingest-batch-size", o.IngestBatchSize, "Catalog entries embedded per batch during indexing.")
	fs.DurationVar(&o.SessionTTL, options.Join(prefixes...)+"advisor.session-ttl", o.SessionTTL, "How long an idle conversation is kept. Zero disables eviction.")
}

// Validate validates the consultation options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("advisor collection is required"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("advisor embedding-dim must be positive"))
	}
	if o.FreshTopK <= 0 {
		errs = append(errs, fmt.Errorf("advisor fresh-top-k must be positive"))
	}
	if o.FollowUpTopK <= 0 {
		errs = append(errs, fmt.Errorf("advisor follow-up-top-k must be positive"))
	}
	if o.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("advisor history-window must not be negative"))
	}
	if o.IngestBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("advisor ingest-batch-size must be positive"))
	}
	if o.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("advisor session-ttl must not be negative"))
	}
	return errs
}
