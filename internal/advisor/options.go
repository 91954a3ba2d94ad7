// Package app provides the course advisor application.
package app

import (
	"fmt"

	"github.com/spf13/pflag"

	advisoropts "github.com/kart-io/course-advisor/pkg/options/advisor"
	cacheopts "github.com/kart-io/course-advisor/pkg/options/cache"
	httpopts "github.com/kart-io/course-advisor/pkg/options/http"
	llmopts "github.com/kart-io/course-advisor/pkg/options/llm"
	logopts "github.com/kart-io/course-advisor/pkg/options/logger"
	milvusopts "github.com/kart-io/course-advisor/pkg/options/milvus"
)

// Options contains all course advisor options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus database configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Advisor contains retrieval and conversation configuration.
	Advisor *advisoropts.Options `json:"advisor" mapstructure:"advisor"`

	// Cache contains answer cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:      httpopts.NewOptions(),
		Log:       logopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		Advisor:   advisoropts.NewOptions(),
		Cache:     cacheopts.NewOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.Advisor.AddFlags(fs)
	o.Cache.AddFlags(fs)
}

// Validate validates the options.
func (o *Options) Validate() error {
	var errs []error

	if err := o.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.Advisor.Validate()...)
	errs = append(errs, o.Cache.Validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %v", errs)
	}
	return nil
}

// Complete completes the options.
func (o *Options) Complete() error {
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	return o.Cache.Complete()
}
