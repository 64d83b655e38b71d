package index

import (
	"fmt"
	"strings"

	"github.com/w-h-a/lio/storer"
)

const (
	DefaultCollection          = "documents"
	DefaultVectorSize          = 384
	DefaultEmbeddingModel      = "all-MiniLM-L6-v2"
	DefaultBatchSize           = 50
	DefaultSimilarityThreshold = 0.7
)

// CollectionConfig is fixed for the lifetime of a collection. Changing any
// field requires CreateOrReset, which rebuilds the collection.
type CollectionConfig struct {
	Name                string
	VectorSize          int
	Distance            storer.Distance
	EmbeddingModel      string
	BatchSize           int
	SimilarityThreshold float64
}

func DefaultConfig() CollectionConfig {
	return CollectionConfig{
		Name:                DefaultCollection,
		VectorSize:          DefaultVectorSize,
		Distance:            storer.Cosine,
		EmbeddingModel:      DefaultEmbeddingModel,
		BatchSize:           DefaultBatchSize,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

func (c CollectionConfig) Validate() error {
	var problems []string

	if len(strings.TrimSpace(c.Name)) == 0 {
		problems = append(problems, "collection name is required")
	}

	if c.VectorSize <= 0 {
		problems = append(problems, fmt.Sprintf("vector size must be positive, got %d", c.VectorSize))
	}

	switch c.Distance {
	case storer.Cosine, storer.Dot, storer.Euclidean:
	default:
		problems = append(problems, fmt.Sprintf("unknown distance metric %q", c.Distance))
	}

	if c.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch size must be positive, got %d", c.BatchSize))
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		problems = append(problems, fmt.Sprintf("similarity threshold must be within [0, 1], got %v", c.SimilarityThreshold))
	}

	if len(problems) > 0 {
		return configError(problems)
	}

	return nil
}

func (c CollectionConfig) collection() storer.Collection {
	return storer.Collection{
		Name:       c.Name,
		VectorSize: c.VectorSize,
		Distance:   c.Distance,
	}
}
