package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Embedder turns short texts into vectors for cosine similarity
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SimilarityJudge asks a language model to rate two product names from 0 to 1
type SimilarityJudge interface {
	RateSimilarity(ctx context.Context, a, b string) (float64, error)
}

// Extractor turns fetched page content into a raw, schema-keyed record
type Extractor interface {
	Extract(ctx context.Context, page PageContent, schema *ProductSchema) (Record, error)
}
