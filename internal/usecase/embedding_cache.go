package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/competitiveedge/engine/internal/domain"
)

// CachedEmbedderConfig holds configuration for the embedding cache
type CachedEmbedderConfig struct {
	// Model is part of the cache key so vectors from different models never mix
	Model string
	TTL   time.Duration
}

// CachedEmbedder decorates an Embedder with a vector cache
type CachedEmbedder struct {
	next   domain.Embedder
	cache  domain.CacheRepository
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedEmbedder wraps next with cache
func NewCachedEmbedder(next domain.Embedder, cache domain.CacheRepository, config CachedEmbedderConfig, logger *slog.Logger) *CachedEmbedder {
	ttl := config.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		model:  config.Model,
		ttl:    ttl,
		logger: logger,
	}
}

// Embed returns the cached vector for text or computes and stores it. The
// embedder sees the same canonical text the key is built from, so every
// input sharing a key would have produced the same vector.
// Cache failures never fail the call.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = canonicalName(text)
	key := e.cacheKey(text)

	if vec, err := e.getFromCache(ctx, key); err == nil {
		return vec, nil
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, vec, e.ttl); err != nil {
		e.logger.Warn("embedding cache: set failed", "error", err)
	}
	return vec, nil
}

// cacheKey format: "embedding:{model}:{canonical text}". Case is significant.
func (e *CachedEmbedder) cacheKey(text string) string {
	return fmt.Sprintf("embedding:%s:%s", e.model, canonicalName(text))
}

func (e *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, error) {
	value, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	vec, ok := value.([]float32)
	if !ok || len(vec) == 0 {
		return nil, domain.ErrCacheMiss
	}
	return vec, nil
}
