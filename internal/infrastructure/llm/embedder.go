package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/competitiveedge/engine/internal/domain"
)

// Embed returns the embedding vector for text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.models.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedding model configured", domain.ErrEmbeddingFailure)
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		vectors, err := c.models.Embedder.EmbedDocuments(ctx, []string{text})
		switch {
		case err != nil:
			lastErr = err
		case len(vectors) == 0 || len(vectors[0]) == 0:
			lastErr = errors.New("empty embedding")
		default:
			c.logger.Debug("llm: embed", slog.Int("chars", len(text)), slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			return vectors[0], nil
		}

		c.logger.Warn("llm: embed failed", "attempt", attempt, "error", lastErr)
		if attempt < c.maxAttempts {
			if err := sleepContext(ctx, c.exponentialBackoff(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, lastErr)
}
