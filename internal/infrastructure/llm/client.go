// Package llm adapts langchaingo models to the engine's embedding, similarity
// judge and extraction collaborators.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

// Models are the langchaingo collaborators a Client drives. Any may be nil;
// the matching call then fails with its domain error.
type Models struct {
	Embedder  embeddings.Embedder
	Judge     llms.Model
	Extractor llms.Model
}

// Limits configures rate limiting and retries shared by every model call
type Limits struct {
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
	BaseBackoff       time.Duration
}

// Client implements domain.Embedder, domain.SimilarityJudge and
// domain.Extractor on top of langchaingo. All calls share one rate limiter.
type Client struct {
	models      Models
	rateLimiter *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      *slog.Logger
}

// NewClientFromModels wraps already constructed models
func NewClientFromModels(models Models, limits Limits, logger *slog.Logger) *Client {
	rps := limits.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := limits.Burst
	if burst <= 0 {
		burst = 10
	}
	attempts := limits.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := limits.BaseBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		models:      models,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		maxAttempts: attempts,
		baseBackoff: backoff,
		logger:      logger,
	}
}

// HasExtractor reports whether an extraction model is configured
func (c *Client) HasExtractor() bool {
	return c.models.Extractor != nil
}

// generate sends messages to model, retrying transient failures with
// exponential backoff
func (c *Client) generate(ctx context.Context, model llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := model.GenerateContent(ctx, messages, opts...)
		switch {
		case err != nil:
			lastErr = err
		case resp == nil || len(resp.Choices) == 0:
			lastErr = errors.New("no response choices")
		default:
			return resp.Choices[0].Content, nil
		}

		c.logger.Warn("llm: generate failed", "attempt", attempt, "error", lastErr)
		if attempt < c.maxAttempts {
			if err := sleepContext(ctx, c.exponentialBackoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

// exponentialBackoff returns base, 2*base, 4*base, ...
func (c *Client) exponentialBackoff(attempt int) time.Duration {
	return c.baseBackoff * time.Duration(1<<(attempt-1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
