package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/competitiveedge/engine/internal/domain"
	"github.com/competitiveedge/engine/internal/usecase"
)

const extractionTemperature = 0.1

// Extract asks the extraction model for a raw record keyed by the schema's
// field names. The result still needs normalizing.
func (c *Client) Extract(ctx context.Context, page domain.PageContent, schema *domain.ProductSchema) (domain.Record, error) {
	if c.models.Extractor == nil {
		return nil, fmt.Errorf("%w: no extraction model configured", domain.ErrExtractionFailure)
	}
	if !page.Success {
		return nil, fmt.Errorf("%w: page %s was not fetched", domain.ErrExtractionFailure, page.URL)
	}

	content := PreparePageContent(page)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: page %s has no content", domain.ErrExtractionFailure, page.URL)
	}

	start := time.Now()
	prompt := usecase.BuildExtractionPrompt(schema) + content + usecase.ExtractionResponseSuffix
	text, err := c.generate(ctx, c.models.Extractor, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, usecase.ExtractionSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(extractionTemperature))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailure, err)
	}

	record, err := usecase.ParseExtractionResponse(text)
	if err != nil {
		return nil, err
	}

	if missingName(record["name"]) {
		if title := TitleFromHTML(page.HTML); title != "" {
			record["name"] = title
		}
	}

	c.logger.Debug("llm: extract",
		slog.String("url", page.URL),
		slog.Int("fields", len(record)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return record, nil
}

func missingName(v any) bool {
	if usecase.IsNullValue(v) {
		return true
	}
	s, ok := v.(string)
	return ok && strings.EqualFold(strings.TrimSpace(s), "unknown")
}
