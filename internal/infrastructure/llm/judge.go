package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tmc/langchaingo/llms"

	"github.com/competitiveedge/engine/internal/domain"
)

const judgeTemperature = 0.1

var scorePattern = regexp.MustCompile(`\d*\.\d+|\d+`)

// RateSimilarity asks the judge model how similar two product names are
func (c *Client) RateSimilarity(ctx context.Context, a, b string) (float64, error) {
	if c.models.Judge == nil {
		return 0, fmt.Errorf("%w: no judge model configured", domain.ErrJudgeFailure)
	}

	prompt := fmt.Sprintf(`Rate the similarity between these two product names on a scale of 0.0 to 1.0.
Consider brand, model, product type and key specifications.

Product 1: %s
Product 2: %s

Return only a number between 0.0 and 1.0`, a, b)

	text, err := c.generate(ctx, c.models.Judge, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(judgeTemperature))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrJudgeFailure, err)
	}

	return ParseSimilarityScore(text)
}

// ParseSimilarityScore reads the first number in a judge reply, clamped to [0, 1]
func ParseSimilarityScore(text string) (float64, error) {
	match := scorePattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("%w: no score in response %q", domain.ErrJudgeFailure, text)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrJudgeFailure, err)
	}
	return min(max(score, 0), 1), nil
}
