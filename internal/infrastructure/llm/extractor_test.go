package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitiveedge/engine/internal/domain"
)

func extractionSchema() *domain.ProductSchema {
	return &domain.ProductSchema{
		Fields: []domain.FieldDefinition{
			{Name: "price", Type: domain.FieldTypeDecimal, Label: "Price", Unit: "USD"},
			{Name: "tank_capacity", Type: domain.FieldTypeDecimal, Label: "Tank Capacity", Unit: "gallons"},
		},
	}
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	page := domain.PageContent{
		URL:     "https://shop.example/dehumidifier",
		Text:    "Frigidaire 50 Pint. $229.99. 1.6 gallon bucket.",
		HTML:    `<h1>Frigidaire FFAD5033W1 Dehumidifier</h1>`,
		Success: true,
	}

	t.Run("parses fenced json", func(t *testing.T) {
		model := &fakeModel{replies: []string{"```json\n{\"name\": \"Frigidaire 50 Pint\", \"price\": \"$229.99\", \"tank_capacity\": {\"value\": 1.6, \"unit\": \"gallons\"}}\n```"}}
		client := NewClientFromModels(Models{Extractor: model}, testLimits(), testLogger())

		record, err := client.Extract(ctx, page, extractionSchema())
		require.NoError(t, err)
		assert.Equal(t, "Frigidaire 50 Pint", record["name"])
		assert.Equal(t, "$229.99", record["price"])
		assert.Equal(t, map[string]any{"value": json.Number("1.6"), "unit": "gallons"}, record["tank_capacity"])

		prompt := model.lastPrompt()
		assert.Contains(t, prompt, "- tank_capacity (decimal, unit: gallons): Tank Capacity")
		assert.Contains(t, prompt, page.Text)
	})

	t.Run("unknown name falls back to page title", func(t *testing.T) {
		model := &fakeModel{replies: []string{`{"name": "Unknown", "price": 229.99}`}}
		client := NewClientFromModels(Models{Extractor: model}, testLimits(), testLogger())

		record, err := client.Extract(ctx, page, extractionSchema())
		require.NoError(t, err)
		assert.Equal(t, "Frigidaire FFAD5033W1 Dehumidifier", record["name"])
	})

	t.Run("failed fetch is rejected", func(t *testing.T) {
		model := &fakeModel{replies: []string{"{}"}}
		client := NewClientFromModels(Models{Extractor: model}, testLimits(), testLogger())

		_, err := client.Extract(ctx, domain.PageContent{URL: "https://x.example", Text: "t"}, extractionSchema())
		assert.ErrorIs(t, err, domain.ErrExtractionFailure)
		assert.Equal(t, 0, model.calls)
	})

	t.Run("empty page is rejected", func(t *testing.T) {
		client := NewClientFromModels(Models{Extractor: &fakeModel{}}, testLimits(), testLogger())

		_, err := client.Extract(ctx, domain.PageContent{URL: "https://x.example", Success: true}, extractionSchema())
		assert.ErrorIs(t, err, domain.ErrExtractionFailure)
	})

	t.Run("non json reply", func(t *testing.T) {
		model := &fakeModel{replies: []string{"Sorry, I could not find the product."}}
		client := NewClientFromModels(Models{Extractor: model}, testLimits(), testLogger())

		_, err := client.Extract(ctx, page, extractionSchema())
		assert.ErrorIs(t, err, domain.ErrExtractionFailure)
	})
}
