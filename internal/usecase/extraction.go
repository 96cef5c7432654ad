package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/competitiveedge/engine/internal/domain"
)

// ExtractionSystemPrompt frames the model as a JSON-only extractor
const ExtractionSystemPrompt = `You are a product data extraction assistant. Extract product specifications from web pages and return them as JSON.

Important guidelines:
1. Always extract the product name/title. Look for product titles, headings, or product names prominently displayed.
2. Extract all requested fields from the schema. Use null for fields that cannot be found.
3. For numeric values, extract the actual numbers and include units when they differ from the schema.
4. Return ONLY valid JSON, no markdown formatting, no code blocks, no explanations.
5. The JSON keys must match the exact field names from the schema.`

// ExtractionResponseSuffix is appended after the page content
const ExtractionResponseSuffix = "\n\nReturn ONLY a valid JSON object with the exact field names as keys. No markdown, no code blocks, no explanations."

// BuildExtractionPrompt lists the schema's fields for the extraction model.
// A name field is always requested first. Page content is appended by the caller.
func BuildExtractionPrompt(schema *domain.ProductSchema) string {
	var fields []domain.FieldDefinition
	if schema != nil {
		fields = schema.Fields
	}

	var b strings.Builder
	b.WriteString("Extract the following product specifications from the provided product page content.\n\n")
	b.WriteString("CRITICAL: You MUST extract the product name/title.\n\n")
	b.WriteString("Fields to extract:\n")

	hasName := false
	for _, f := range fields {
		if f.Name == nameField {
			hasName = true
			break
		}
	}
	if !hasName {
		b.WriteString("- name (text): Product name or title\n")
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s (%s", f.Name, f.Type)
		if f.Unit != "" {
			fmt.Fprintf(&b, ", unit: %s", f.Unit)
		}
		fmt.Fprintf(&b, "): %s\n", f.Label)
	}

	b.WriteString(`
Return the data as a JSON object with the exact field names as keys. Use null for fields that cannot be found.

UNIT HANDLING:
- For fields with a unit in the schema, return {"value": 1.6, "unit": "gallons"} or just the number if the unit matches
- If the unit on the page differs from the schema unit, include it so conversion can happen
- For fields without units, return just the numeric value

PRICE FIELDS:
- Extract as a decimal number (e.g. 199.99) without currency symbols or commas

EXAMPLES:
- Schema unit "gallons", page shows "1.6 gallons" -> {"value": 1.6, "unit": "gallons"} or 1.6
- Schema unit "gallons", page shows "6 liters" -> {"value": 6, "unit": "liters"}
- Schema unit "W", page shows "2000W" -> {"value": 2000, "unit": "W"} or 2000
- No unit, page shows "$199.99" -> 199.99

Product page content:
`)
	return b.String()
}

// ParseExtractionResponse decodes the model's JSON object. The object may be
// bare, inside a fenced code block, or surrounded by prose. Numbers are kept
// as json.Number.
func ParseExtractionResponse(text string) (domain.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrExtractionFailure)
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		end := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				end = i
				break
			}
		}
		text = strings.Join(lines[1:end], "\n")
	}

	start, stop := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || stop < start {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrExtractionFailure)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : stop+1])))
	dec.UseNumber()
	var record domain.Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailure, err)
	}
	return record, nil
}
