package usecase

import (
	"fmt"
	"strings"

	"github.com/competitiveedge/engine/internal/domain"
)

// ValidateSchema checks a schema's structure. Formulas are not checked here:
// a formula may reference fields that are added later, so formula problems
// surface when metrics are evaluated.
func ValidateSchema(schema *domain.ProductSchema) (bool, []string) {
	if schema == nil {
		return false, []string{"schema is required"}
	}

	var errs []string
	if len(schema.Fields) == 0 {
		errs = append(errs, "schema must define at least one field")
	}

	seenFields := make(map[string]int)
	for i, field := range schema.Fields {
		if field.Name == "" {
			errs = append(errs, fmt.Sprintf("field #%d name cannot be empty", i+1))
		} else {
			seenFields[field.Name]++
			if seenFields[field.Name] == 2 {
				errs = append(errs, fmt.Sprintf("duplicate field name %q", field.Name))
			}
		}
		ref := fieldRef(field.Name, i)
		if strings.TrimSpace(field.Label) == "" {
			errs = append(errs, fmt.Sprintf("field %s must have a label", ref))
		}
		if !field.Type.Valid() {
			errs = append(errs, fmt.Sprintf("field %s has unsupported type %q", ref, field.Type))
		}
		if !field.CompareDirection.Valid() {
			errs = append(errs, fmt.Sprintf("field %s compareDirection must be \"lower\" or \"higher\"", ref))
		}
	}

	seenMetrics := make(map[string]int)
	for i, metric := range schema.Metrics {
		if metric.Name == "" {
			errs = append(errs, fmt.Sprintf("metric #%d name cannot be empty", i+1))
		} else {
			seenMetrics[metric.Name]++
			if seenMetrics[metric.Name] == 2 {
				errs = append(errs, fmt.Sprintf("duplicate metric name %q", metric.Name))
			}
		}
		ref := fieldRef(metric.Name, i)
		if strings.TrimSpace(metric.Label) == "" {
			errs = append(errs, fmt.Sprintf("metric %s must have a label", ref))
		}
		if strings.TrimSpace(metric.Formula) == "" {
			errs = append(errs, fmt.Sprintf("metric %s must have a formula", ref))
		}
		if !metric.CompareDirection.Valid() {
			errs = append(errs, fmt.Sprintf("metric %s compareDirection must be \"lower\" or \"higher\"", ref))
		}
	}

	return len(errs) == 0, errs
}

func fieldRef(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("#%d", i+1)
	}
	return fmt.Sprintf("%q", name)
}

// ValidateData checks a record against a schema: required fields must be
// present and non-null, present values must be coercible to the field type.
func ValidateData(record domain.Record, schema *domain.ProductSchema) (bool, []string) {
	if schema == nil {
		return false, []string{"schema is required"}
	}

	var errs []string
	for _, field := range schema.Fields {
		value, present := record[field.Name]
		if !present || IsNullValue(value) {
			if field.Required {
				errs = append(errs, fmt.Sprintf("required field %q is missing", field.Name))
			}
			continue
		}

		switch field.Type {
		case domain.FieldTypeInteger:
			if !coercibleNumber(field, value) {
				errs = append(errs, fmt.Sprintf("field %q must be an integer", field.Name))
			}
		case domain.FieldTypeDecimal:
			if !coercibleNumber(field, value) {
				errs = append(errs, fmt.Sprintf("field %q must be a decimal number", field.Name))
			}
		case domain.FieldTypeBoolean:
			if _, ok := value.(bool); !ok {
				errs = append(errs, fmt.Sprintf("field %q must be a boolean", field.Name))
			}
		case domain.FieldTypeText:
			if _, ok := value.(string); !ok {
				errs = append(errs, fmt.Sprintf("field %q must be a string", field.Name))
			}
		}
	}

	return len(errs) == 0, errs
}

// coercibleNumber accepts numbers, numeric strings (units allowed) and
// {value, unit} objects, exactly as the normalizer would.
func coercibleNumber(field domain.FieldDefinition, value any) bool {
	v, _, err := numericValue(field, ParseRawValue(value))
	if err != nil {
		return false
	}
	_, err = coerceNumeric(field.Type, v)
	return err == nil
}

// RevalidateRecords is the explicit schema-update path: it validates the new
// schema, then every existing record against it. The map holds errors keyed
// by record index and is empty when all records conform.
func RevalidateRecords(schema *domain.ProductSchema, records []domain.Record) (map[int][]string, error) {
	if ok, errs := ValidateSchema(schema); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSchema, strings.Join(errs, "; "))
	}

	failures := make(map[int][]string)
	for i, record := range records {
		if ok, errs := ValidateData(record, schema); !ok {
			failures[i] = errs
		}
	}
	return failures, nil
}
