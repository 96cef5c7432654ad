package domain

import "strings"

// FieldType is the declared primitive type of a schema field
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeInteger FieldType = "integer"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeBoolean FieldType = "boolean"
)

// Valid reports whether t is one of the four supported field types
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeInteger, FieldTypeDecimal, FieldTypeBoolean:
		return true
	}
	return false
}

// Numeric reports whether values of this type are compared arithmetically
func (t FieldType) Numeric() bool {
	return t == FieldTypeInteger || t == FieldTypeDecimal
}

// CompareDirection says which side of a comparison is better
type CompareDirection string

const (
	CompareLower  CompareDirection = "lower"  // lower is better (price, weight)
	CompareHigher CompareDirection = "higher" // higher is better (wattage, capacity)
)

// Valid reports whether d is "lower" or "higher"
func (d CompareDirection) Valid() bool {
	return d == CompareLower || d == CompareHigher
}

// FieldDefinition describes one typed field of a product schema
type FieldDefinition struct {
	Name             string           `json:"name" yaml:"name"`
	Type             FieldType        `json:"type" yaml:"type"`
	Unit             string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	Label            string           `json:"label" yaml:"label"`
	CompareDirection CompareDirection `json:"compareDirection" yaml:"compareDirection"`
	Required         bool             `json:"required" yaml:"required"`
	// Price marks the field as a price explicitly. Fields whose name contains
	// "price" are treated as prices even when this is unset.
	Price bool `json:"price,omitempty" yaml:"price,omitempty"`
}

// IsPrice reports whether red alerts on this field count as price drops
func (f FieldDefinition) IsPrice() bool {
	return f.Price || IsPriceName(f.Name)
}

// IsPriceName is the name heuristic used when no explicit price flag is available
func IsPriceName(name string) bool {
	return strings.Contains(strings.ToLower(name), "price")
}

// MetricDefinition describes a derived metric computed from field values
type MetricDefinition struct {
	Name             string           `json:"name" yaml:"name"`
	Formula          string           `json:"formula" yaml:"formula"`
	Label            string           `json:"label" yaml:"label"`
	CompareDirection CompareDirection `json:"compareDirection" yaml:"compareDirection"`
	Format           string           `json:"format,omitempty" yaml:"format,omitempty"`
}

// ProductSchema is an ordered set of fields plus optional derived metrics
type ProductSchema struct {
	Fields  []FieldDefinition  `json:"fields" yaml:"fields"`
	Metrics []MetricDefinition `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Field returns the field definition with the given name
func (s *ProductSchema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// Record maps field names to typed values: string, int64, float64, bool or nil.
// Raw extraction output uses the same shape with looser values.
type Record map[string]any

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Name returns the record's product name, if it carries one
func (r Record) Name() string {
	if s, ok := r["name"].(string); ok {
		return s
	}
	return ""
}
