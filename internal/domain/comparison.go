package domain

import "encoding/json"

// Advantage names which side of a comparison comes out ahead
type Advantage string

const (
	AdvantageUser       Advantage = "user"
	AdvantageCompetitor Advantage = "competitor"
	AdvantageEqual      Advantage = "equal"
	AdvantageDifferent  Advantage = "different"
)

// AlertLevel classifies a competitor advantage. The zero value means no alert
// and is encoded as JSON null.
type AlertLevel string

const (
	AlertNone   AlertLevel = ""
	AlertRed    AlertLevel = "red"    // price disadvantage
	AlertYellow AlertLevel = "yellow" // spec disadvantage
)

// MarshalJSON encodes AlertNone as null
func (a AlertLevel) MarshalJSON() ([]byte, error) {
	if a == AlertNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts null, "" or a level name
func (a *AlertLevel) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = AlertNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = AlertLevel(s)
	return nil
}

// FieldComparison is the outcome of comparing one field or metric
type FieldComparison struct {
	User       any        `json:"user"`
	Competitor any        `json:"competitor"`
	Difference *float64   `json:"difference"`
	Advantage  Advantage  `json:"advantage"`
	Alert      AlertLevel `json:"alert"`
	// PriceField is set when the compared field is a price.
	PriceField bool `json:"price_field,omitempty"`
}

// ComparisonResult holds per-field and per-metric comparisons of two records
type ComparisonResult struct {
	Fields  map[string]FieldComparison `json:"fields"`
	Metrics map[string]FieldComparison `json:"metrics"`
}

// NewComparisonResult returns an empty result with initialized maps
func NewComparisonResult() *ComparisonResult {
	return &ComparisonResult{
		Fields:  make(map[string]FieldComparison),
		Metrics: make(map[string]FieldComparison),
	}
}
