package usecase

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/competitiveedge/engine/internal/domain"
)

// RawKind tags the shape a raw extracted value arrived in
type RawKind int

const (
	RawNull RawKind = iota
	RawNumber
	RawTagged // {"value": 1.6, "unit": "gallons"}
	RawText
	RawBool
	RawUnsupported
)

// RawValue is a decoded extraction value. Only the fields matching Kind are set.
type RawValue struct {
	Kind   RawKind
	Number float64
	Unit   string
	Text   string
	Bool   bool
}

var (
	// Thousands-grouped numbers first so "1,249.99" is not read as 1
	numberTokenRegex = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d*\.\d+|\d+`)
	currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")
)

// nullSentinels are strings extraction uses to mean "not found"
var nullSentinels = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"n/a":  true,
}

// IsNullValue reports whether v is nil or a sentinel null string
func IsNullValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return nullSentinels[strings.ToLower(strings.TrimSpace(s))]
	}
	return false
}

// ParseRawValue classifies a loosely-typed extraction value
func ParseRawValue(v any) RawValue {
	if IsNullValue(v) {
		return RawValue{Kind: RawNull}
	}
	if n, ok := toNumber(v); ok {
		return RawValue{Kind: RawNumber, Number: n}
	}
	switch val := v.(type) {
	case string:
		return RawValue{Kind: RawText, Text: strings.TrimSpace(val)}
	case bool:
		return RawValue{Kind: RawBool, Bool: val}
	case map[string]any:
		return parseTagged(val)
	case domain.Record:
		return parseTagged(val)
	}
	return RawValue{Kind: RawUnsupported}
}

func parseTagged(m map[string]any) RawValue {
	inner, ok := m["value"]
	if !ok {
		return RawValue{Kind: RawUnsupported}
	}
	if IsNullValue(inner) {
		return RawValue{Kind: RawNull}
	}
	unit, _ := m["unit"].(string)
	unit = strings.TrimSpace(unit)

	if n, ok := toNumber(inner); ok {
		return RawValue{Kind: RawTagged, Number: n, Unit: unit}
	}
	if s, ok := inner.(string); ok {
		if n, ok := ParseNumber(s); ok {
			if unit == "" {
				unit, _ = ExtractUnit(s)
			}
			return RawValue{Kind: RawTagged, Number: n, Unit: unit}
		}
	}
	return RawValue{Kind: RawUnsupported}
}

// toNumber accepts Go numeric types and json.Number; NaN and Inf are rejected
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseNumber extracts the first numeric token from text such as
// "1.6 gallons", "2000W" or "$1,249.99". A leading minus sign is honored.
func ParseNumber(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	loc := numberTokenRegex.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	token := strings.ReplaceAll(text[loc[0]:loc[1]], ",", "")
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if loc[0] > 0 && text[loc[0]-1] == '-' && strings.TrimSpace(text[:loc[0]-1]) == "" {
		f = -f
	}
	return f, true
}

// ParsePrice parses a currency string like "$1,249.99" exactly, then falls
// back to the first numeric token.
func ParsePrice(text string) (float64, bool) {
	cleaned := currencyStripper.Replace(strings.TrimSpace(text))
	if d, err := decimal.NewFromString(cleaned); err == nil {
		f, _ := d.Float64()
		return f, true
	}
	return ParseNumber(text)
}

// strictFloat converts numbers and plain numeric strings, without unit stripping
func strictFloat(v any) (float64, bool) {
	if n, ok := toNumber(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
