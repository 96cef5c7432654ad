package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/competitiveedge/engine/internal/domain"
)

// nameField is kept on every normalized record; matching needs a product name
// whatever the schema looks like.
const nameField = "name"

// Normalizer turns raw extraction output into schema-typed records
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer that logs warnings to logger
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts raw into a record whose values match the schema's
// declared types and units. Fields that cannot be coerced are dropped so a
// later validation pass reports them as missing. The returned warnings are
// also logged.
func (n *Normalizer) Normalize(raw domain.Record, schema *domain.ProductSchema) (domain.Record, []string) {
	out := make(domain.Record, len(raw))
	var warnings []string
	warn := func(field string, format string, args ...any) {
		msg := fmt.Sprintf("field %q: %s", field, fmt.Sprintf(format, args...))
		warnings = append(warnings, msg)
		n.logger.Warn("normalize: "+fmt.Sprintf(format, args...), "field", field)
	}

	if schema == nil {
		schema = &domain.ProductSchema{}
	}

	for _, field := range schema.Fields {
		value, present := raw[field.Name]
		if !present {
			continue
		}
		if IsNullValue(value) {
			if field.Required {
				out[field.Name] = nil
			}
			continue
		}

		rv := ParseRawValue(value)
		if rv.Kind == RawNull {
			if field.Required {
				out[field.Name] = nil
			}
			continue
		}

		normalized, err := n.normalizeField(field, rv, warn)
		if err != nil {
			warn(field.Name, "dropping value %v: %v", value, err)
			continue
		}
		out[field.Name] = normalized
	}

	n.sanitizeNumeric(out, schema, warn)

	// name passes through as text unless the schema gives it another type
	if def, declared := schema.Field(nameField); !declared || def.Type == domain.FieldTypeText {
		if name, ok := productName(raw[nameField]); ok {
			out[nameField] = name
		}
	}

	return out, warnings
}

func (n *Normalizer) normalizeField(field domain.FieldDefinition, rv RawValue, warn func(string, string, ...any)) (any, error) {
	switch field.Type {
	case domain.FieldTypeText:
		return coerceText(rv)
	case domain.FieldTypeBoolean:
		return coerceBool(rv)
	case domain.FieldTypeInteger, domain.FieldTypeDecimal:
		value, unit, err := numericValue(field, rv)
		if err != nil {
			return nil, err
		}
		value = n.convertToFieldUnit(field, value, unit, warn)
		return coerceNumeric(field.Type, value)
	default:
		return nil, fmt.Errorf("unsupported field type %q", field.Type)
	}
}

// convertToFieldUnit converts value from unit into the field's declared unit.
// Incompatible units keep the raw value with a warning.
func (n *Normalizer) convertToFieldUnit(field domain.FieldDefinition, value float64, unit string, warn func(string, string, ...any)) float64 {
	if field.Unit == "" || unit == "" {
		return value
	}
	from, to := NormalizeUnit(unit), NormalizeUnit(field.Unit)
	if from == to {
		return value
	}
	converted, ok := ConvertUnit(value, from, to)
	if !ok {
		warn(field.Name, "incompatible units %q and %q, keeping raw value %v", from, to, value)
		return value
	}
	n.logger.Debug("normalize: converted unit",
		"field", field.Name, "from", from, "to", to, "value", value, "converted", converted)
	return converted
}

// numericValue extracts a number and the unit it was expressed in
func numericValue(field domain.FieldDefinition, rv RawValue) (float64, string, error) {
	switch rv.Kind {
	case RawNumber:
		return rv.Number, field.Unit, nil
	case RawTagged:
		unit := rv.Unit
		if unit == "" {
			unit = field.Unit
		}
		return rv.Number, unit, nil
	case RawText:
		if isPriceLike(field) {
			if v, ok := ParsePrice(rv.Text); ok {
				return v, field.Unit, nil
			}
			return 0, "", fmt.Errorf("no price in %q", rv.Text)
		}
		v, ok := ParseNumber(rv.Text)
		if !ok {
			return 0, "", fmt.Errorf("no numeric value in %q", rv.Text)
		}
		unit, found := ExtractUnit(rv.Text)
		if !found {
			unit = field.Unit
		}
		return v, unit, nil
	case RawBool:
		return 0, "", fmt.Errorf("boolean is not a number")
	default:
		return 0, "", fmt.Errorf("unsupported value shape")
	}
}

// isPriceLike reports whether string values should be parsed as currency
func isPriceLike(field domain.FieldDefinition) bool {
	if field.IsPrice() {
		return true
	}
	switch strings.ToUpper(strings.TrimSpace(field.Unit)) {
	case "USD", "CURRENCY":
		return true
	}
	return false
}

func coerceNumeric(t domain.FieldType, v float64) (any, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("value is not finite")
	}
	if t == domain.FieldTypeDecimal {
		return v, nil
	}
	return toInt64(v)
}

// toInt64 truncates toward zero, snapping values within float noise of an integer
func toInt64(v float64) (int64, error) {
	if math.Abs(v) >= math.MaxInt64 {
		return 0, fmt.Errorf("value %v overflows integer", v)
	}
	if r := math.Round(v); math.Abs(v-r) < 1e-9*math.Max(1, math.Abs(v)) {
		return int64(r), nil
	}
	return int64(v), nil
}

func coerceText(rv RawValue) (any, error) {
	switch rv.Kind {
	case RawText:
		return rv.Text, nil
	case RawNumber:
		return strconv.FormatFloat(rv.Number, 'f', -1, 64), nil
	case RawTagged:
		s := strconv.FormatFloat(rv.Number, 'f', -1, 64)
		if rv.Unit != "" {
			s += " " + rv.Unit
		}
		return s, nil
	case RawBool:
		return strconv.FormatBool(rv.Bool), nil
	default:
		return nil, fmt.Errorf("unsupported value shape")
	}
}

func coerceBool(rv RawValue) (any, error) {
	switch rv.Kind {
	case RawBool:
		return rv.Bool, nil
	case RawNumber, RawTagged:
		return rv.Number != 0, nil
	case RawText:
		switch strings.ToLower(rv.Text) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", rv.Text)
	default:
		return nil, fmt.Errorf("unsupported value shape")
	}
}

// sanitizeNumeric guarantees no string or object survives in a numeric slot
func (n *Normalizer) sanitizeNumeric(out domain.Record, schema *domain.ProductSchema, warn func(string, string, ...any)) {
	for _, field := range schema.Fields {
		if !field.Type.Numeric() {
			continue
		}
		value, ok := out[field.Name]
		if !ok {
			continue
		}
		switch value.(type) {
		case nil, int64, float64:
			continue
		}

		coerced, err := func() (any, error) {
			v, _, err := numericValue(field, ParseRawValue(value))
			if err != nil {
				return nil, err
			}
			return coerceNumeric(field.Type, v)
		}()
		if err != nil {
			warn(field.Name, "nulling unparseable value %v", value)
			out[field.Name] = nil
			continue
		}
		out[field.Name] = coerced
	}
}

// productName returns a usable product name from a raw value
func productName(v any) (string, bool) {
	if IsNullValue(v) {
		return "", false
	}
	var name string
	switch val := v.(type) {
	case string:
		name = strings.TrimSpace(val)
	case fmt.Stringer:
		name = strings.TrimSpace(val.String())
	default:
		if _, ok := toNumber(v); !ok {
			return "", false
		}
		name = fmt.Sprint(v)
	}
	if name == "" || strings.EqualFold(name, "unknown") {
		return "", false
	}
	return name, true
}
