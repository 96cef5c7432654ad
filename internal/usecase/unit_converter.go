package usecase

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// unitAliases maps lower-cased spellings to canonical unit names
var unitAliases = map[string]string{
	// Volume
	"gal": "gallons", "gallon": "gallons", "gallons": "gallons",
	"l": "liters", "liter": "liters", "liters": "liters", "litre": "liters", "litres": "liters",
	"ml": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml",
	"qt": "quarts", "quart": "quarts", "quarts": "quarts",
	"fl oz": "fl oz", "floz": "fl oz", "fluid ounce": "fl oz", "fluid ounces": "fl oz",

	// Weight
	"lb": "lbs", "lbs": "lbs", "pound": "lbs", "pounds": "lbs",
	"kg": "kg", "kilogram": "kg", "kilograms": "kg",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"g": "grams", "gram": "grams", "grams": "grams",

	// Length
	"in": "inches", "inch": "inches", "inches": "inches",
	"cm": "cm", "centimeter": "cm", "centimeters": "cm",
	"mm": "mm", "millimeter": "mm", "millimeters": "mm",
	"ft": "feet", "foot": "feet", "feet": "feet",
	"m": "meters", "meter": "meters", "meters": "meters", "metre": "meters", "metres": "meters",

	// Power
	"w": "W", "watt": "W", "watts": "W",
	"kw": "kW", "kilowatt": "kW", "kilowatts": "kW",

	// Currency
	"$": "USD", "usd": "USD", "dollar": "USD", "dollars": "USD",
	"¢": "cents", "cent": "cents", "cents": "cents",
}

// unitConversion registers value_in_to = value_in_from * factor.
// The reverse direction is derived by reciprocal.
type unitConversion struct {
	from, to string
	factor   float64
}

var registeredConversions = []unitConversion{
	// Volume
	{"gallons", "liters", 3.78541},
	{"quarts", "liters", 0.946353},
	{"liters", "ml", 1000},
	{"fl oz", "ml", 29.5735},

	// Weight
	{"lbs", "kg", 0.453592},
	{"lbs", "oz", 16},
	{"kg", "grams", 1000},

	// Length
	{"inches", "cm", 2.54},
	{"feet", "meters", 0.3048},
	{"meters", "cm", 100},
	{"cm", "mm", 10},

	// Power
	{"kW", "W", 1000},

	// Currency
	{"USD", "cents", 100},
}

type unitPair struct{ from, to string }

var conversionTable = sync.OnceValue(func() map[unitPair]float64 {
	table := make(map[unitPair]float64, len(registeredConversions)*2)
	for _, c := range registeredConversions {
		table[unitPair{c.from, c.to}] = c.factor
		table[unitPair{c.to, c.from}] = 1 / c.factor
	}
	return table
})

// Non-unit words that commonly follow numbers in product copy
var nonUnitWords = map[string]bool{
	"per": true, "each": true, "total": true, "max": true, "min": true,
	"up": true, "to": true, "at": true, "for": true, "with": true,
	"and": true, "or": true, "x": true, "by": true, "pack": true,
}

var (
	leadingCurrencyRegex  = regexp.MustCompile(`^[$€£¥]\s*`)
	unitAfterNumberRegex  = regexp.MustCompile(`\d[\d.,]*\s*([a-zA-Z]+)(?:\s+([a-zA-Z]+))?`)
	currencyPrefixRegex   = regexp.MustCompile(`^([a-zA-Z]{3})\s+[\d.,]+`)
	currencyPrefixAllowed = map[string]bool{"usd": true, "eur": true, "gbp": true, "cad": true}
)

const maxUnitLength = 20

// NormalizeUnit resolves a unit spelling to its canonical form.
// Unknown units are returned lower-cased.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(norm.NFKC.String(unit)))
	if u == "" {
		return ""
	}
	u = strings.Join(strings.Fields(u), " ")
	if canonical, ok := unitAliases[u]; ok {
		return canonical
	}
	return u
}

// UnitsCompatible reports whether a value can be converted between the two units
func UnitsCompatible(a, b string) bool {
	na, nb := NormalizeUnit(a), NormalizeUnit(b)
	if na == nb {
		return true
	}
	_, ok := conversionTable()[unitPair{na, nb}]
	return ok
}

// ConvertUnit converts value between units. The bool is false when no
// conversion is registered for the pair.
func ConvertUnit(value float64, from, to string) (float64, bool) {
	nf, nt := NormalizeUnit(from), NormalizeUnit(to)
	if nf == nt {
		return value, true
	}
	factor, ok := conversionTable()[unitPair{nf, nt}]
	if !ok {
		return 0, false
	}
	return value * factor, true
}

// ExtractUnit finds the unit token next to the first number in text,
// e.g. "1.6 gallons" -> "gallons", "2000W" -> "w", "USD 199.99" -> "usd".
// The result is lower-cased but not normalized.
func ExtractUnit(text string) (string, bool) {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return "", false
	}
	text = leadingCurrencyRegex.ReplaceAllString(text, "")

	if m := unitAfterNumberRegex.FindStringSubmatch(text); m != nil {
		first := strings.ToLower(m[1])
		if m[2] != "" {
			pair := first + " " + strings.ToLower(m[2])
			if _, ok := unitAliases[pair]; ok {
				return pair, true
			}
		}
		if !nonUnitWords[first] && len(first) <= maxUnitLength {
			return first, true
		}
		return "", false
	}

	if m := currencyPrefixRegex.FindStringSubmatch(text); m != nil {
		prefix := strings.ToLower(m[1])
		if currencyPrefixAllowed[prefix] {
			return prefix, true
		}
	}

	return "", false
}
