package usecase

import (
	"math"
	"testing"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Gallons", "gallons"},
		{"gal", "gallons"},
		{"  L ", "liters"},
		{"litres", "liters"},
		{"fl  oz", "fl oz"},
		{"Fluid Ounces", "fl oz"},
		{"lb", "lbs"},
		{"W", "W"},
		{"watts", "W"},
		{"KW", "kW"},
		{"$", "USD"},
		{"usd", "USD"},
		{"ｋｇ", "kg"}, // full-width
		{"BTU", "btu"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeUnit(tt.input); got != tt.want {
				t.Errorf("NormalizeUnit(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertUnit(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
		ok       bool
	}{
		{"gallons to liters", 1, "gallons", "liters", 3.78541, true},
		{"liters to gallons", 3.78541, "L", "gal", 1, true},
		{"kilowatts to watts", 1.5, "kW", "W", 1500, true},
		{"watts to kilowatts", 2000, "watts", "kw", 2, true},
		{"pounds to ounces", 2, "lbs", "oz", 32, true},
		{"dollars to cents", 1.25, "USD", "cents", 125, true},
		{"same unit", 42, "W", "watt", 42, true},
		{"incompatible", 5, "gallons", "W", 0, false},
		{"unregistered chain", 1, "gallons", "ml", 0, false},
		{"unknown unit", 1, "btu", "W", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConvertUnit(tt.value, tt.from, tt.to)
			if ok != tt.ok {
				t.Fatalf("ConvertUnit ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ConvertUnit(%v, %q, %q) = %v, want %v", tt.value, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConvertUnitRoundTrip(t *testing.T) {
	values := []float64{0, 1, 1.6, 199.99, 2000, 123456.789}

	for _, c := range registeredConversions {
		t.Run(c.from+"<->"+c.to, func(t *testing.T) {
			for _, x := range values {
				there, ok := ConvertUnit(x, c.from, c.to)
				if !ok {
					t.Fatalf("no conversion %s -> %s", c.from, c.to)
				}
				back, ok := ConvertUnit(there, c.to, c.from)
				if !ok {
					t.Fatalf("no conversion %s -> %s", c.to, c.from)
				}
				if math.Abs(back-x) > 1e-9*math.Max(1, math.Abs(x)) {
					t.Errorf("round trip of %v = %v", x, back)
				}
			}
		})
	}
}

func TestUnitsCompatible(t *testing.T) {
	if !UnitsCompatible("gal", "liters") {
		t.Error("gallons and liters should be compatible")
	}
	if !UnitsCompatible("W", "watts") {
		t.Error("aliases of one unit should be compatible")
	}
	if UnitsCompatible("W", "liters") {
		t.Error("watts and liters should not be compatible")
	}
}

func TestExtractUnit(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1.6 gallons", "gallons", true},
		{"2000W", "w", true},
		{"1,500 watts max", "watts", true},
		{"12 fl oz", "fl oz", true},
		{"USD 199.99", "usd", true},
		{"$249.99", "", false},
		{"5 per box", "", false},
		{"no numbers here", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractUnit(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractUnit(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}
