// Package units converts clinical measurement values between alternate unit
// representations of the same quantity type (mass, length, temperature,
// concentration, count density, ...).
//
// Every conversion is an explicit linear transform registered for a specific
// (quantityType, from, to) triple. There is no implicit chaining through a
// third unit: if a hop is not in the table, the conversion is unavailable.
package units

import "math"

// Linear is a value transform of the form out = in*Scale + Offset.
// Pure scalar factors have Offset == 0.
type Linear struct {
	Scale  float64
	Offset float64
}

// Apply transforms a value.
func (l Linear) Apply(v float64) float64 {
	return v*l.Scale + l.Offset
}

// conversions maps quantityType -> fromUnit -> toUnit -> transform.
// Factor pairs are declared in both directions so that A->B->A round-trips
// within floating-point tolerance.
var conversions = map[string]map[string]map[string]Linear{
	"weight": {
		"kg":  {"lbs": {Scale: 2.20462}, "g": {Scale: 1000}},
		"lbs": {"kg": {Scale: 0.453592}, "g": {Scale: 453.592}},
		"g":   {"kg": {Scale: 0.001}, "lbs": {Scale: 0.00220462}},
	},
	"height": {
		"cm": {"in": {Scale: 0.393701}, "ft": {Scale: 0.0328084}, "m": {Scale: 0.01}},
		"in": {"cm": {Scale: 2.54}, "ft": {Scale: 0.0833333}, "m": {Scale: 0.0254}},
		"ft": {"cm": {Scale: 30.48}, "in": {Scale: 12}, "m": {Scale: 0.3048}},
		"m":  {"cm": {Scale: 100}, "in": {Scale: 39.3701}, "ft": {Scale: 3.28084}},
	},
	"temperature": {
		"C": {"F": {Scale: 1.8, Offset: 32}, "K": {Scale: 1, Offset: 273.15}},
		"F": {"C": {Scale: 5.0 / 9.0, Offset: -32 * 5.0 / 9.0}, "K": {Scale: 5.0 / 9.0, Offset: 273.15 - 32*5.0/9.0}},
		"K": {"C": {Scale: 1, Offset: -273.15}, "F": {Scale: 1.8, Offset: -459.67}},
	},
	"pressure": {
		"mmHg":   {"kPa": {Scale: 0.133322}, "mm[Hg]": {Scale: 1}},
		"kPa":    {"mmHg": {Scale: 7.50062}, "mm[Hg]": {Scale: 7.50062}},
		"mm[Hg]": {"mmHg": {Scale: 1}, "kPa": {Scale: 0.133322}},
	},
	"volume": {
		"mL": {"L": {Scale: 0.001}},
		"L":  {"mL": {Scale: 1000}},
	},
	"concentration": {
		"g/L":   {"mg/dL": {Scale: 100}, "g/dL": {Scale: 0.1}},
		"g/dL":  {"mg/dL": {Scale: 1000}, "g/L": {Scale: 10}},
		"mg/dL": {"g/L": {Scale: 0.01}, "g/dL": {Scale: 0.001}},
	},
	"glucose": {
		"mg/dL":  {"mmol/L": {Scale: 0.0555}},
		"mmol/L": {"mg/dL": {Scale: 18.018}},
	},
	"creatinine": {
		"mg/dL":  {"umol/L": {Scale: 88.4}, "µmol/L": {Scale: 88.4}},
		"umol/L": {"mg/dL": {Scale: 1 / 88.4}},
		"µmol/L": {"mg/dL": {Scale: 1 / 88.4}},
	},
	"calcium": {
		"mg/dL":  {"mmol/L": {Scale: 0.2495}},
		"mmol/L": {"mg/dL": {Scale: 1 / 0.2495}},
	},
	"albumin": {
		"g/dL": {"g/L": {Scale: 10}},
		"g/L":  {"g/dL": {Scale: 0.1}},
	},
	"bilirubin": {
		"mg/dL":  {"umol/L": {Scale: 17.1}, "µmol/L": {Scale: 17.1}},
		"umol/L": {"mg/dL": {Scale: 1 / 17.1}},
		"µmol/L": {"mg/dL": {Scale: 1 / 17.1}},
	},
	"hemoglobin": {
		"g/dL":   {"g/L": {Scale: 10}, "mmol/L": {Scale: 0.6206}},
		"g/L":    {"g/dL": {Scale: 0.1}},
		"mmol/L": {"g/dL": {Scale: 1 / 0.6206}},
	},
	"bun": {
		"mg/dL":  {"mmol/L": {Scale: 0.357}},
		"mmol/L": {"mg/dL": {Scale: 1 / 0.357}},
	},
	"electrolyte": {
		"mEq/L":  {"mmol/L": {Scale: 1}},
		"mmol/L": {"mEq/L": {Scale: 1}},
	},
	"cholesterol": {
		"mg/dL":  {"mmol/L": {Scale: 0.02586}},
		"mmol/L": {"mg/dL": {Scale: 1 / 0.02586}},
	},
	"triglycerides": {
		"mg/dL":  {"mmol/L": {Scale: 0.01129}},
		"mmol/L": {"mg/dL": {Scale: 1 / 0.01129}},
	},
	"platelet": {
		"x10^9/L":  {"x10^3/uL": {Scale: 1}, "K/uL": {Scale: 1}},
		"x10^3/uL": {"x10^9/L": {Scale: 1}},
		"K/uL":     {"x10^9/L": {Scale: 1}},
	},
	"wbc": {
		"x10^9/L":  {"x10^3/uL": {Scale: 1}, "K/uL": {Scale: 1}},
		"x10^3/uL": {"x10^9/L": {Scale: 1}},
		"K/uL":     {"x10^9/L": {Scale: 1}},
	},
	"ddimer": {
		"mg/L":  {"ug/mL": {Scale: 1}, "ng/mL": {Scale: 1000}},
		"ug/mL": {"mg/L": {Scale: 1}},
		"ng/mL": {"mg/L": {Scale: 0.001}},
	},
	"fibrinogen": {
		"g/L":   {"mg/dL": {Scale: 100}},
		"mg/dL": {"g/L": {Scale: 0.01}},
	},
}

// Convert converts value from one unit to another within a quantity type.
// The second return is false when the unit pair is not registered for the
// type, or the value is not a finite number. Callers must treat a false
// result as "value unavailable", never as zero.
func Convert(value float64, fromUnit, toUnit, quantityType string) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	if fromUnit == toUnit {
		return value, true
	}
	byFrom, ok := conversions[quantityType]
	if !ok {
		return 0, false
	}
	byTo, ok := byFrom[fromUnit]
	if !ok {
		return 0, false
	}
	tr, ok := byTo[toUnit]
	if !ok {
		return 0, false
	}
	return tr.Apply(value), true
}

// Registered reports whether any conversions exist for a quantity type.
func Registered(quantityType string) bool {
	_, ok := conversions[quantityType]
	return ok
}

// Units returns the units reachable as a source within a quantity type.
func Units(quantityType string) []string {
	byFrom, ok := conversions[quantityType]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(byFrom))
	for u := range byFrom {
		out = append(out, u)
	}
	return out
}

// decimalPlaces maps quantityType/unit to the display precision used when a
// converted value is written back into an input field.
var decimalPlaces = map[string]map[string]int{
	"weight":      {"kg": 1, "lbs": 1, "g": 0},
	"height":      {"cm": 1, "in": 1, "ft": 2, "m": 2},
	"temperature": {"C": 1, "F": 1, "K": 1},
	"pressure":    {"mmHg": 0, "kPa": 2, "mm[Hg]": 0},
	"glucose":     {"mg/dL": 0, "mmol/L": 1},
	"creatinine":  {"mg/dL": 2, "umol/L": 0, "µmol/L": 0},
	"calcium":     {"mg/dL": 2, "mmol/L": 2},
	"albumin":     {"g/dL": 1, "g/L": 0},
	"bilirubin":   {"mg/dL": 1, "umol/L": 0, "µmol/L": 0},
	"cholesterol": {"mg/dL": 0, "mmol/L": 2},
}

// DecimalPlaces returns the display precision for a unit, defaulting to 2.
func DecimalPlaces(quantityType, unit string) int {
	if m, ok := decimalPlaces[quantityType]; ok {
		if d, ok := m[unit]; ok {
			return d
		}
	}
	return 2
}
