package units

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestConvert_WeightKgToLbs(t *testing.T) {
	got, ok := Convert(70, "kg", "lbs", "weight")
	if !ok {
		t.Fatal("expected conversion to be available")
	}
	if !almostEqual(got, 154.32, 0.01) {
		t.Errorf("expected ~154.32, got %v", got)
	}
}

func TestConvert_WeightLbsToKg(t *testing.T) {
	got, ok := Convert(154, "lbs", "kg", "weight")
	if !ok {
		t.Fatal("expected conversion to be available")
	}
	if !almostEqual(got, 69.85, 0.01) {
		t.Errorf("expected ~69.85, got %v", got)
	}
}

func TestConvert_SameUnit(t *testing.T) {
	got, ok := Convert(70, "kg", "kg", "weight")
	if !ok || got != 70 {
		t.Errorf("same-unit conversion should be identity, got %v %v", got, ok)
	}
}

func TestConvert_TemperatureAffine(t *testing.T) {
	got, ok := Convert(37, "C", "F", "temperature")
	if !ok || !almostEqual(got, 98.6, 0.01) {
		t.Errorf("37C should be 98.6F, got %v", got)
	}
	got, ok = Convert(98.6, "F", "C", "temperature")
	if !ok || !almostEqual(got, 37, 0.01) {
		t.Errorf("98.6F should be 37C, got %v", got)
	}
	// negative values survive the affine transform
	got, ok = Convert(-40, "C", "F", "temperature")
	if !ok || !almostEqual(got, -40, 0.01) {
		t.Errorf("-40C should be -40F, got %v", got)
	}
	got, ok = Convert(0, "K", "F", "temperature")
	if !ok || !almostEqual(got, -459.67, 0.01) {
		t.Errorf("0K should be -459.67F, got %v", got)
	}
}

func TestConvert_ConcentrationGPerLToMgPerDL(t *testing.T) {
	got, ok := Convert(1, "g/L", "mg/dL", "concentration")
	if !ok || !almostEqual(got, 100, 0.001) {
		t.Errorf("1 g/L should be 100 mg/dL, got %v", got)
	}
}

func TestConvert_UnknownPairReturnsUnavailable(t *testing.T) {
	if _, ok := Convert(100, "kg", "cm", "weight"); ok {
		t.Error("kg->cm must not be convertible within weight")
	}
	if _, ok := Convert(100, "kg", "lbs", "nosuchtype"); ok {
		t.Error("unregistered quantity type must not convert")
	}
}

func TestConvert_NonFiniteInput(t *testing.T) {
	if _, ok := Convert(math.NaN(), "kg", "lbs", "weight"); ok {
		t.Error("NaN must not convert")
	}
	if _, ok := Convert(math.Inf(1), "C", "F", "temperature"); ok {
		t.Error("Inf must not convert")
	}
}

func TestConvert_ZeroIsAValue(t *testing.T) {
	got, ok := Convert(0, "kg", "lbs", "weight")
	if !ok || got != 0 {
		t.Errorf("0 kg should convert to 0 lbs, got %v %v", got, ok)
	}
}

// Round-tripping A->B->A must be numerically idempotent within tolerance for
// every registered pair.
func TestConvert_RoundTripIdempotent(t *testing.T) {
	const sample = 37.4
	for _, qt := range []string{
		"weight", "height", "temperature", "pressure", "glucose",
		"creatinine", "calcium", "albumin", "bilirubin", "hemoglobin",
		"bun", "electrolyte", "cholesterol", "triglycerides", "ddimer",
		"fibrinogen", "concentration", "volume", "platelet", "wbc",
	} {
		for _, from := range Units(qt) {
			for _, to := range Units(qt) {
				fwd, ok := Convert(sample, from, to, qt)
				if !ok {
					continue
				}
				back, ok := Convert(fwd, to, from, qt)
				if !ok {
					// a one-way hop would break closure
					t.Errorf("%s: %s->%s convertible but %s->%s is not", qt, from, to, to, from)
					continue
				}
				if math.Abs(back-sample) > 1e-3*math.Abs(sample) {
					t.Errorf("%s: %s->%s->%s drifted: %v -> %v", qt, from, to, from, sample, back)
				}
			}
		}
	}
}

func TestDecimalPlaces(t *testing.T) {
	if d := DecimalPlaces("weight", "kg"); d != 1 {
		t.Errorf("expected 1 decimal for kg, got %d", d)
	}
	if d := DecimalPlaces("weight", "unknown"); d != 2 {
		t.Errorf("expected default of 2 decimals, got %d", d)
	}
}
