package fhir

import (
	"testing"
	"time"
)

func TestEffectiveTimePrecedence(t *testing.T) {
	obs := &Observation{
		EffectiveDateTime: "2026-08-20T10:00:00Z",
		Issued:            "2026-08-25T00:00:00Z",
	}
	got, ok := obs.EffectiveTime()
	if !ok {
		t.Fatal("expected a timestamp")
	}
	want := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("effective time = %v, want %v", got, want)
	}
}

func TestEffectiveTimePeriodEndBeforeStart(t *testing.T) {
	obs := &Observation{
		EffectivePeriod: &Period{
			Start: "2026-08-01T00:00:00Z",
			End:   "2026-08-02T00:00:00Z",
		},
	}
	got, ok := obs.EffectiveTime()
	if !ok {
		t.Fatal("expected a timestamp")
	}
	if got.Day() != 2 {
		t.Errorf("effective time = %v, want period end", got)
	}
}

func TestEffectiveTimeDateOnly(t *testing.T) {
	obs := &Observation{EffectiveDateTime: "2026-08-20"}
	if _, ok := obs.EffectiveTime(); !ok {
		t.Error("date-only effective time should parse")
	}
}

func TestEffectiveTimeAbsent(t *testing.T) {
	obs := &Observation{}
	if _, ok := obs.EffectiveTime(); ok {
		t.Error("expected no timestamp")
	}
}

func TestValueComponentLookup(t *testing.T) {
	v1, v2 := 120.0, 80.0
	obs := &Observation{
		Component: []ObservationComponent{
			{
				Code:          CodeableConcept{Coding: []Coding{{Code: "8480-6"}}},
				ValueQuantity: &Quantity{Value: &v1, Unit: "mmHg"},
			},
			{
				Code:          CodeableConcept{Coding: []Coding{{Code: "8462-4"}}},
				ValueQuantity: &Quantity{Value: &v2, Unit: "mmHg"},
			},
		},
	}

	got, unit := obs.Value("8462-4")
	if got == nil || *got != 80 {
		t.Fatalf("diastolic = %v, want 80", got)
	}
	if unit != "mmHg" {
		t.Errorf("unit = %q", unit)
	}

	if v, _ := obs.Value("9999-9"); v != nil {
		t.Errorf("unknown component returned %v", *v)
	}
}

func TestValueTopLevel(t *testing.T) {
	w := 72.5
	obs := &Observation{ValueQuantity: &Quantity{Value: &w, Unit: "kg"}}
	got, unit := obs.Value("")
	if got == nil || *got != 72.5 || unit != "kg" {
		t.Errorf("value = %v %q, want 72.5 kg", got, unit)
	}
}

func TestAgeAt(t *testing.T) {
	p := &Patient{BirthDate: "1980-03-15"}

	age, ok := p.AgeAt(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if !ok || age != 46 {
		t.Errorf("age = %d ok=%v, want 46", age, ok)
	}

	// Birthday not reached yet this year.
	age, ok = p.AgeAt(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	if !ok || age != 45 {
		t.Errorf("age before birthday = %d ok=%v, want 45", age, ok)
	}

	if _, ok := (&Patient{}).AgeAt(time.Now()); ok {
		t.Error("missing birth date should not yield an age")
	}
}

func TestNormalizedGender(t *testing.T) {
	cases := map[string]string{
		"male":    "male",
		"Female":  "female",
		"other":   "",
		"unknown": "",
		"":        "",
	}
	for in, want := range cases {
		p := &Patient{Gender: in}
		if got := p.NormalizedGender(); got != want {
			t.Errorf("NormalizedGender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCodeRegistry(t *testing.T) {
	if CodeName(CodeSystolicBP) == "" {
		t.Error("systolic code should have a display name")
	}
	if got := QuantityTypeForCode(CodeWeight); got != "weight" {
		t.Errorf("quantity type for weight = %q", got)
	}
	if got := QuantityTypeForCode("no-such-code"); got != "concentration" {
		t.Errorf("default quantity type = %q, want concentration", got)
	}
	if got := PrimaryCode(CodeTemperature); got != "8310-5" {
		t.Errorf("primary temperature code = %q", got)
	}
	if got := PrimaryCode(CodeWeight); got != CodeWeight {
		t.Errorf("single code should pass through, got %q", got)
	}
}
