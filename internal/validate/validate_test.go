package validate

import (
	"math"
	"testing"
)

func TestValidate_RequiredMissing(t *testing.T) {
	schema := Schema{"age": {Required: true}}
	res := Validate(map[string]*float64{"age": nil}, schema)
	if res.Valid {
		t.Error("missing required field must fail")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(res.Errors))
	}
	if res.FieldStatus["age"] != StatusError {
		t.Errorf("expected error status, got %s", res.FieldStatus["age"])
	}
}

func TestValidate_OptionalMissingIsValid(t *testing.T) {
	schema := Schema{"bmi": {Min: F(5), Max: F(120)}}
	res := Validate(map[string]*float64{}, schema)
	if !res.Valid {
		t.Errorf("absent optional field must be valid, errors: %v", res.Errors)
	}
	if res.FieldStatus["bmi"] != StatusValid {
		t.Errorf("expected valid status, got %s", res.FieldStatus["bmi"])
	}
}

func TestValidate_NaNTreatedAsAbsent(t *testing.T) {
	nan := math.NaN()
	res := Validate(map[string]*float64{"hr": &nan}, Schema{"hr": {Min: F(0)}})
	if !res.Valid {
		t.Error("NaN in an optional field must not fail validation")
	}
	res = Validate(map[string]*float64{"hr": &nan}, Schema{"hr": {Required: true}})
	if res.Valid {
		t.Error("NaN in a required field must fail validation")
	}
}

func TestValidate_RangeBounds(t *testing.T) {
	schema := Schema{"a": {Required: true, Min: F(0), Max: F(10)}}

	v := 11.0
	res := Validate(map[string]*float64{"a": &v}, schema)
	if res.Valid {
		t.Error("value above max must fail")
	}

	v = -1
	res = Validate(map[string]*float64{"a": &v}, schema)
	if res.Valid {
		t.Error("value below min must fail")
	}

	v = 0
	res = Validate(map[string]*float64{"a": &v}, schema)
	if !res.Valid {
		t.Errorf("boundary value must pass, errors: %v", res.Errors)
	}
}

func TestValidate_ZeroIsNotAbsent(t *testing.T) {
	zero := 0.0
	res := Validate(map[string]*float64{"score": &zero}, Schema{"score": {Required: true}})
	if !res.Valid {
		t.Error("zero satisfies a required rule; absence and zero are distinct")
	}
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	v := 250.0
	schema := Schema{"weight": {Required: true, Min: F(1), Max: F(500), WarnMax: F(200), WarningMessage: "weight is unusually high"}}
	res := Validate(map[string]*float64{"weight": &v}, schema)
	if !res.Valid {
		t.Errorf("yellow-zone value must not block, errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "weight is unusually high" {
		t.Errorf("expected custom warning, got %v", res.Warnings)
	}
	if res.FieldStatus["weight"] != StatusWarning {
		t.Errorf("expected warning status, got %s", res.FieldStatus["weight"])
	}
}

func TestValidate_OneMessagePerField(t *testing.T) {
	v := -5.0
	schema := Schema{"a": {Required: true, Min: F(0), Max: F(10), WarnMin: F(2)}}
	res := Validate(map[string]*float64{"a": &v}, schema)
	if len(res.Errors) != 1 {
		t.Errorf("first failing rule only, got %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("red-zone failure must suppress warnings for the field, got %v", res.Warnings)
	}
}

func TestValidate_CustomMessage(t *testing.T) {
	schema := Schema{"cr": {Required: true, Message: "serum creatinine is required"}}
	res := Validate(map[string]*float64{}, schema)
	if len(res.Errors) != 1 || res.Errors[0] != "serum creatinine is required" {
		t.Errorf("expected custom message, got %v", res.Errors)
	}
}

func TestValidate_MultipleFieldsIndependent(t *testing.T) {
	a := 11.0
	b := 4.0
	schema := Schema{
		"a": {Required: true, Min: F(0), Max: F(10)},
		"b": {Required: true, Min: F(0), Max: F(10)},
	}
	res := Validate(map[string]*float64{"a": &a, "b": &b}, schema)
	if res.Valid {
		t.Error("one failing field makes the result invalid")
	}
	if res.FieldStatus["b"] != StatusValid {
		t.Errorf("sibling field must validate independently, got %s", res.FieldStatus["b"])
	}
}
