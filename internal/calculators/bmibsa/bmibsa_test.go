package bmibsa

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/calculator"
)

func mount(t *testing.T) *calculator.Instance {
	t.Helper()
	calc, err := calculator.New(Definition(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return calc.Initialize(context.Background(), nil, nil)
}

func TestBMI(t *testing.T) {
	in := mount(t)
	defer in.Unmount()

	in.SetValue("weight", calculator.F(70))
	in.SetValue("height", calculator.F(175))

	res, ok := in.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Score.Value != 22.9 {
		t.Errorf("BMI = %v, want 22.9", res.Score.Value)
	}
	if res.Level == nil || res.Level.Label != "Normal weight" {
		t.Errorf("level = %+v, want Normal weight", res.Level)
	}
	if res.Score.Extras["BSA"] != "1.84 m2" {
		t.Errorf("BSA = %q, want 1.84 m2", res.Score.Extras["BSA"])
	}
}

func TestBMIWithImperialUnits(t *testing.T) {
	in := mount(t)
	defer in.Unmount()

	in.SetUnit("weight", "lbs")
	in.SetUnit("height", "in")
	in.SetValue("weight", calculator.F(154))
	in.SetValue("height", calculator.F(69))

	res, ok := in.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	// 154 lbs is 69.85 kg, 69 in is 175.26 cm: BMI just under 22.8.
	if res.Score.Value < 22.5 || res.Score.Value > 23.1 {
		t.Errorf("BMI = %v, want about 22.7", res.Score.Value)
	}
}

func TestBMIRequiresBothFields(t *testing.T) {
	in := mount(t)
	defer in.Unmount()

	in.SetValue("weight", calculator.F(70))
	if _, ok := in.Result(); ok {
		t.Error("result should be suppressed until height is entered")
	}
}
