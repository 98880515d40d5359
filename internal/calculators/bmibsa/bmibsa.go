// Package bmibsa defines the body mass index / body surface area calculator.
package bmibsa

import (
	"fmt"
	"math"

	"github.com/medcalc/medcalc/internal/calculator"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/validate"
)

// Definition returns the calculator configuration. Weight and height are
// pre-filled from the record when available; BSA (Mosteller) rides along as
// a secondary result.
func Definition() *calculator.Config {
	return &calculator.Config{
		ID:          "bmi-bsa",
		Title:       "BMI and Body Surface Area",
		Description: "Body mass index with Mosteller body surface area",
		Sections: []calculator.Section{{
			Title: "Measurements",
			Fields: []calculator.Field{
				{
					ID:    "weight",
					Kind:  calculator.KindNumber,
					Label: "Weight",
					Unit: &calculator.UnitToggle{
						QuantityType: "weight",
						Units:        []string{"kg", "lbs"},
						Default:      "kg",
					},
					Source: &calculator.Source{Code: fhir.CodeWeight},
				},
				{
					ID:    "height",
					Kind:  calculator.KindNumber,
					Label: "Height",
					Unit: &calculator.UnitToggle{
						QuantityType: "height",
						Units:        []string{"cm", "in"},
						Default:      "cm",
					},
					Source: &calculator.Source{Code: fhir.CodeHeight},
				},
			},
		}},
		Validation: validate.Schema{
			"weight": {Required: true, Min: validate.F(1), Max: validate.F(650)},
			"height": {Required: true, Min: validate.F(30), Max: validate.F(275)},
		},
		RiskLevels: []calculator.RiskLevel{
			{Max: calculator.F(18.4), Severity: calculator.SeverityModerate, Label: "Underweight"},
			{Min: calculator.F(18.5), Max: calculator.F(24.9), Severity: calculator.SeverityLow, Label: "Normal weight"},
			{Min: calculator.F(25), Max: calculator.F(29.9), Severity: calculator.SeverityModerate, Label: "Overweight"},
			{Min: calculator.F(30), Severity: calculator.SeverityHigh, Label: "Obese"},
		},
		Formula: &calculator.Formula{
			Title: "Formulas",
			Lines: []string{
				"BMI = weight (kg) / height (m)^2",
				"BSA (Mosteller) = sqrt(height (cm) x weight (kg) / 3600)",
			},
			References: []string{
				"Mosteller RD. Simplified calculation of body-surface area. N Engl J Med. 1987;317(17):1098.",
			},
		},
		Score: score,
	}
}

func score(v calculator.Values) calculator.Score {
	weight := v.NumberOr("weight", 0)
	heightCm := v.NumberOr("height", 0)
	heightM := heightCm / 100

	bmi := weight / (heightM * heightM)
	bsa := math.Sqrt(heightCm * weight / 3600)

	return calculator.Score{
		Value:   round1(bmi),
		Display: fmt.Sprintf("BMI %.1f kg/m2", bmi),
		Extras: map[string]string{
			"BSA": fmt.Sprintf("%.2f m2", bsa),
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
