// Package meanap defines the mean arterial pressure calculator.
package meanap

import (
	"fmt"

	"github.com/medcalc/medcalc/internal/calculator"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/validate"
)

// Definition returns the calculator configuration. Both pressures come out
// of a single blood pressure panel fetch when the record has one.
func Definition() *calculator.Config {
	return &calculator.Config{
		ID:          "mean-arterial-pressure",
		Title:       "Mean Arterial Pressure",
		Description: "MAP from systolic and diastolic blood pressure",
		Sections: []calculator.Section{{
			Title: "Blood pressure",
			Fields: []calculator.Field{
				{
					ID:          "sbp",
					Kind:        calculator.KindNumber,
					Label:       "Systolic blood pressure",
					Placeholder: "mmHg",
					Source: &calculator.Source{
						Code:      fhir.CodeBPPanel,
						Component: fhir.CodeSystolicBP,
					},
				},
				{
					ID:          "dbp",
					Kind:        calculator.KindNumber,
					Label:       "Diastolic blood pressure",
					Placeholder: "mmHg",
					Source: &calculator.Source{
						Code:      fhir.CodeBPPanel,
						Component: fhir.CodeDiastolicBP,
					},
				},
			},
		}},
		Validation: validate.Schema{
			"sbp": {Required: true, Min: validate.F(30), Max: validate.F(300),
				Message: "Systolic pressure must be between 30 and 300 mmHg"},
			"dbp": {Required: true, Min: validate.F(10), Max: validate.F(200),
				Message: "Diastolic pressure must be between 10 and 200 mmHg"},
		},
		RiskLevels: []calculator.RiskLevel{
			{Max: calculator.F(64.9), Severity: calculator.SeverityHigh, Label: "Low MAP",
				Description: "Below the usual perfusion target of 65 mmHg"},
			{Min: calculator.F(65), Max: calculator.F(110), Severity: calculator.SeverityLow, Label: "Normal MAP"},
			{Min: calculator.F(110.1), Severity: calculator.SeverityModerate, Label: "Elevated MAP"},
		},
		Formula: &calculator.Formula{
			Title: "Formula",
			Lines: []string{"MAP = (SBP + 2 x DBP) / 3"},
		},
		Score: score,
	}
}

func score(v calculator.Values) calculator.Score {
	sbp := v.NumberOr("sbp", 0)
	dbp := v.NumberOr("dbp", 0)
	m := (sbp + 2*dbp) / 3
	return calculator.Score{
		Value:   m,
		Display: fmt.Sprintf("%.0f mmHg", m),
	}
}
