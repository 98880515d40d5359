// Package curb65 defines the CURB-65 pneumonia severity calculator.
package curb65

import (
	"github.com/medcalc/medcalc/internal/calculator"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/validate"
)

// Definition returns the calculator configuration. Vitals, BUN and age are
// pre-filled from the record; confusion is always a bedside judgement.
func Definition() *calculator.Config {
	return &calculator.Config{
		ID:          "curb-65",
		Title:       "CURB-65 Severity Score",
		Description: "Pneumonia severity and disposition for community-acquired pneumonia",
		Sections: []calculator.Section{
			{
				Title: "Clinical assessment",
				Fields: []calculator.Field{
					{
						ID:    "confusion",
						Kind:  calculator.KindChoice,
						Label: "New-onset confusion",
						Options: []calculator.Option{
							{Value: "no", Label: "No", Points: 0},
							{Value: "yes", Label: "Yes", Points: 1},
						},
					},
				},
			},
			{
				Title:    "Laboratory and vitals",
				Subtitle: "Most recent values from the record when available",
				Fields: []calculator.Field{
					{
						ID:    "bun",
						Kind:  calculator.KindNumber,
						Label: "Blood urea nitrogen",
						Unit: &calculator.UnitToggle{
							QuantityType: "bun",
							Units:        []string{"mg/dL", "mmol/L"},
							Default:      "mg/dL",
						},
						Source: &calculator.Source{Code: fhir.CodeBUN},
					},
					{
						ID:     "rr",
						Kind:   calculator.KindNumber,
						Label:  "Respiratory rate",
						Source: &calculator.Source{Code: fhir.CodeRespiratoryRate},
					},
					{
						ID:    "sbp",
						Kind:  calculator.KindNumber,
						Label: "Systolic blood pressure",
						Source: &calculator.Source{
							Code:      fhir.CodeBPPanel,
							Component: fhir.CodeSystolicBP,
						},
					},
					{
						ID:    "dbp",
						Kind:  calculator.KindNumber,
						Label: "Diastolic blood pressure",
						Source: &calculator.Source{
							Code:      fhir.CodeBPPanel,
							Component: fhir.CodeDiastolicBP,
						},
					},
					{
						ID:     "age",
						Kind:   calculator.KindNumber,
						Label:  "Age",
						Source: &calculator.Source{Demographic: calculator.DemographicAge},
					},
				},
			},
		},
		Validation: validate.Schema{
			"confusion": {Required: true, Message: "Answer the confusion assessment"},
			"bun": {Required: true, Min: validate.F(0), Max: validate.F(250),
				WarnMin: validate.F(2), WarnMax: validate.F(120),
				WarningMessage: "Blood urea nitrogen is outside the usual range"},
			"rr":  {Required: true, Min: validate.F(0), Max: validate.F(80)},
			"sbp": {Required: true, Min: validate.F(30), Max: validate.F(300)},
			"dbp": {Required: true, Min: validate.F(10), Max: validate.F(200)},
			"age": {Required: true, Min: validate.F(0), Max: validate.F(120)},
		},
		RiskLevels: []calculator.RiskLevel{
			{Max: calculator.F(1), Severity: calculator.SeverityLow, Label: "Low risk",
				Description:    "30-day mortality 1.5%",
				Recommendation: "Consider outpatient treatment"},
			{Min: calculator.F(2), Max: calculator.F(2), Severity: calculator.SeverityModerate, Label: "Moderate risk",
				Description:    "30-day mortality 9.2%",
				Recommendation: "Consider short inpatient stay or supervised outpatient treatment"},
			{Min: calculator.F(3), Severity: calculator.SeverityHigh, Label: "High risk",
				Description:    "30-day mortality 22%",
				Recommendation: "Hospitalize; consider intensive care for CURB-65 of 4 or 5"},
		},
		Formula: &calculator.Formula{
			Title: "Scoring",
			Lines: []string{
				"One point each: confusion, BUN > 19 mg/dL, respiratory rate >= 30,",
				"systolic BP < 90 mmHg or diastolic BP <= 60 mmHg, age >= 65.",
			},
			References: []string{
				"Lim WS, et al. Defining community acquired pneumonia severity on presentation to hospital. Thorax. 2003;58(5):377-82.",
			},
		},
		Score: score,
	}
}

func score(v calculator.Values) calculator.Score {
	points := v.Points("confusion")
	if v.NumberOr("bun", 0) > 19 {
		points++
	}
	if v.NumberOr("rr", 0) >= 30 {
		points++
	}
	if v.NumberOr("sbp", 999) < 90 || v.NumberOr("dbp", 999) <= 60 {
		points++
	}
	if v.NumberOr("age", 0) >= 65 {
		points++
	}
	return calculator.Score{Value: float64(points)}
}
