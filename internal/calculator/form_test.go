package calculator

import (
	"strings"
	"testing"
)

func formConfig() *Config {
	return &Config{
		ID:          "curb",
		Title:       "CURB Demo",
		Description: "Demo calculator",
		Sections: []Section{{
			Title:    "Vitals",
			Subtitle: "Most recent readings",
			Fields: []Field{
				{ID: "rr", Kind: KindNumber, Label: "Respiratory rate", Placeholder: "breaths/min"},
				{ID: "weight", Kind: KindNumber, Label: "Weight",
					Unit: &UnitToggle{QuantityType: "weight", Units: []string{"kg", "lbs"}, Default: "kg"}},
				{ID: "confusion", Kind: KindChoice, Label: "Confusion",
					Options: []Option{{Value: "no", Label: "No"}, {Value: "yes", Label: "Yes", Points: 1}}},
				{ID: "symptoms", Kind: KindMulti, Label: "Symptoms",
					Options: []Option{{Value: "cough", Label: "Cough"}, {Value: "fever", Label: "Fever"}}},
				{ID: "severity", Kind: KindSelect, Label: "Severity",
					Options: []Option{{Value: "mild", Label: "Mild"}, {Value: "severe", Label: "Severe"}}},
			},
		}},
		Formula: &Formula{
			Title: "Formula",
			Lines: []string{"score = sum of points"},
		},
		Score: func(v Values) Score { return Score{} },
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	cfg := formConfig()
	first := Render(cfg)
	second := Render(cfg)
	if first != second {
		t.Error("rendering the same config twice produced different markup")
	}
}

func TestRenderControls(t *testing.T) {
	markup := Render(formConfig())

	for _, want := range []string{
		`data-calculator="curb"`,
		`<input type="number" id="rr" name="rr" placeholder="breaths/min">`,
		`<select class="unit" id="weight-unit" name="weight-unit">`,
		`<option value="kg" selected>kg</option>`,
		`<input type="radio" id="confusion-yes" name="confusion" value="yes">`,
		`<input type="checkbox" id="symptoms-cough" name="symptoms" value="cough">`,
		`<select id="severity" name="severity">`,
		`id="curb-result"`,
		`id="curb-error"`,
		`score = sum of points`,
	} {
		if !strings.Contains(markup, want) {
			t.Errorf("markup missing %q", want)
		}
	}
}

func TestRenderEscapesContent(t *testing.T) {
	cfg := formConfig()
	cfg.Sections[0].Fields[0].Label = `Rate <script>alert("x")</script>`
	markup := Render(cfg)
	if strings.Contains(markup, "<script>") {
		t.Error("markup contains unescaped label content")
	}
}

func TestStandardValue(t *testing.T) {
	f := &Field{ID: "weight", Kind: KindNumber,
		Unit: &UnitToggle{QuantityType: "weight", Units: []string{"kg", "lbs"}, Default: "kg"}}
	fs := newFieldState(f)

	if fs.StandardValue("kg") != nil {
		t.Error("empty field should have no standard value")
	}

	fs.Value = F(154)
	fs.Unit = "lbs"
	got := fs.StandardValue("kg")
	if got == nil {
		t.Fatal("conversion failed")
	}
	if *got < 69.8 || *got > 69.9 {
		t.Errorf("154 lbs = %v kg, want about 69.85", *got)
	}

	// Unknown target unit means unavailable, never zero.
	if fs.StandardValue("stone") != nil {
		t.Error("unregistered unit pair should yield nil")
	}
}

func TestDefaultResultMarkup(t *testing.T) {
	cfg := formConfig()
	cfg.RiskLevels = []RiskLevel{
		{Min: F(1), Severity: SeverityHigh, Label: "High risk", Recommendation: "Admit"},
	}

	markup := renderDefaultResult(cfg, Score{
		Value:  2,
		Extras: map[string]string{"Mortality": "9.2%"},
	})
	for _, want := range []string{"High risk", "Admit", "Mortality", "9.2%"} {
		if !strings.Contains(markup, want) {
			t.Errorf("result markup missing %q", want)
		}
	}
}
